package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ceapp/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://example.com/uploads"

func newTestImageStore(t *testing.T, maxWidth uint) (*ImageStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewImageStore(dir, testBaseURL+"/", maxWidth)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return s, dir
}

func dataURI(subtype string, payload []byte) string {
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func pathFromURL(t *testing.T, dir, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, testBaseURL+"/"), url)
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, testBaseURL+"/")))
}

func TestImageStore_StoresEveryAllowedType(t *testing.T) {
	s, dir := newTestImageStore(t, 0)
	payload := []byte("raw image bytes")

	for _, subtype := range []string{"jpg", "jpeg", "gif", "png", "PNG"} {
		t.Run(subtype, func(t *testing.T) {
			url, err := s.Store(dataURI(subtype, payload), "u1")
			require.NoError(t, err)

			ext := "." + strings.ToLower(subtype)
			assert.True(t, strings.HasSuffix(url, ext), url)
			assert.Contains(t, url, "/2026/10/colors_u1_")

			written, err := os.ReadFile(pathFromURL(t, dir, url))
			require.NoError(t, err)
			assert.Equal(t, payload, written)
		})
	}
}

func TestImageStore_SameInputNeverSameURL(t *testing.T) {
	s, _ := newTestImageStore(t, 0)
	uri := dataURI("png", []byte("same"))

	first, err := s.Store(uri, "u1")
	require.NoError(t, err)
	second, err := s.Store(uri, "u1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestImageStore_RejectsInput(t *testing.T) {
	s, dir := newTestImageStore(t, 0)

	tests := []struct {
		name string
		uri  string
		want error
	}{
		{"unsupported type", dataURI("bmp", []byte("x")), utils.ErrInvalidImageType},
		{"svg does not match pattern", "data:image/svg+xml;base64,PHN2Zz4=", utils.ErrInvalidImageData},
		{"missing subtype", "data:image/;base64,AAAA", utils.ErrInvalidImageData},
		{"not a data uri", "https://example.com/a.png", utils.ErrInvalidImageData},
		{"malformed base64", "data:image/png;base64,@@@###", utils.ErrInvalidImageData},
		{"empty payload", "data:image/png;base64,", utils.ErrInvalidImageData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Store(tt.uri, "u1")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected images must not create files")
}

func TestImageStore_AcceptsUnpaddedBase64(t *testing.T) {
	s, _ := newTestImageStore(t, 0)
	uri := "data:image/gif;base64," + base64.RawStdEncoding.EncodeToString([]byte("ab"))

	_, err := s.Store(uri, "u1")
	assert.NoError(t, err)
}

func TestImageStore_ResizesWideImages(t *testing.T) {
	s, dir := newTestImageStore(t, 16)

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	url, err := s.Store(dataURI("png", buf.Bytes()), "u1")
	require.NoError(t, err)

	f, err := os.Open(pathFromURL(t, dir, url))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}

func TestImageStore_KeepsUndecodablePixelsWhenResizing(t *testing.T) {
	s, dir := newTestImageStore(t, 16)

	url, err := s.Store(dataURI("jpg", []byte("not really a jpeg")), "u1")
	require.NoError(t, err)

	written, err := os.ReadFile(pathFromURL(t, dir, url))
	require.NoError(t, err)
	assert.Equal(t, "not really a jpeg", string(written))
}
