package storage

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ceapp/utils"

	"github.com/google/uuid"
)

var dataURIPattern = regexp.MustCompile(`^data:image/(\w+);base64,`)

var allowedImageTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"png":  true,
}

// ImageStore writes inline images to the public upload directory. Files are
// grouped in year/month folders and never overwritten; nothing deletes them.
type ImageStore struct {
	dir      string
	baseURL  string
	maxWidth uint
	now      func() time.Time
	random   func() string
}

// NewImageStore creates an image store rooted at dir and served at baseURL.
// A positive maxWidth downsizes wider jpeg and png images.
func NewImageStore(dir, baseURL string, maxWidth uint) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}

	return &ImageStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxWidth: maxWidth,
		now:      time.Now,
		random:   func() string { return uuid.New().String() },
	}, nil
}

// Store decodes a data:image/<type>;base64,<payload> URI, writes the image
// and returns its public URL. Every call creates a new file.
func (s *ImageStore) Store(dataURI, ownerID string) (string, error) {
	match := dataURIPattern.FindStringSubmatch(dataURI)
	if match == nil {
		return "", utils.ErrInvalidImageData
	}

	imageType := strings.ToLower(match[1])
	if !allowedImageTypes[imageType] {
		return "", utils.ErrInvalidImageType.WithContext("type", imageType)
	}

	data, err := decodeBase64(dataURI[len(match[0]):])
	if err != nil {
		return "", utils.ErrInvalidImageData.Wrap(err)
	}
	if len(data) == 0 {
		return "", utils.ErrInvalidImageData
	}

	if s.maxWidth > 0 && utils.IsResizable(imageType) {
		optimized, err := utils.OptimizeImage(data, s.maxWidth)
		if err != nil {
			utils.Log.Warn("Storing image of user %s without resizing: %v", ownerID, err)
		} else {
			data = optimized
		}
	}

	now := s.now()
	folder := filepath.Join(now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(filepath.Join(s.dir, folder), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload folder: %v", err)
	}

	fileName := s.fileName(ownerID, imageType, now)
	file, err := os.OpenFile(filepath.Join(s.dir, folder, fileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %v", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write image file: %v", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close image file: %v", err)
	}

	return s.baseURL + "/" + filepath.ToSlash(folder) + "/" + fileName, nil
}

// fileName builds colors_<owner>_<md5>.<type>
func (s *ImageStore) fileName(ownerID, imageType string, now time.Time) string {
	seed := fmt.Sprintf("%s_%d_%s_%s", ownerID, now.Unix(), imageType, s.random())
	return fmt.Sprintf("colors_%s_%x.%s", ownerID, md5.Sum([]byte(seed)), imageType)
}

// decodeBase64 accepts padded and unpadded standard base64
func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
