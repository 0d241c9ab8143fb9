package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// IsResizable reports whether images of the given data-URI subtype can be
// downsized. GIFs are stored untouched so animations survive.
func IsResizable(subtype string) bool {
	switch subtype {
	case "jpg", "jpeg", "png":
		return true
	}
	return false
}

// OptimizeImage shrinks an image wider than maxWidth, keeping its aspect
// ratio and format. Images already narrow enough are returned unchanged.
func OptimizeImage(data []byte, maxWidth uint) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if maxWidth == 0 || uint(bounds.Dx()) <= maxWidth {
		return data, nil
	}

	// Resize using Lanczos3 for quality
	m := resize.Resize(maxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, m, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, m)
	default:
		return data, nil
	}

	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
