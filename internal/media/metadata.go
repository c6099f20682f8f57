// Package media removes embedded metadata (EXIF, GPS, text chunks) from
// photographed documents before they leave the portal.
package media

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
)

// Kind classifies a file for stripping.
type Kind int

const (
	Other Kind = iota
	JPEG
	PNG
)

// KindOf uses the content type when the browser supplied one and falls back
// to the file extension.
func KindOf(name, contentType string) Kind {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return JPEG
	case "image/png":
		return PNG
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return JPEG
	case ".png":
		return PNG
	}
	return Other
}

// StripMetadata re-encodes images of kind k. Data of any other kind is
// returned unchanged.
func StripMetadata(data []byte, k Kind) ([]byte, error) {
	switch k {
	case JPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding jpeg: %w", err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		return buf.Bytes(), nil
	case PNG:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		return buf.Bytes(), nil
	}
	return data, nil
}
