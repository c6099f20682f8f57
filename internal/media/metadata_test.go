package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func newTestImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.Black)
	img.Set(1, 0, color.White)
	img.Set(2, 2, color.RGBA{R: 200, A: 255})
	return img
}

// withComment inserts a JPEG COM segment right after SOI, standing in for
// an EXIF block.
func withComment(t *testing.T, jpg []byte, comment string) []byte {
	t.Helper()
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatal("not a jpeg")
	}
	n := len(comment) + 2
	seg := append([]byte{0xFF, 0xFE, byte(n >> 8), byte(n)}, comment...)
	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name, contentType string
		want              Kind
	}{
		{"scan.JPG", "", JPEG},
		{"scan.jpeg", "application/octet-stream", JPEG},
		{"scan", "image/jpeg", JPEG},
		{"receipt.png", "", PNG},
		{"letter.pdf", "application/pdf", Other},
		{"photo.gif", "image/gif", Other},
	}
	for _, tc := range cases {
		if got := KindOf(tc.name, tc.contentType); got != tc.want {
			t.Errorf("KindOf(%q, %q) = %v, want %v", tc.name, tc.contentType, got, tc.want)
		}
	}
}

func TestStripJPEGDropsSegments(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, newTestImage(), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	data := withComment(t, buf.Bytes(), "GPS 51.5N 0.12W")

	out, err := StripMetadata(data, JPEG)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if bytes.Contains(out, []byte("GPS 51.5N")) {
		t.Error("expected comment segment removed")
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
}

func TestStripPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, newTestImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := StripMetadata(buf.Bytes(), PNG)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
}

func TestPassthroughOther(t *testing.T) {
	data := []byte("%PDF-1.7 fake")
	out, err := StripMetadata(data, Other)
	if err != nil {
		t.Fatalf("StripMetadata: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("non-image data should pass through unchanged")
	}
}

func TestCorruptImages(t *testing.T) {
	for _, k := range []Kind{JPEG, PNG} {
		if _, err := StripMetadata([]byte("not an image"), k); err == nil {
			t.Errorf("expected error for corrupt data of kind %v", k)
		}
	}
}
