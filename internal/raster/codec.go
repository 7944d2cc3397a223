package raster

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/xfmoulet/qoi"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

var (
	DecodeError = errors.New("failed to decode image")
	EncodeError = errors.New("failed to encode image")
)

const jpegQuality = 90

// Decode reads any registered format. The second return value is the format name.
func Decode(data []byte) (*Buffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", xerrors.Errorf("%v: %w", err, DecodeError)
	}
	if img.Bounds().Empty() {
		return nil, "", xerrors.Errorf("image has no pixels: %w", DecodeError)
	}
	return FromImage(img), format, nil
}

// Formats lists the formats Encode accepts.
func Formats() []string {
	return []string{"png", "jpeg", "qoi"}
}

// NormalizeFormat maps a format name or file extension onto one of Formats.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return "png", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "qoi":
		return "qoi", nil
	default:
		return "", xerrors.Errorf("unsupported format %q: %w", format, EncodeError)
	}
}

func Extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "qoi":
		return "image/qoi"
	default:
		return "image/png"
	}
}

func Encode(b *Buffer, format string) ([]byte, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, b.rgba)
	case "jpeg":
		err = jpeg.Encode(&buf, b.rgba, &jpeg.Options{Quality: jpegQuality})
	case "qoi":
		err = qoi.Encode(&buf, b.rgba)
	}
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, EncodeError)
	}
	return buf.Bytes(), nil
}

func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", path, err)
	}
	b, _, err := Decode(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to load %s: %w", path, err)
	}
	return b, nil
}

// Save encodes b in the format implied by the extension of path.
func Save(b *Buffer, path string) error {
	data, err := Encode(b, filepath.Ext(path))
	if err != nil {
		return xerrors.Errorf("failed to save %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return xerrors.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
