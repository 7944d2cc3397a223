package raster_test

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"regiondiff/internal/raster"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestBlend(t *testing.T) {
	type in struct {
		base    color.RGBA
		opacity float64
		over    color.RGBA
	}

	tests := []struct {
		name string
		in   in
		want color.RGBA
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{blue, 0, red},
			blue,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{blue, 1, red},
			red,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{color.RGBA{R: 100, G: 100, B: 100, A: 255}, 0.5, color.RGBA{R: 200, G: 0, B: 101, A: 255}},
			color.RGBA{R: 150, G: 50, B: 101, A: 255},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{blue, 1.7, red},
			red,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{blue, -0.3, red},
			blue,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := raster.Filled(3, 2, in.base)
			got := raster.Blend(src, in.opacity, in.over)
			if diff := cmp.Diff(want, got.RGBAAt(2, 1)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(in.base, src.RGBAAt(2, 1)); diff != "" {
				t.Errorf("source was mutated (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCropAndPaste(t *testing.T) {
	b := raster.Filled(10, 10, blue)
	patch := raster.Filled(3, 4, red)
	b.Paste(patch, image.Point{X: 5, Y: 2})

	crop := b.Crop(image.Rect(5, 2, 8, 6))
	if !crop.Equal(patch) {
		t.Errorf("crop of pasted area differs from patch")
	}
	if diff := cmp.Diff(image.Rect(0, 0, 3, 4), crop.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(blue, b.RGBAAt(4, 2)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(blue, b.RGBAAt(8, 6)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	crop.SetRGBA(0, 0, blue)
	if diff := cmp.Diff(red, b.RGBAAt(5, 2)); diff != "" {
		t.Errorf("crop aliases its source (-want +got):\n%s", diff)
	}
}

func TestFromImageRebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 14, 23))
	src.SetRGBA(10, 20, red)

	b := raster.FromImage(src)
	if diff := cmp.Diff(image.Rect(0, 0, 4, 3), b.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(red, b.RGBAAt(0, 0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestBufferIsImage(t *testing.T) {
	b := raster.Filled(8, 8, blue)
	b.SetRGBA(5, 6, red)

	var img image.Image = b.Crop(image.Rect(4, 4, 8, 8))
	if diff := cmp.Diff(image.Rect(0, 0, 4, 4), img.Bounds()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(color.Color(red), img.At(1, 2)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if img.ColorModel() != color.RGBAModel {
		t.Errorf("color model is not RGBA")
	}
	if !raster.FromImage(img).Equal(b.Crop(image.Rect(4, 4, 8, 8))) {
		t.Errorf("copy of the crop differs")
	}
}

func TestRegionEqual(t *testing.T) {
	a := raster.Filled(8, 8, blue)
	b := a.Clone()
	b.SetRGBA(6, 6, red)

	if !a.RegionEqual(b, image.Rect(0, 0, 6, 6)) {
		t.Errorf("untouched region reported different")
	}
	if a.RegionEqual(b, image.Rect(4, 4, 8, 8)) {
		t.Errorf("touched region reported equal")
	}
	if a.Equal(b) {
		t.Errorf("buffers reported equal")
	}
}

func TestNormalize(t *testing.T) {
	a := raster.Filled(4, 6, red)
	b := raster.Filled(5, 3, blue)

	na, nb := raster.Normalize(a, b, raster.White)
	for _, got := range []*raster.Buffer{na, nb} {
		if diff := cmp.Diff(image.Rect(0, 0, 5, 6), got.Bounds()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	}
	if diff := cmp.Diff(raster.White, na.RGBAAt(4, 0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(raster.White, nb.RGBAAt(0, 5)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(red, na.RGBAAt(3, 5)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	same, _ := raster.Normalize(a, a, raster.White)
	if same != a {
		t.Errorf("equal sizes should not be copied")
	}
}

func TestExtend(t *testing.T) {
	type want struct {
		width  int
		height int
	}

	tests := []struct {
		name   string
		width  int
		height int
		factor int
		want   want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			200, 200, 20,
			want{200, 200},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			1270, 2001, 20,
			want{1280, 2020},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			7, 9, 1,
			want{7, 9},
		},
	}

	for _, tt := range tests {
		name := tt.name
		width, height, factor := tt.width, tt.height, tt.factor
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := raster.Extend(raster.Filled(width, height, red), factor, raster.White)
			if diff := cmp.Diff(want.width, got.Width()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.height, got.Height()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrimRight(t *testing.T) {
	got := raster.TrimRight(raster.Filled(1280, 10, red), 10)
	if got.Width() != 1270 || got.Height() != 10 {
		t.Errorf("size = %dx%d, want 1270x10", got.Width(), got.Height())
	}

	small := raster.Filled(5, 5, red)
	if raster.TrimRight(small, 10) != small {
		t.Errorf("trimming more than the width should be a no-op")
	}
}

func TestCodec(t *testing.T) {
	b := raster.Filled(9, 7, color.RGBA{R: 12, G: 34, B: 56, A: 255})
	b.SetRGBA(3, 3, red)

	for _, format := range []string{"png", "qoi"} {
		data, err := raster.Encode(b, format)
		if err != nil {
			t.Fatal(err)
		}
		got, gotFormat, err := raster.Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if gotFormat != format {
			t.Errorf("format = %s, want %s", gotFormat, format)
		}
		if !got.Equal(b) {
			t.Errorf("%s: decoded pixels differ", format)
		}
	}

	if _, _, err := raster.Decode([]byte("not an image")); !errors.Is(err, raster.DecodeError) {
		t.Errorf("err = %v, want %v", err, raster.DecodeError)
	}
	if _, err := raster.Encode(b, "tga"); !errors.Is(err, raster.EncodeError) {
		t.Errorf("err = %v, want %v", err, raster.EncodeError)
	}
}
