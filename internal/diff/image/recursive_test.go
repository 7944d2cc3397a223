package image

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"regiondiff/internal/phash"
	"regiondiff/internal/raster"

	"github.com/google/go-cmp/cmp"
)

var (
	gray = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func newRecursive(t *testing.T, algorithm phash.Algorithm, opts ...Option) *RecursiveDiff {
	t.Helper()
	d, err := NewRecursiveDiff(algorithm, DefaultThreshold, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRecursiveDiff_Calculate(t *testing.T) {
	t.Run("IdenticalImages", func(t *testing.T) {
		for _, algorithm := range phash.Algorithms() {
			baseline := createGradientImage(256, 256)
			target := baseline.Clone()

			result, err := newRecursive(t, algorithm).Calculate(baseline, target)
			if err != nil {
				t.Fatal(err)
			}
			if result.Report.Dissimilar != 0 {
				t.Errorf("%s: Dissimilar = %d, want 0", algorithm, result.Report.Dissimilar)
			}
			if result.Report.Compared != 1 {
				t.Errorf("%s: Compared = %d, want 1", algorithm, result.Report.Compared)
			}
			if result.DiffAmount != 0 {
				t.Errorf("%s: DiffAmount = %f, want 0", algorithm, result.DiffAmount)
			}
			if !result.Image.Equal(baseline) {
				t.Errorf("%s: output differs from the baseline", algorithm)
			}
		}
	})

	t.Run("AlteredBlock", func(t *testing.T) {
		block := image.Rect(64, 64, 96, 96)
		baseline := createTestImage(256, 256, gray)
		fillRect(baseline, block, red)
		target := createTestImage(256, 256, gray)
		fillRect(target, block, blue)

		result, err := newRecursive(t, phash.Average).Calculate(baseline, target)
		if err != nil {
			t.Fatal(err)
		}

		if result.Report.Dissimilar == 0 {
			t.Fatalf("Dissimilar = 0, want > 0")
		}
		if len(result.Report.Regions) != result.Report.Dissimilar {
			t.Errorf("len(Regions) = %d, Dissimilar = %d", len(result.Report.Regions), result.Report.Dissimilar)
		}

		neighbourhood := image.Rect(64-17, 64-17, 96+17, 96+17)
		overlapping := 0
		for _, marked := range result.Report.Regions {
			if !marked.Rect().In(neighbourhood) {
				t.Errorf("marked region %s is far from the altered block", marked.Region)
			}
			if marked.Rect().Overlaps(block) {
				overlapping++
			}

			want := raster.Blend(baseline.Crop(image.Rect(marked.X1, marked.Y1, marked.X1+1, marked.Y1+1)), marked.Opacity, Salmon)
			if diff := cmp.Diff(want.RGBAAt(0, 0), result.Image.RGBAAt(marked.X1, marked.Y1)); diff != "" {
				t.Errorf("%s is not blended (-want +got):\n%s", marked.Region, diff)
			}
		}
		if overlapping == 0 {
			t.Errorf("no marked region overlaps the altered block")
		}
		assertDisjoint(t, result.Report.Regions)

		if diff := cmp.Diff(gray, result.Image.RGBAAt(200, 10)); diff != "" {
			t.Errorf("untouched area was painted (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(red, baseline.RGBAAt(70, 70)); diff != "" {
			t.Errorf("baseline was mutated (-want +got):\n%s", diff)
		}
	})

	t.Run("FullyDissimilar", func(t *testing.T) {
		baseline := createGradientImage(64, 48)
		target := mirror(baseline)

		result, err := newRecursive(t, phash.Difference).Calculate(baseline, target)
		if err != nil {
			t.Fatal(err)
		}
		if result.Report.Dissimilar == 0 {
			t.Fatalf("Dissimilar = 0, want > 0")
		}
		// Leaves cannot be smaller than half the threshold on either side.
		if bound := (64 / 4) * (48 / 4); result.Report.Dissimilar > bound {
			t.Errorf("Dissimilar = %d, want <= %d", result.Report.Dissimilar, bound)
		}
		assertDisjoint(t, result.Report.Regions)

		var total float64
		for _, marked := range result.Report.Regions {
			total += marked.Percent
		}
		if diff := cmp.Diff(total/float64(result.Report.Dissimilar), result.Report.AverageDissimilarity); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(result.Report.AverageDissimilarity/100, result.DiffAmount); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("HashCollision", func(t *testing.T) {
		baseline := createGradientImage(32, 32)

		result, err := newRecursive(t, phash.Perceptual, WithDiscriminator(neverEqual{})).Calculate(baseline, baseline.Clone())
		if err != nil {
			t.Fatal(err)
		}
		want := []MarkedRegion{{Region: Region{0, 0, 32, 32}, Distance: 0, Percent: 0, Opacity: 0.3}}
		if diff := cmp.Diff(want, result.Report.Regions); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("TinyImages", func(t *testing.T) {
		d := newRecursive(t, phash.Average)

		same, err := d.Calculate(createTestImage(5, 5, red), createTestImage(5, 5, red))
		if err != nil {
			t.Fatal(err)
		}
		if same.Report.Dissimilar != 0 {
			t.Errorf("Dissimilar = %d, want 0", same.Report.Dissimilar)
		}

		different, err := d.Calculate(createTestImage(5, 5, red), createTestImage(5, 5, blue))
		if err != nil {
			t.Fatal(err)
		}
		if different.Report.Dissimilar != 1 {
			t.Errorf("Dissimilar = %d, want 1", different.Report.Dissimilar)
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		result, err := newRecursive(t, phash.Average).Calculate(createTestImage(100, 100, red), createTestImage(100, 200, red))
		if !errors.Is(err, SizeMismatchError) {
			t.Errorf("err = %v, want %v", err, SizeMismatchError)
		}
		if result != nil {
			t.Errorf("result = %v, want nil", result)
		}
	})
}

func TestNewRecursiveDiff(t *testing.T) {
	if _, err := NewRecursiveDiff(phash.Average, 0); !errors.Is(err, InvalidThresholdError) {
		t.Errorf("err = %v, want %v", err, InvalidThresholdError)
	}
	if _, err := NewRecursiveDiff(phash.Algorithm(0), 8); !errors.Is(err, phash.UnknownAlgorithmError) {
		t.Errorf("err = %v, want %v", err, phash.UnknownAlgorithmError)
	}
}

func TestDiscriminators(t *testing.T) {
	baseline := createTestImage(16, 16, gray)
	target := baseline.Clone()
	target.SetRGBA(10, 10, red)
	region := Region{8, 8, 16, 16}

	if !DefaultDiscriminator.Equal(baseline, target, region) {
		t.Errorf("sample pixel should not see (10,10)")
	}
	if ExactPixels.Equal(baseline, target, region) {
		t.Errorf("exact comparison should see (10,10)")
	}
	if (SamplePixel{X: 2, Y: 2}).Equal(baseline, target, region) {
		t.Errorf("sample at (2,2) should see (10,10)")
	}
	// The sample offset is clamped into a 1x1 region.
	if (SamplePixel{X: 2, Y: 3}).Equal(baseline, target, Region{10, 10, 11, 11}) {
		t.Errorf("clamped sample should see (10,10)")
	}

	d, err := ParseDiscriminator("exact")
	if err != nil {
		t.Fatal(err)
	}
	if d != ExactPixels {
		t.Errorf("ParseDiscriminator(exact) = %v", d)
	}
	if _, err := ParseDiscriminator("grid"); err == nil {
		t.Errorf("expected an error for an unknown discriminator")
	}
}

func BenchmarkRecursiveDiff_Calculate(b *testing.B) {
	d, err := NewRecursiveDiff(phash.Average, DefaultThreshold)
	if err != nil {
		b.Fatal(err)
	}
	baseline := createGradientImage(1280, 720)
	target := baseline.Clone()
	fillRect(target, image.Rect(600, 300, 680, 380), red)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Calculate(baseline, target); err != nil {
			b.Fatal(err)
		}
	}
}
