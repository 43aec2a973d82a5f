package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/zbargo/internal/raster"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateImages   = flag.Bool("images", true, "Generate barcode images and their variants")
		generateFrames   = flag.Bool("frames", true, "Generate .zbf frame containers")
		generateFixtures = flag.Bool("fixtures", true, "Generate JSON fixtures")
		outDir           = flag.String("out", "", "Output directory (default: <project root>/testdata)")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate barcode test data for zbarimg.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -frames=false            # Images and fixtures only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/zbar-samples   # Write somewhere else\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	layout := testutil.Layout{Root: *outDir}
	if layout.Root == "" {
		var err error
		if layout, err = testutil.DefaultLayout(); err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
	}
	if *verbose {
		slog.Info("Options", "images", *generateImages, "frames", *generateFrames,
			"fixtures", *generateFixtures, "out", layout.Root)
	}

	if *generateImages {
		if err := generateTestImages(layout); err != nil {
			slog.Error("Failed to generate test images", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated barcode images")
	}

	if *generateFrames {
		if err := generateTestFrames(layout); err != nil {
			slog.Error("Failed to generate frames", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated frame containers")
	}

	if *generateFixtures {
		if err := generateTestFixtures(layout); err != nil {
			slog.Error("Failed to generate test fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated test fixtures")
	}

	slog.Info("Test data generation completed")
}

// generateTestImages renders each sample plainly, labelled, rotated and with noise.
func generateTestImages(layout testutil.Layout) error {
	for _, s := range testutil.Samples() {
		sub := layout.SampleDir(s.Name)
		if err := testutil.EnsureDir(sub); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}

		variants := map[string]testutil.Code{"plain": s.Code}
		labelled := s.Code
		labelled.Label = true
		variants["label"] = labelled
		for _, angle := range []float64{90, 180, 270} {
			rotated := s.Code
			rotated.Rotate = angle
			variants[fmt.Sprintf("rot%.0f", angle)] = rotated
		}

		for variant, code := range variants {
			img, err := testutil.Render(code)
			if err != nil {
				return fmt.Errorf("failed to render %s/%s: %w", s.Name, variant, err)
			}
			if err := saveImage(img, layout.Image(s.Name, variant)); err != nil {
				return err
			}
		}

		img, err := testutil.Render(s.Code)
		if err != nil {
			return err
		}
		if err := saveImage(testutil.AddNoise(img, 0.05), layout.Image(s.Name, "noisy")); err != nil {
			return err
		}
		slog.Debug("rendered sample", "name", s.Name, "variants", len(variants)+1)
	}
	return nil
}

// generateTestFrames writes each sample as a three frame Y800 recording and a
// single UYVY frame.
func generateTestFrames(layout testutil.Layout) error {
	if err := testutil.EnsureDir(layout.FramesDir()); err != nil {
		return fmt.Errorf("failed to create frames directory: %w", err)
	}
	for _, s := range testutil.Samples() {
		img, err := testutil.Render(s.Code)
		if err != nil {
			return err
		}
		gray, err := raster.FromImage(img)
		if err != nil {
			return err
		}

		frames := make([]*raster.Image, 3)
		for i := range frames {
			f, err := raster.Convert(gray, raster.Y800)
			if err != nil {
				return err
			}
			f.Sequence = i
			frames[i] = f
		}
		if err := writeFrames(layout.Recording(s.Name, raster.Y800), frames...); err != nil {
			return err
		}

		uyvy, err := raster.Convert(gray, raster.UYVY)
		if err != nil {
			return err
		}
		if err := writeFrames(layout.Recording(s.Name, raster.UYVY), uyvy); err != nil {
			return err
		}
	}
	return nil
}

// generateTestFixtures writes one fixture per sample, pointing at its plain image.
func generateTestFixtures(layout testutil.Layout) error {
	if err := testutil.EnsureDir(layout.FixturesDir()); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	for _, s := range testutil.Samples() {
		img, err := testutil.Render(s.Code)
		if err != nil {
			return err
		}
		input, err := layout.Rel(layout.Image(s.Name, "plain"))
		if err != nil {
			return err
		}
		if err := saveFixture(s.Fixture(input, img), layout); err != nil {
			return fmt.Errorf("failed to save fixture '%s': %w", s.Name, err)
		}
	}
	return nil
}

func saveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeFrames(path string, frames ...*raster.Image) error {
	file, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	for _, f := range frames {
		if err := raster.WriteFrame(file, f); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write frame to %s: %w", path, err)
		}
	}
	return file.Close()
}

func saveFixture(fixture testutil.TestFixture, layout testutil.Layout) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(layout.Fixture(fixture.Name), data, 0o600)
}
