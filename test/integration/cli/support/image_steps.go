package support

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// renderCode draws one symbol of the named symbology into the temp directory.
func (testCtx *TestContext) renderCode(name, kind, content string) (image.Image, error) {
	base, err := symbol.ParseBase(kind)
	if err != nil {
		return nil, err
	}
	img, err := testutil.Render(testutil.DefaultCode(base, content))
	if err != nil {
		return nil, err
	}
	return img, testCtx.saveImage(name, img)
}

func (testCtx *TestContext) saveImage(name string, img image.Image) error {
	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imaging.Save(img, path)
}

// anImageContaining creates e.g. `an image "label.png" containing ean13 "4006381333931"`.
func (testCtx *TestContext) anImageContaining(name, kind, content string) error {
	_, err := testCtx.renderCode(name, kind, content)
	return err
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.saveImage(name, imaging.New(160, 120, color.White))
}

// aFrameDirectoryWith writes n identical frames into dir.
func (testCtx *TestContext) aFrameDirectoryWith(dir string, n int, kind, content string) error {
	for i := range n {
		if _, err := testCtx.renderCode(filepath.Join(dir, fmt.Sprintf("frame%03d.png", i)), kind, content); err != nil {
			return err
		}
	}
	return nil
}

// aPDFContainingImage wraps an existing temp image into a one-page PDF.
func (testCtx *TestContext) aPDFContainingImage(name, imageName string) error {
	return api.ImportImagesFile([]string{testCtx.TempPath(imageName)}, testCtx.TempPath(name), nil, nil)
}

// RegisterImageSteps registers fixture step definitions.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" containing ([\w-]+) "([^"]*)"$`, testCtx.anImageContaining)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a frame directory "([^"]*)" with (\d+) frames of ([\w-]+) "([^"]*)"$`, testCtx.aFrameDirectoryWith)
	sc.Step(`^a PDF "([^"]*)" containing image "([^"]*)"$`, testCtx.aPDFContainingImage)
}
