package support

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/omr/internal/testutil"
)

var optionLetters = "ABCD"

// anExamTemplate writes a layout of n pages as {template}.
func (testCtx *TestContext) anExamTemplate(pages int) error {
	testCtx.Fixture = testutil.NewSheetFixture(pages)
	path := testCtx.TempPath("exam.json")
	if err := testCtx.Fixture.WriteTemplate(path); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	testCtx.Vars["template"] = path
	return nil
}

// optionIsFilled marks options such as "B" or "A,D" of group on a page (1-based).
func (testCtx *TestContext) optionIsFilled(options, group string, page int) error {
	if testCtx.Fixture == nil {
		return errors.New("no exam template in this scenario")
	}
	if page < 1 || page > len(testCtx.Fixture.Marks) {
		return fmt.Errorf("page %d out of range", page)
	}
	for _, o := range strings.Split(options, ",") {
		i := strings.Index(optionLetters, strings.TrimSpace(o))
		if i < 0 {
			return fmt.Errorf("unknown option %q", o)
		}
		testCtx.Fixture.Mark(page-1, group, i)
	}
	return nil
}

// aPhotographOfPage writes the photograph of a page (1-based) as {photoN}.
func (testCtx *TestContext) aPhotographOfPage(page int) error {
	if testCtx.Fixture == nil {
		return errors.New("no exam template in this scenario")
	}
	name := fmt.Sprintf("photo%d", page)
	path := testCtx.TempPath(name + ".png")
	if err := testCtx.Fixture.WritePhoto(path, page-1); err != nil {
		return fmt.Errorf("write photograph: %w", err)
	}
	testCtx.Vars[name] = path
	return nil
}

// aScannedPDF bundles the photographs of every page into {pdf}.
func (testCtx *TestContext) aScannedPDF() error {
	if testCtx.Fixture == nil {
		return errors.New("no exam template in this scenario")
	}
	var photos []string
	for p := range testCtx.Fixture.Marks {
		if err := testCtx.aPhotographOfPage(p + 1); err != nil {
			return err
		}
		photos = append(photos, testCtx.Vars[fmt.Sprintf("photo%d", p+1)])
	}
	path := testCtx.TempPath("scan.pdf")
	if err := api.ImportImagesFile(photos, path, nil, nil); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	testCtx.Vars["pdf"] = path
	return nil
}

// aPhotographOfAnUnrelatedDocument writes a text page as {document}.
func (testCtx *TestContext) aPhotographOfAnUnrelatedDocument() error {
	img := testutil.TextPage(1080, 1480,
		"Minutes of the staff meeting",
		"1. Timetable for the spring term",
		"2. Any other business",
	)
	path := testCtx.TempPath("document.png")
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	testCtx.Vars["document"] = path
	return nil
}

// anUnreadableImageFile writes bytes that no decoder accepts as {junk}.
func (testCtx *TestContext) anUnreadableImageFile() error {
	path := testCtx.TempPath("junk.png")
	if err := os.WriteFile(path, []byte("definitely not an image"), 0o600); err != nil {
		return err
	}
	testCtx.Vars["junk"] = path
	return nil
}

// RegisterSheetSteps registers the fixture steps.
func (testCtx *TestContext) RegisterSheetSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an? (\d+)-page exam template$`, testCtx.anExamTemplate)
	sc.Step(`^option "([^"]*)" of "([^"]*)" is filled on page (\d+)$`, testCtx.optionIsFilled)
	sc.Step(`^options "([^"]*)" of "([^"]*)" are filled on page (\d+)$`, testCtx.optionIsFilled)
	sc.Step(`^a photograph of page (\d+)$`, testCtx.aPhotographOfPage)
	sc.Step(`^a scanned PDF of every page$`, testCtx.aScannedPDF)
	sc.Step(`^a photograph of an unrelated document$`, testCtx.aPhotographOfAnUnrelatedDocument)
	sc.Step(`^an unreadable image file$`, testCtx.anUnreadableImageFile)
}
