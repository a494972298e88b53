// Package pdf turns scanned answer-sheet PDFs into page images so they can be
// submitted as one recognition batch.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// ErrNoImages is returned when the selected pages embed no decodable image.
var ErrNoImages = errors.New("pdf contains no page images")

// Options selects what is extracted.
type Options struct {
	// Pages is a range like "1-3,5"; empty means all pages.
	Pages string
	// UserPassword and OwnerPassword open encrypted documents.
	UserPassword  string
	OwnerPassword string
}

// PageImage is one embedded image with the page it came from.
type PageImage struct {
	Page  int
	Name  string
	Image image.Image
}

// ExtractFile reads a PDF from disk.
func ExtractFile(filename string, opts Options) ([]PageImage, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // G304: reading a user-provided PDF is expected
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return Extract(bytes.NewReader(data), opts)
}

// Extract returns the embedded images of the selected pages ordered by page,
// then by their order on the page. Scanners embed one image per page, so the
// result is usually one image per sheet.
func Extract(rs io.ReadSeeker, opts Options) ([]PageImage, error) {
	pages, err := parsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}
	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	var out []PageImage
	digest := func(img model.Image, _ bool, _ int) error {
		if img.Reader == nil {
			return nil
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return err
		}
		decoded, _, err := utils.DecodeImage(data)
		if err != nil {
			// Masks and exotic colour spaces do not decode; they are never the page scan.
			slog.Debug("skipping pdf image", "page", img.PageNr, "name", img.Name, "type", img.FileType, "error", err)
			return nil
		}
		out = append(out, PageImage{Page: img.PageNr, Name: img.Name, Image: decoded})
		return nil
	}

	if err := api.ExtractImages(rs, selected, digest, configuration(opts)); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out, nil
}

func configuration(opts Options) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if opts.UserPassword != "" {
		conf.UserPW = opts.UserPassword
	}
	if opts.OwnerPassword != "" {
		conf.OwnerPW = opts.OwnerPassword
	}
	return conf
}

// IsPasswordError reports whether err came from a missing or wrong password.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"password", "encrypted", "decrypt"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if pageRange == "" {
		return nil, nil // all pages
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 || start > end {
			return nil, fmt.Errorf("invalid page range %d-%d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
