package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/insightdelivered/upi-statement-analyzer/internal/logger"
)

// The external backends shell out to poppler-utils and tesseract. They need
// the document on disk, so each call spills the bytes to a temp directory
// that is removed afterwards.

// pdftotextBackend runs `pdftotext -layout` page by page.
type pdftotextBackend struct{}

func (pdftotextBackend) Name() string { return "pdftotext" }

func (pdftotextBackend) Extract(ctx context.Context, doc *Document) (*Content, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}
	dir, path, err := spill(doc)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	args := func(extra ...string) []string {
		a := append([]string{"-layout"}, passwordArgs(doc)...)
		return append(append(a, extra...), path, "-")
	}

	c := &Content{Method: "pdftotext"}
	for n := 1; n <= doc.pages; n++ {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		page := strconv.Itoa(n)
		out, err := exec.CommandContext(ctx, "pdftotext", args("-f", page, "-l", page)...).Output()
		if err != nil {
			c.Errors = append(c.Errors, fmt.Sprintf("pdftotext: page %d: %v", n, err))
			continue
		}
		c.PagesProcessed++
		if lines := splitLines(string(out)); len(lines) > 0 {
			c.Pages = append(c.Pages, Page{Number: n, Lines: lines})
		}
	}
	if len(c.Pages) == 0 && len(c.Errors) == doc.pages {
		return c, fmt.Errorf("pdftotext failed on every page")
	}
	return c, nil
}

// ocrBackend renders pages with pdftoppm and reads them with tesseract. It is
// the only path for scanned statements with no text layer.
type ocrBackend struct{}

func (ocrBackend) Name() string { return "ocr" }

func (ocrBackend) Extract(ctx context.Context, doc *Document) (*Content, error) {
	log := logger.FromContext(ctx)
	for _, tool := range []string{"pdftoppm", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, fmt.Errorf("%s not available: %w", tool, err)
		}
	}
	dir, path, err := spill(doc)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	args := append([]string{"-r", "300", "-png"}, passwordArgs(doc)...)
	if out, err := exec.CommandContext(ctx, "pdftoppm", append(args, path, prefix)...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %v (output: %s)", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}
	sort.Strings(images)

	c := &Content{Method: "ocr"}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		base := strings.TrimSuffix(img, ".png") + "-ocr"
		// PSM 4: a single column of text of variable sizes.
		if out, err := exec.CommandContext(ctx, "tesseract", img, base, "-l", "eng", "--psm", "4").CombinedOutput(); err != nil {
			log.Warn().Int("page", i+1).Err(err).Str("output", strings.TrimSpace(string(out))).Msg("tesseract failed")
			c.Errors = append(c.Errors, fmt.Sprintf("ocr: page %d: %v", i+1, err))
			continue
		}
		data, err := os.ReadFile(base + ".txt")
		if err != nil {
			c.Errors = append(c.Errors, fmt.Sprintf("ocr: page %d: %v", i+1, err))
			continue
		}
		c.PagesProcessed++
		if lines := splitLines(sanitizeOCR(string(data))); len(lines) > 0 {
			c.Pages = append(c.Pages, Page{Number: i + 1, Lines: lines})
		}
	}
	return c, nil
}

func spill(doc *Document) (dir, path string, err error) {
	dir, err = os.MkdirTemp("", "statement-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	path = filepath.Join(dir, "statement.pdf")
	if err := os.WriteFile(path, doc.data, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return dir, path, nil
}

func passwordArgs(doc *Document) []string {
	if doc.password == "" {
		return nil
	}
	return []string{"-upw", doc.password}
}

var (
	ocrSemicolonDecimal = regexp.MustCompile(`(\d);\s*(\d)`)
	ocrTrailingColon    = regexp.MustCompile(`(\d):(\s|$)`)
	ocrRupeeAsPercent   = regexp.MustCompile(`(?m)(^|\s)%(\d)`)
)

// sanitizeOCR repairs the usual tesseract misreads in amounts: "1,234; 56"
// for "1,234.56" and a stray colon after a number. A rupee sign is often
// read as "%".
func sanitizeOCR(text string) string {
	text = ocrSemicolonDecimal.ReplaceAllString(text, "$1.$2")
	text = ocrTrailingColon.ReplaceAllString(text, "$1$2")
	text = ocrRupeeAsPercent.ReplaceAllString(text, "$1₹$2")
	return text
}
