package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tieubaoca/contract-analyzer/normalize"
	"github.com/tieubaoca/contract-analyzer/types"
)

// DocumentParser turns raw uploaded bytes into a paged Document with
// character offsets. The rest of the pipeline consumes the offsets as-is and
// never re-derives them.
type DocumentParser interface {
	Parse(ctx context.Context, raw []byte, filename string) (*types.Document, error)
}

// minTextPerPage is the average characters-per-page threshold below which a
// document is flagged as likely needing OCR. OCR itself is not performed.
const minTextPerPage = 50

// PDFService extracts text page by page with the poppler utilities
// (pdfinfo, pdftotext).
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

func (s *PDFService) Parse(ctx context.Context, raw []byte, filename string) (*types.Document, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}

	tmp, err := os.CreateTemp("", "contract-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	tmp.Close()

	totalPages, err := getNumPages(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if totalPages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrParse)
	}

	pages := make([]types.Page, 0, totalPages)
	charOffset := 0
	totalTextLength := 0
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := extractPageText(ctx, tmp.Name(), pageNum)
		if err != nil {
			// Scanned pages yield nothing; keep the page so offsets and
			// page numbers stay aligned with the source.
			text = ""
		}
		cleaned := cleanText(text)

		charStart := charOffset
		charEnd := charOffset + len(cleaned)
		charOffset = charEnd + 2 // "\n\n" separator between pages

		pages = append(pages, types.Page{
			PageNumber:     pageNum,
			RawText:        cleaned,
			NormalizedText: normalize.Normalize(cleaned),
			CharStart:      charStart,
			CharEnd:        charEnd,
			WordCount:      len(strings.Fields(cleaned)),
		})
		totalTextLength += len(strings.TrimSpace(cleaned))
	}

	avgPerPage := totalTextLength / len(pages)
	needsOCR := avgPerPage < minTextPerPage

	return &types.Document{
		DocID:     uuid.NewString(),
		Filename:  filename,
		PageCount: len(pages),
		Pages:     pages,
		Metadata: map[string]interface{}{
			"parser":             "pdftotext",
			"needs_ocr":          needsOCR,
			"avg_chars_per_page": avgPerPage,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// extractPageText extracts one page using the pdftotext utility.
func extractPageText(ctx context.Context, filePath string, pageNumber int) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext",
		"-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		filePath, "-")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed on page %d: %w", pageNumber, err)
	}
	return out.String(), nil
}

// getNumPages uses pdfinfo to read the page count.
func getNumPages(ctx context.Context, pdfPath string) (int, error) {
	cmd := exec.CommandContext(ctx, "pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %w", err)
	}

	re := regexp.MustCompile(`Pages:\s+(\d+)`)
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		if matches := re.FindStringSubmatch(scanner.Text()); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}

	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\x00":   "",   // null character
		"\uFFFD": "",   // unicode replacement character
		"\x1b":   "",   // escape character
		"\r":     "",   // carriage return
		"\f":     "\n", // form feed to newline
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}

	// Collapse runs of blank lines and horizontal whitespace without
	// destroying line structure.
	cleaned = regexp.MustCompile(`\n{3,}`).ReplaceAllString(cleaned, "\n\n")
	cleaned = regexp.MustCompile(`[ \t]+`).ReplaceAllString(cleaned, " ")

	return strings.TrimSpace(cleaned)
}
