package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
)

// PDFExtractor pulls text out of designation report PDFs using pdfcpu.
type PDFExtractor struct {
	logger  arbor.ILogger
	tempDir string
}

func NewPDFExtractor(logger arbor.ILogger) *PDFExtractor {
	if logger == nil {
		logger = common.GetLogger()
	}
	tempDir := filepath.Join(os.TempDir(), "vestigo-pdf")
	os.MkdirAll(tempDir, 0755)
	return &PDFExtractor{logger: logger, tempDir: tempDir}
}

// ExtractText returns the concatenated text of all pages in reading order.
func (e *PDFExtractor) ExtractText(path string) (string, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF '%s': %w", path, err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return "", fmt.Errorf("PDF '%s' has no pages", path)
	}

	outDir, err := os.MkdirTemp(e.tempDir, "extract")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract content from '%s': %w", path, err)
	}

	pageTexts := make(map[int]string)
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pageNum, ok := parsePageNumber(entry.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	pages := make([]int, 0, len(pageTexts))
	for pageNum := range pageTexts {
		pages = append(pages, pageNum)
	}
	sort.Ints(pages)

	var builder strings.Builder
	for i, pageNum := range pages {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(pageTexts[pageNum])
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", pageCount).
		Int("chars", builder.Len()).
		Msg("PDF text extracted")

	return builder.String(), nil
}

// PageCount returns the number of pages without extracting content.
func (e *PDFExtractor) PageCount(path string) (int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF '%s': %w", path, err)
	}
	return pdfCtx.PageCount, nil
}

// parsePageNumber recognizes the content file names pdfcpu writes.
func parsePageNumber(name string) (int, bool) {
	var pageNum int
	if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err == nil {
		return pageNum, true
	}
	if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err == nil {
		return pageNum, true
	}
	return 0, false
}
