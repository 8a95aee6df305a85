// Package render turns PDF pages into PNG images for vision calls. Page
// counting uses pdfcpu; rasterization shells out to pdftoppm
// (poppler-utils), which handles the large mixed-content sheets of
// architectural plan sets better than pure-Go rasterizers.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultDPI balances legibility of title-block text against vision call
// payload size.
const DefaultDPI = 150

// ErrPageOutOfRange is returned for a page index outside [0, PageCount).
var ErrPageOutOfRange = errors.New("page index out of range")

// Renderer provides page counting and single-page rasterization. Page
// indices are 0-based to match the sampler's output.
type Renderer interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
	RenderPage(ctx context.Context, pdf []byte, pageIndex, dpi int) ([]byte, error)
}

// PopplerRenderer renders through the pdftoppm binary.
type PopplerRenderer struct{}

var _ Renderer = (*PopplerRenderer)(nil)

// NewPopplerRenderer creates the production renderer.
func NewPopplerRenderer() *PopplerRenderer { return &PopplerRenderer{} }

// PageCount returns the number of pages in the PDF.
func (r *PopplerRenderer) PageCount(_ context.Context, pdf []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return count, nil
}

// RenderPage rasterizes one page to PNG at the given DPI.
func (r *PopplerRenderer) RenderPage(ctx context.Context, pdf []byte, pageIndex, dpi int) ([]byte, error) {
	if pageIndex < 0 {
		return nil, ErrPageOutOfRange
	}
	count, err := r.PageCount(ctx, pdf)
	if err != nil {
		return nil, err
	}
	if pageIndex >= count {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pageIndex, count)
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	tmpDir, err := os.MkdirTemp("", "plancheck-page-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	// pdftoppm is 1-based; -singlefile drops the page number suffix.
	pageArg := fmt.Sprintf("%d", pageIndex+1)
	outputPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageArg,
		"-l", pageArg,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}
