package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"
)

const sourcePDF = "source.pdf"

// Rasterizer renders every page of a PDF to an encoded PNG image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

// MagickRasterizer renders pages through ImageMagick.
type MagickRasterizer struct{}

func (MagickRasterizer) Rasterize(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "manifest-render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, sourcePDF)
	if err := os.WriteFile(pdfPath, pdf, 0600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer pdfDoc.Close()

	renderer, err := image.NewImageMagickRenderer(config.ImageConfig{
		Format: "png",
		DPI:    dpi,
		Options: map[string]any{
			"background": "white",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	allPages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	images := make([][]byte, len(allPages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renderWorkerCount(len(allPages)))

	for i, page := range allPages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			data, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", i+1, err)
			}
			images[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return images, nil
}

func renderWorkerCount(pageCount int) int {
	return max(min(runtime.NumCPU(), pageCount), 1)
}
