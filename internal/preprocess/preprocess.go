// Package preprocess recovers the text of a ticket file. PDFs with a usable
// text layer are read directly; everything else is rasterized and run
// through the recognizer under successive enhancement passes until one
// yields enough text.
package preprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/tickets"
)

// Preprocessor turns ticket files into recovered documents.
type Preprocessor struct {
	cfg        *Config
	recognizer recovery.Recognizer
	rasterizer Rasterizer
	logger     *slog.Logger
}

// New creates a Preprocessor. A nil rasterizer selects ImageMagick.
func New(cfg *Config, recognizer recovery.Recognizer, rasterizer Rasterizer, logger *slog.Logger) *Preprocessor {
	if rasterizer == nil {
		rasterizer = MagickRasterizer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		cfg:        cfg,
		recognizer: recognizer,
		rasterizer: rasterizer,
		logger:     logger.With("system", "preprocess"),
	}
}

// DetectKind sniffs the content kind of data. The declared content type only
// decides when the bytes are inconclusive.
func DetectKind(contentType string, data []byte) tickets.Kind {
	if bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return tickets.KindPDF
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return tickets.KindImage
	}
	if strings.HasPrefix(strings.ToLower(contentType), "application/pdf") {
		return tickets.KindPDF
	}
	return tickets.KindUnknown
}

// Recover extracts the text of f. Unreadable input never produces an error:
// it comes back as a document with DecodeFailure set. Errors are returned
// only for context cancellation and an unavailable OCR engine.
func (p *Preprocessor) Recover(ctx context.Context, f tickets.File) (tickets.RecoveredDocument, error) {
	logger := p.logger.With("file_id", f.ID, "filename", f.Name)

	kind := f.Kind
	if kind == "" || kind == tickets.KindUnknown {
		kind = DetectKind(f.ContentType, f.Data)
	}

	var (
		doc tickets.RecoveredDocument
		err error
	)
	switch kind {
	case tickets.KindPDF:
		doc, err = p.recoverPDF(ctx, f.Data, logger)
	case tickets.KindImage:
		doc, err = p.recoverPages(ctx, [][]byte{f.Data}, logger)
	default:
		doc = failure("unsupported file type")
	}
	if err != nil {
		return tickets.RecoveredDocument{}, err
	}

	if doc.DecodeFailure {
		logger.WarnContext(ctx, "file unreadable", "reason", doc.Reason)
	} else {
		logger.InfoContext(ctx, "text recovered", "pages", doc.Pages, "chars", len(doc.Text()))
	}
	return doc, nil
}

func (p *Preprocessor) recoverPDF(ctx context.Context, data []byte, logger *slog.Logger) (tickets.RecoveredDocument, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return failure(fmt.Sprintf("invalid pdf: %v", err)), nil
	}
	if count == 0 {
		return failure("invalid pdf: no pages"), nil
	}

	if !p.cfg.DisableTextLayer {
		pages, err := textLayer(data)
		if err != nil {
			logger.DebugContext(ctx, "text layer unreadable", "error", err)
		} else if countText(strings.Join(pages, "\n")) >= p.cfg.MinTextChars {
			doc := tickets.RecoveredDocument{Pages: count}
			for i, text := range pages {
				doc.Fragments = append(doc.Fragments, tickets.Fragment{
					Page:       i + 1,
					Pass:       PassTextLayer,
					Text:       text,
					Confidence: recovery.Confidence(text),
				})
			}
			return doc, nil
		}
	}

	images, err := p.rasterizer.Rasterize(ctx, data, p.cfg.DPI)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tickets.RecoveredDocument{}, ctxErr
		}
		return failure(fmt.Sprintf("render failed: %v", err)), nil
	}

	return p.recoverPages(ctx, images, logger)
}

func (p *Preprocessor) recoverPages(ctx context.Context, images [][]byte, logger *slog.Logger) (tickets.RecoveredDocument, error) {
	doc := tickets.RecoveredDocument{Pages: len(images)}

	var lastErr error
	for i, img := range images {
		frag, err := p.recognizePage(ctx, i+1, img, logger)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return tickets.RecoveredDocument{}, ctxErr
			}
			if errors.Is(err, recovery.ErrEngineUnavailable) {
				return tickets.RecoveredDocument{}, err
			}
			lastErr = err
			continue
		}
		doc.Fragments = append(doc.Fragments, frag)
	}

	if len(doc.Fragments) == 0 {
		if lastErr != nil {
			return failure(lastErr.Error()), nil
		}
		return failure("no pages recovered"), nil
	}
	return doc, nil
}

// recognizePage runs the configured passes over one page image and returns
// the first result with enough text, else the last successful one.
func (p *Preprocessor) recognizePage(ctx context.Context, page int, data []byte, logger *slog.Logger) (tickets.Fragment, error) {
	var (
		decoded image.Image
		format  string
		decErr  error
		best    *tickets.Fragment
		lastErr error
	)

	for _, pass := range p.cfg.Passes {
		if err := ctx.Err(); err != nil {
			return tickets.Fragment{}, err
		}

		input := data
		if pass != PassOriginal || !recognizable(data) {
			if decoded == nil && decErr == nil {
				decoded, format, decErr = image.Decode(bytes.NewReader(data))
			}
			if decErr != nil {
				lastErr = fmt.Errorf("decode image: %w", decErr)
				continue
			}
			img, err := enhance(pass, decoded, p.cfg.MaxPixels)
			if err != nil {
				lastErr = err
				continue
			}
			if input, err = encodePNG(img); err != nil {
				lastErr = err
				continue
			}
		}

		rec, err := p.recognizer.Recognize(ctx, input)
		if err != nil {
			if errors.Is(err, recovery.ErrEngineUnavailable) || ctx.Err() != nil {
				return tickets.Fragment{}, err
			}
			logger.DebugContext(ctx, "pass failed", "page", page, "pass", pass, "error", err)
			lastErr = err
			continue
		}

		frag := tickets.Fragment{Page: page, Pass: pass, Text: rec.Text, Confidence: rec.Confidence}
		best = &frag
		if countText(rec.Text) >= p.cfg.MinTextChars {
			break
		}
	}

	if best == nil {
		if lastErr == nil {
			lastErr = errors.New("no passes configured")
		}
		return tickets.Fragment{}, fmt.Errorf("%w: %w", recovery.ErrRecognitionFailed, lastErr)
	}

	logger.DebugContext(ctx, "page recognized", "page", page, "pass", best.Pass, "format", format)
	return *best, nil
}

// recognizable reports whether data can be handed to the engine unchanged.
func recognizable(data []byte) bool {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil && (format == "png" || format == "jpeg")
}

// textLayer reads the embedded text of every page.
func textLayer(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read text layer: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func countText(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func failure(reason string) tickets.RecoveredDocument {
	return tickets.RecoveredDocument{DecodeFailure: true, Reason: reason}
}
