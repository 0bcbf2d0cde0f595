package preprocess_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/JaimeStill/manifest/internal/preprocess"
	"github.com/JaimeStill/manifest/internal/recovery"
	"github.com/JaimeStill/manifest/internal/tickets"
)

type fakeRecognizer struct {
	mu      sync.Mutex
	replies []reply
	calls   [][]byte
}

type reply struct {
	text string
	err  error
}

func (f *fakeRecognizer) Recognize(_ context.Context, img []byte) (recovery.Recognition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, img)
	if len(f.replies) == 0 {
		return recovery.Recognition{}, errors.New("no reply queued")
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	if r.err != nil {
		return recovery.Recognition{}, r.err
	}
	return recovery.Recognition{Text: r.text, Confidence: recovery.Confidence(r.text)}, nil
}

type fakeRasterizer struct {
	pages [][]byte
	err   error
	dpi   int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _ []byte, dpi int) ([][]byte, error) {
	f.dpi = dpi
	return f.pages, f.err
}

func newConfig(t *testing.T) *preprocess.Config {
	t.Helper()
	cfg := &preprocess.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	return cfg
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 12))
	for y := range 12 {
		for x := range 24 {
			c := color.RGBA{R: 230, G: 230, B: 230, A: 255}
			if x%6 < 2 && y > 2 && y < 9 {
				c = color.RGBA{R: 20, G: 20, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// testPDF assembles a one-page PDF. An empty text yields a page with no
// text layer, as a scanned ticket would have.
func testPDF(text string) []byte {
	content := ""
	if text != "" {
		content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

const slipText = "IRCTC Electronic Reservation Slip PNR 6562526496"

func TestDetectKind(t *testing.T) {
	img := testPNG(t)

	tests := []struct {
		name        string
		contentType string
		data        []byte
		want        tickets.Kind
	}{
		{"pdf magic", "", []byte("%PDF-1.7\n..."), tickets.KindPDF},
		{"pdf magic after whitespace", "application/octet-stream", []byte("\r\n%PDF-1.4"), tickets.KindPDF},
		{"png", "application/octet-stream", img, tickets.KindImage},
		{"declared pdf", "application/pdf", []byte("not really"), tickets.KindPDF},
		{"text", "text/plain", []byte("hello"), tickets.KindUnknown},
		{"empty", "", nil, tickets.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocess.DetectKind(tt.contentType, tt.data); got != tt.want {
				t.Errorf("DetectKind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecoverImageFirstPassWins(t *testing.T) {
	rec := &fakeRecognizer{replies: []reply{{text: slipText}}}
	p := preprocess.New(newConfig(t), rec, &fakeRasterizer{}, nil)
	img := testPNG(t)

	doc, err := p.Recover(context.Background(), tickets.File{ID: "f1", Name: "slip.png", Data: img})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	if doc.DecodeFailure {
		t.Fatalf("DecodeFailure = true, reason %q", doc.Reason)
	}
	if len(rec.calls) != 1 {
		t.Errorf("recognizer calls = %d, want 1", len(rec.calls))
	}
	if !bytes.Equal(rec.calls[0], img) {
		t.Error("original pass should pass the image through unchanged")
	}
	if len(doc.Fragments) != 1 || doc.Fragments[0].Pass != preprocess.PassOriginal {
		t.Fatalf("fragments = %+v", doc.Fragments)
	}
	if doc.Text() != slipText {
		t.Errorf("Text() = %q", doc.Text())
	}
}

func TestRecoverImageFallsThroughPasses(t *testing.T) {
	rec := &fakeRecognizer{replies: []reply{
		{text: "~~ ."},
		{err: errors.New("engine hiccup")},
		{text: slipText},
	}}
	p := preprocess.New(newConfig(t), rec, &fakeRasterizer{}, nil)

	doc, err := p.Recover(context.Background(), tickets.File{ID: "f1", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	if len(rec.calls) != 3 {
		t.Errorf("recognizer calls = %d, want 3", len(rec.calls))
	}
	if got := doc.Fragments[0].Pass; got != preprocess.PassDenoise {
		t.Errorf("winning pass = %s, want %s", got, preprocess.PassDenoise)
	}
}

func TestRecoverKeepsFinalPassWhenNoneSucceed(t *testing.T) {
	rec := &fakeRecognizer{replies: []reply{{text: "ab"}}}
	p := preprocess.New(newConfig(t), rec, &fakeRasterizer{}, nil)

	doc, err := p.Recover(context.Background(), tickets.File{ID: "f1", Data: testPNG(t)})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	if len(rec.calls) != 4 {
		t.Errorf("recognizer calls = %d, want 4", len(rec.calls))
	}
	if doc.DecodeFailure {
		t.Fatal("short text is not a decode failure")
	}
	if got := doc.Fragments[0].Pass; got != preprocess.PassUpscale {
		t.Errorf("kept pass = %s, want %s", got, preprocess.PassUpscale)
	}
}

func TestRecoverFailures(t *testing.T) {
	tests := []struct {
		name       string
		file       tickets.File
		rasterizer *fakeRasterizer
		replies    []reply
		wantReason string
	}{
		{
			name:       "unsupported bytes",
			file:       tickets.File{Data: []byte("just some text")},
			wantReason: "unsupported file type",
		},
		{
			name:       "corrupt pdf",
			file:       tickets.File{Data: []byte("%PDF-1.4\ngarbage without objects")},
			wantReason: "invalid pdf",
		},
		{
			name:       "render failure",
			file:       tickets.File{Data: testPDF("")},
			rasterizer: &fakeRasterizer{err: errors.New("magick missing")},
			wantReason: "render failed",
		},
		{
			name:       "every pass fails",
			file:       tickets.File{Data: testPDF("")},
			rasterizer: &fakeRasterizer{},
			replies:    []reply{{err: errors.New("bad image")}},
			wantReason: "text recognition failed",
		},
	}

	img := testPNG(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raster := tt.rasterizer
			if raster == nil {
				raster = &fakeRasterizer{}
			}
			if raster.err == nil {
				raster.pages = [][]byte{img}
			}
			replies := tt.replies
			if replies == nil {
				replies = []reply{{text: slipText}}
			}

			p := preprocess.New(newConfig(t), &fakeRecognizer{replies: replies}, raster, nil)
			doc, err := p.Recover(context.Background(), tt.file)
			if err != nil {
				t.Fatalf("Recover() error: %v", err)
			}
			if !doc.DecodeFailure {
				t.Fatal("DecodeFailure = false, want true")
			}
			if !strings.HasPrefix(doc.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want prefix %q", doc.Reason, tt.wantReason)
			}
			if doc.Text() != "" {
				t.Errorf("Text() = %q, want empty", doc.Text())
			}
		})
	}
}

func TestRecoverEngineUnavailable(t *testing.T) {
	rec := &fakeRecognizer{replies: []reply{{err: fmt.Errorf("%w: tesseract", recovery.ErrEngineUnavailable)}}}
	p := preprocess.New(newConfig(t), rec, &fakeRasterizer{}, nil)

	_, err := p.Recover(context.Background(), tickets.File{Data: testPNG(t)})
	if !errors.Is(err, recovery.ErrEngineUnavailable) {
		t.Fatalf("Recover() error = %v, want ErrEngineUnavailable", err)
	}
	if len(rec.calls) != 1 {
		t.Errorf("recognizer calls = %d, want 1", len(rec.calls))
	}
}

func TestRecoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := preprocess.New(newConfig(t), &fakeRecognizer{replies: []reply{{text: slipText}}}, &fakeRasterizer{}, nil)
	if _, err := p.Recover(ctx, tickets.File{Data: testPNG(t)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Recover() error = %v, want context.Canceled", err)
	}
}

func TestRecoverPDFTextLayer(t *testing.T) {
	rec := &fakeRecognizer{}
	raster := &fakeRasterizer{}
	p := preprocess.New(newConfig(t), rec, raster, nil)

	doc, err := p.Recover(context.Background(), tickets.File{Name: "slip.pdf", Data: testPDF(slipText)})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	if doc.DecodeFailure {
		t.Fatalf("DecodeFailure = true, reason %q", doc.Reason)
	}
	if len(rec.calls) != 0 {
		t.Errorf("recognizer calls = %d, want 0", len(rec.calls))
	}
	if doc.Pages != 1 || doc.Fragments[0].Pass != preprocess.PassTextLayer {
		t.Fatalf("doc = %+v", doc)
	}
	if !strings.Contains(doc.Text(), "PNR 6562526496") {
		t.Errorf("Text() = %q", doc.Text())
	}
}

func TestRecoverPDFWithoutTextLayerIsRasterized(t *testing.T) {
	rec := &fakeRecognizer{replies: []reply{{text: slipText}}}
	img := testPNG(t)
	raster := &fakeRasterizer{pages: [][]byte{img, img}}
	p := preprocess.New(newConfig(t), rec, raster, nil)

	doc, err := p.Recover(context.Background(), tickets.File{Data: testPDF("")})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}

	if raster.dpi != 300 {
		t.Errorf("dpi = %d, want 300", raster.dpi)
	}
	if len(doc.Fragments) != 2 {
		t.Fatalf("fragments = %d, want 2", len(doc.Fragments))
	}
	for i, f := range doc.Fragments {
		if f.Page != i+1 || f.Pass != preprocess.PassOriginal {
			t.Errorf("fragment %d = %+v", i, f)
		}
	}
}

func TestRecoverTextLayerDisabled(t *testing.T) {
	cfg := &preprocess.Config{DisableTextLayer: true}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	rec := &fakeRecognizer{replies: []reply{{text: slipText}}}
	p := preprocess.New(cfg, rec, &fakeRasterizer{pages: [][]byte{testPNG(t)}}, nil)

	doc, err := p.Recover(context.Background(), tickets.File{Data: testPDF(slipText)})
	if err != nil {
		t.Fatalf("Recover() error: %v", err)
	}
	if len(rec.calls) != 1 || doc.Fragments[0].Pass != preprocess.PassOriginal {
		t.Errorf("calls = %d, fragments = %+v", len(rec.calls), doc.Fragments)
	}
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &preprocess.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error: %v", err)
		}
		if cfg.DPI != 300 || cfg.MinTextChars != 20 || len(cfg.Passes) != 4 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_PRE_PASSES", "contrast, upscale")
		t.Setenv("TEST_PRE_DPI", "200")
		cfg := &preprocess.Config{}
		if err := cfg.Finalize(&preprocess.Env{Passes: "TEST_PRE_PASSES", DPI: "TEST_PRE_DPI"}); err != nil {
			t.Fatalf("Finalize() error: %v", err)
		}
		if cfg.DPI != 200 || strings.Join(cfg.Passes, ",") != "contrast,upscale" {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("unknown pass", func(t *testing.T) {
		cfg := &preprocess.Config{Passes: []string{"sharpen"}}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("merge", func(t *testing.T) {
		base := &preprocess.Config{DPI: 300, MinTextChars: 20}
		base.Merge(&preprocess.Config{MinTextChars: 40, DisableTextLayer: true})
		if base.DPI != 300 || base.MinTextChars != 40 || !base.DisableTextLayer {
			t.Errorf("merged = %+v", base)
		}
	})
}
