//go:build gosseract

package recovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract recognizes text in-process through libtesseract. A client is
// not safe for concurrent use, so calls are serialized.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func newGosseract(cfg *Config) (Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return &Gosseract{client: client}, nil
}

func (g *Gosseract) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.client.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("%w: set image: %w", ErrRecognitionFailed, err)
	}
	text, err := g.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return Recognition{Text: text, Confidence: Confidence(text)}, nil
}

// Close releases the engine.
func (g *Gosseract) Close() error {
	return g.client.Close()
}
