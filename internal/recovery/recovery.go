// Package recovery turns page images into text. Engines sit behind the
// Recognizer interface so preprocessing and tests never depend on a
// particular OCR installation.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/JaimeStill/manifest/pkg/retry"
)

var (
	// ErrEngineUnavailable indicates the OCR engine is not installed or was
	// not compiled in. It is never retried.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	// ErrRecognitionFailed wraps engine failures on a single image.
	ErrRecognitionFailed = errors.New("text recognition failed")
)

// Engine names accepted by Config.Engine.
const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// Recognition is the text recovered from one image.
type Recognition struct {
	Text       string
	Confidence float64
}

// Recognizer recovers text from an encoded (PNG or JPEG) image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Recognition, error)
}

// New builds the configured engine wrapped in a retrying decorator.
func New(cfg *Config, policy retry.Policy, logger *slog.Logger) (Recognizer, error) {
	logger = logger.With("system", "recovery", "engine", cfg.Engine)

	var r Recognizer
	switch cfg.Engine {
	case EngineTesseract:
		r = NewTesseract(cfg, ExecRunner{})
	case EngineGosseract:
		g, err := newGosseract(cfg)
		if err != nil {
			return nil, err
		}
		r = g
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}

	return NewRetrying(r, policy, logger), nil
}

// Retrying retries transient recognizer failures with backoff.
type Retrying struct {
	next   Recognizer
	policy retry.Policy
	logger *slog.Logger
}

// NewRetrying decorates next with policy.
func NewRetrying(next Recognizer, policy retry.Policy, logger *slog.Logger) *Retrying {
	return &Retrying{next: next, policy: policy, logger: logger}
}

func (r *Retrying) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	policy := r.policy
	policy.OnRetry = func(attempt int, err error) {
		r.logger.WarnContext(ctx, "retrying recognition", "attempt", attempt, "error", err)
	}
	return retry.DoValue(ctx, policy, func(ctx context.Context) (Recognition, error) {
		rec, err := r.next.Recognize(ctx, image)
		if errors.Is(err, ErrEngineUnavailable) {
			return rec, retry.Permanent(err)
		}
		return rec, err
	})
}

// Confidence estimates recognition quality in [0,1] from the share of
// letters, digits and common punctuation in the recovered text.
func Confidence(text string) float64 {
	var total, good int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".,:;/-()'&@#", r) {
			good++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(good) / float64(total)
}
