package recovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner executes an external command with stdin and returns its stdout.
type Runner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrEngineUnavailable, name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Tesseract runs the tesseract command line tool, streaming the image on
// stdin and reading text from stdout.
type Tesseract struct {
	binary   string
	language string
	psm      int
	oem      int
	timeout  time.Duration
	runner   Runner
}

// NewTesseract creates a CLI recognizer.
func NewTesseract(cfg *Config, runner Runner) *Tesseract {
	return &Tesseract{
		binary:   cfg.Binary,
		language: cfg.Language,
		psm:      cfg.PSM,
		oem:      cfg.OEM,
		timeout:  cfg.TimeoutDuration(),
		runner:   runner,
	}
}

// Args returns the command line used for each recognition.
func (t *Tesseract) Args() []string {
	return []string{
		"stdin", "stdout",
		"-l", t.language,
		"--psm", strconv.Itoa(t.psm),
		"--oem", strconv.Itoa(t.oem),
		"-c", "preserve_interword_spaces=1",
	}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (Recognition, error) {
	if len(image) == 0 {
		return Recognition{}, fmt.Errorf("%w: empty image", ErrRecognitionFailed)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	out, err := t.runner.Run(ctx, image, t.binary, t.Args()...)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return Recognition{}, err
		}
		return Recognition{}, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	text := string(out)
	return Recognition{Text: text, Confidence: Confidence(text)}, nil
}
