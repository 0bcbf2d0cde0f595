package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/JaimeStill/manifest/pkg/lifecycle"
)

type local struct {
	inbox     string
	processed string
	logger    *slog.Logger
}

// NewLocal creates a source over <dir>/<inbox_prefix> and <dir>/<processed_prefix>.
func NewLocal(cfg *Config, logger *slog.Logger) (System, error) {
	l := &local{
		inbox:     filepath.Join(cfg.Dir, cfg.InboxPrefix),
		processed: filepath.Join(cfg.Dir, cfg.ProcessedPrefix),
		logger:    logger.With("system", "source", "backend", BackendLocal),
	}

	for _, dir := range []string{l.inbox, l.processed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return l, nil
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("starting file source", "inbox", l.inbox)
	return nil
}

func (l *local) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(l.inbox)
	if err != nil {
		return nil, fmt.Errorf("%w: read inbox: %w", ErrUnavailable, err)
	}

	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{
			ID:          e.Name(),
			Name:        e.Name(),
			ContentType: contentTypeFor(e.Name()),
			Size:        info.Size(),
			ModifiedAt:  info.ModTime(),
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (l *local) Download(ctx context.Context, id string) ([]byte, error) {
	path, err := l.path(l.inbox, id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, id, err)
	}
	return data, nil
}

func (l *local) MoveToProcessed(ctx context.Context, id string) error {
	src, err := l.path(l.inbox, id)
	if err != nil {
		return err
	}
	dest, _ := l.path(l.processed, id)

	if err := os.Rename(src, dest); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: move %s: %w", ErrUnavailable, id, err)
	}
	return nil
}

func (l *local) Upload(ctx context.Context, name string, r io.Reader, contentType string) (Object, error) {
	path, err := l.path(l.inbox, name)
	if err != nil {
		return Object{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("%w: create %s: %w", ErrUnavailable, name, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("%w: write %s: %w", ErrUnavailable, name, err)
	}

	return Object{ID: name, Name: name, ContentType: contentType, Size: n}, nil
}

func (l *local) path(dir, id string) (string, error) {
	if err := validateKey(id); err != nil {
		return "", err
	}
	if filepath.Base(id) != id {
		return "", ErrInvalidKey
	}
	return filepath.Join(dir, id), nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DetectContentType prefers a declared type and falls back to sniffing.
func DetectContentType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}
