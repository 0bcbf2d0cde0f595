package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/JaimeStill/manifest/pkg/lifecycle"
)

type gcs struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	inbox     string
	processed string
	logger    *slog.Logger
}

// NewGCS creates a source over inbox/processed prefixes of a Cloud Storage bucket.
func NewGCS(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &gcs{
		client:    client,
		bucket:    client.Bucket(cfg.Bucket),
		inbox:     cfg.InboxPrefix,
		processed: cfg.ProcessedPrefix,
		logger:    logger.With("system", "source", "backend", BackendGCS, "bucket", cfg.Bucket),
	}, nil
}

func (g *gcs) Start(lc *lifecycle.Coordinator) error {
	g.logger.Info("starting file source")

	lc.OnStartup(func() {
		if _, err := g.bucket.Attrs(lc.Context()); err != nil {
			g.logger.Error("bucket not reachable", "error", err)
			return
		}
		g.logger.Info("bucket ready")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := g.client.Close(); err != nil {
			g.logger.Error("gcs client close failed", "error", err)
		}
	})

	return nil
}

func (g *gcs) List(ctx context.Context) ([]Object, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: strings.Trim(g.inbox, "/") + "/"})

	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return objects, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list objects: %w", ErrUnavailable, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		objects = append(objects, Object{
			ID:          attrs.Name,
			Name:        baseName(attrs.Name),
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			ModifiedAt:  attrs.Updated,
		})
	}
}

func (g *gcs) Download(ctx context.Context, id string) ([]byte, error) {
	if err := validateKey(id); err != nil {
		return nil, err
	}

	rc, err := g.bucket.Object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: open object %s: %w", ErrUnavailable, id, err)
	}

	data, err := readAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read object %s: %w", ErrUnavailable, id, err)
	}
	return data, nil
}

// MoveToProcessed copies server-side, then deletes the inbox object. A missing
// inbox object counts as already moved.
func (g *gcs) MoveToProcessed(ctx context.Context, id string) error {
	if err := validateKey(id); err != nil {
		return err
	}

	src := g.bucket.Object(id)
	dest := joinPrefix(g.processed, baseName(id))

	if _, err := g.bucket.Object(dest).CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("%w: copy object %s: %w", ErrUnavailable, id, err)
	}

	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: delete object %s: %w", ErrUnavailable, id, err)
	}

	g.logger.InfoContext(ctx, "file archived", "from", id, "to", dest)
	return nil
}

// Upload writes only when the object does not exist yet; a precondition
// failure means the same name is already waiting and is not an error.
func (g *gcs) Upload(ctx context.Context, name string, r io.Reader, contentType string) (Object, error) {
	key := joinPrefix(g.inbox, name)
	if err := validateKey(key); err != nil {
		return Object{}, err
	}

	w := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return Object{}, fmt.Errorf("%w: write object %s: %w", ErrUnavailable, key, err)
	}

	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			g.logger.InfoContext(ctx, "object already exists, skipping", "key", key)
		} else {
			return Object{}, fmt.Errorf("%w: finalize object %s: %w", ErrUnavailable, key, err)
		}
	}

	return Object{
		ID:          key,
		Name:        name,
		ContentType: contentType,
		Size:        n,
	}, nil
}
