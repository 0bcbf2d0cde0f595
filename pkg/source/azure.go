package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/manifest/pkg/lifecycle"
)

type azure struct {
	client    *azblob.Client
	container string
	inbox     string
	processed string
	logger    *slog.Logger
}

// NewAzure creates a blob-backed source. It builds the client but does not
// contact the service until Start or the first call.
func NewAzure(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		inbox:     cfg.InboxPrefix,
		processed: cfg.ProcessedPrefix,
		logger:    logger.With("system", "source", "backend", BackendAzure),
	}, nil
}

func newAzureClient(cfg *Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}

	var tc azcore.TokenCredential = cred
	return azblob.NewClient(cfg.AccountURL, tc, nil)
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting file source")

	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil {
			if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
				a.logger.Error("storage container initialization failed", "error", err)
				return
			}
		}

		a.logger.Info("storage container ready", "container", a.container)
	})

	return nil
}

func (a *azure) List(ctx context.Context) ([]Object, error) {
	prefix := strings.Trim(a.inbox, "/") + "/"
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	var objects []Object
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list blobs: %w", ErrUnavailable, err)
		}

		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || strings.HasSuffix(*item.Name, "/") {
				continue
			}

			obj := Object{
				ID:   *item.Name,
				Name: baseName(*item.Name),
			}
			if p := item.Properties; p != nil {
				if p.ContentType != nil {
					obj.ContentType = *p.ContentType
				}
				if p.ContentLength != nil {
					obj.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					obj.ModifiedAt = *p.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}

	return objects, nil
}

func (a *azure) Download(ctx context.Context, id string) ([]byte, error) {
	if err := validateKey(id); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, id, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: download blob %s: %w", ErrUnavailable, id, err)
	}

	data, err := readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %w", ErrUnavailable, id, err)
	}
	return data, nil
}

// MoveToProcessed copies the blob under the processed prefix and deletes the
// original. A blob already gone from the inbox counts as moved.
func (a *azure) MoveToProcessed(ctx context.Context, id string) error {
	if err := validateKey(id); err != nil {
		return err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, id, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("%w: download blob %s: %w", ErrUnavailable, id, err)
	}

	data, err := readAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read blob %s: %w", ErrUnavailable, id, err)
	}

	dest := joinPrefix(a.processed, baseName(id))
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: resp.ContentType},
	}
	if _, err := a.client.UploadBuffer(ctx, a.container, dest, data, opts); err != nil {
		return fmt.Errorf("%w: upload blob %s: %w", ErrUnavailable, dest, err)
	}

	if _, err := a.client.DeleteBlob(ctx, a.container, id, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("%w: delete blob %s: %w", ErrUnavailable, id, err)
	}

	a.logger.InfoContext(ctx, "file archived", "from", id, "to", dest)
	return nil
}

func (a *azure) Upload(ctx context.Context, name string, r io.Reader, contentType string) (Object, error) {
	key := joinPrefix(a.inbox, name)
	if err := validateKey(key); err != nil {
		return Object{}, err
	}

	var counter countingReader
	counter.r = r

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := a.client.UploadStream(ctx, a.container, key, &counter, opts); err != nil {
		return Object{}, fmt.Errorf("%w: upload blob %s: %w", ErrUnavailable, key, err)
	}

	return Object{
		ID:          key,
		Name:        name,
		ContentType: contentType,
		Size:        counter.n,
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
