package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JaimeStill/manifest/pkg/lifecycle"
)

const driveFileFields = "id, name, mimeType, size, modifiedTime"

type driveSource struct {
	svc       *drive.Service
	inbox     string
	processed string
	logger    *slog.Logger
}

// NewDrive creates a source over two Google Drive folders.
func NewDrive(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &driveSource{
		svc:       svc,
		inbox:     cfg.InboxFolderID,
		processed: cfg.ProcessedFolderID,
		logger:    logger.With("system", "source", "backend", BackendDrive),
	}, nil
}

func (d *driveSource) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting file source")

	lc.OnStartup(func() {
		f, err := d.svc.Files.Get(d.inbox).
			SupportsAllDrives(true).
			Fields("id, name").
			Context(lc.Context()).
			Do()
		if err != nil {
			d.logger.Error("inbox folder not reachable", "folder", d.inbox, "error", err)
			return
		}
		d.logger.Info("inbox folder ready", "folder", f.Name)
	})

	return nil
}

func (d *driveSource) List(ctx context.Context) ([]Object, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != 'application/vnd.google-apps.folder'", d.inbox)

	var objects []Object
	token := ""
	for {
		call := d.svc.Files.List().
			Q(q).
			Spaces("drive").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Fields(googleapi.Field("nextPageToken, files(" + driveFileFields + ")")).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("%w: list drive folder: %w", ErrUnavailable, err)
		}

		for _, f := range resp.Files {
			objects = append(objects, fromDriveFile(f))
		}

		token = resp.NextPageToken
		if token == "" {
			return objects, nil
		}
	}
}

func (d *driveSource) Download(ctx context.Context, id string) ([]byte, error) {
	if err := validateKey(id); err != nil {
		return nil, err
	}

	resp, err := d.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		if isDriveNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: download drive file %s: %w", ErrUnavailable, id, err)
	}

	data, err := readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read drive file %s: %w", ErrUnavailable, id, err)
	}
	return data, nil
}

func (d *driveSource) MoveToProcessed(ctx context.Context, id string) error {
	if err := validateKey(id); err != nil {
		return err
	}

	_, err := d.svc.Files.Update(id, &drive.File{}).
		AddParents(d.processed).
		RemoveParents(d.inbox).
		SupportsAllDrives(true).
		Fields("id, parents").
		Context(ctx).
		Do()
	if err != nil {
		if isDriveNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: move drive file %s: %w", ErrUnavailable, id, err)
	}

	d.logger.InfoContext(ctx, "file archived", "id", id, "folder", d.processed)
	return nil
}

func (d *driveSource) Upload(ctx context.Context, name string, r io.Reader, contentType string) (Object, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{d.inbox},
	}

	f, err := d.svc.Files.Create(meta).
		Media(r).
		SupportsAllDrives(true).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		return Object{}, fmt.Errorf("%w: upload drive file %s: %w", ErrUnavailable, name, err)
	}

	return fromDriveFile(f), nil
}

func fromDriveFile(f *drive.File) Object {
	obj := Object{
		ID:          f.Id,
		Name:        f.Name,
		ContentType: f.MimeType,
		Size:        f.Size,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		obj.ModifiedAt = t
	}
	return obj
}

func isDriveNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
