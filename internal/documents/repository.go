package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/manifest/pkg/pagination"
	"github.com/JaimeStill/manifest/pkg/query"
	"github.com/JaimeStill/manifest/pkg/repository"
	"github.com/JaimeStill/manifest/pkg/source"
)

type repo struct {
	db         *sql.DB
	source     source.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a registry repository implementing the System interface.
func New(
	db *sql.DB,
	src source.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		source:     src,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "SourceID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count ticket files: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query ticket files: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Register(ctx context.Context, cmd RegisterCommand) (*Document, error) {
	if cmd.SourceID == "" || len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}

	hash := Hash(cmd.Data)
	insert := `
		INSERT INTO ticket_files (id, source_id, filename, content_type, kind, size_bytes, content_hash, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (content_hash) DO NOTHING
		RETURNING ` + columns

	insertArgs := []any{
		uuid.New(),
		cmd.SourceID,
		filepath.Base(cmd.Filename),
		cmd.ContentType,
		cmd.Kind,
		int64(len(cmd.Data)),
		hash,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		d, err := repository.QueryOne(ctx, tx, insert, insertArgs, scanDocument)
		if !errors.Is(err, sql.ErrNoRows) {
			return d, err
		}

		existing, err := repository.QueryOne(ctx, tx,
			`SELECT `+columns+` FROM ticket_files WHERE content_hash = $1 FOR UPDATE`,
			[]any{hash}, scanDocument)
		if err != nil {
			return Document{}, err
		}
		if existing.Recorded() {
			return existing, nil
		}

		d, err = repository.QueryOne(ctx, tx, `
			UPDATE ticket_files
			SET source_id = $2, claimed_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'received'
			  AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $3))
			RETURNING `+columns,
			[]any{existing.ID, cmd.SourceID, cmd.ClaimTimeout.Seconds()}, scanDocument)
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrClaimed
		}
		return d, err
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("ticket file registered",
		"id", d.ID,
		"source_id", d.SourceID,
		"status", d.Status,
	)
	return &d, nil
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, cmd CompleteCommand) (*Document, error) {
	q := `
		UPDATE ticket_files
		SET status = 'extracted', category = NULLIF($2, ''), page_count = NULLIF($3, 0),
		    row_count = $4, reason = NULLIF($5, ''), claimed_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'received'
		RETURNING ` + columns

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, cmd.Category, cmd.Pages, cmd.RowCount, cmd.Reason}, scanDocument)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionError(ctx, id)
		}
		return nil, err
	}

	r.logger.Info("ticket file extracted", "id", id, "category", cmd.Category, "rows", cmd.RowCount)
	return &d, nil
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			`UPDATE ticket_files SET status = 'archived', updated_at = NOW()
			 WHERE id = $1 AND status IN ('extracted', 'archived')`,
			id,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.transitionError(ctx, id)
		}
		return err
	}
	return nil
}

func (r *repo) Release(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			`UPDATE ticket_files SET claimed_at = NULL, updated_at = NOW()
			 WHERE id = $1 AND status = 'received'`,
			id,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.transitionError(ctx, id)
		}
		return err
	}
	r.logger.Info("ticket file claim released", "id", id)
	return nil
}

func (r *repo) Upload(ctx context.Context, cmd UploadCommand) (*source.Object, error) {
	name := filepath.Base(cmd.Filename)
	if name == "." || name == "/" || name == "" {
		return nil, ErrInvalidFile
	}

	obj, err := r.source.Upload(ctx, name, bytes.NewReader(cmd.Data), cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload to inbox: %w", err)
	}

	r.logger.Info("ticket file uploaded", "source_id", obj.ID, "filename", obj.Name)
	return &obj, nil
}

// transitionError distinguishes a missing record from one in the wrong state.
func (r *repo) transitionError(ctx context.Context, id uuid.UUID) error {
	if _, err := r.Find(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}
