// Package sqlite stores short links in SQLite compatible databases: local
// files and hosted libSQL. Timestamps are kept as Unix milliseconds so both
// drivers scan them the same way.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type linkDB struct {
	ID          int64          `db:"id"`
	Slug        string         `db:"slug"`
	OriginalURL string         `db:"original_url"`
	Owner       sql.NullString `db:"owner"`
	Clicks      int64          `db:"clicks"`
	CreatedAt   int64          `db:"created_at"`
}

func (l *linkDB) toEntity() *entity.ShortLink {
	return &entity.ShortLink{
		ID:          l.ID,
		Slug:        l.Slug,
		OriginalURL: l.OriginalURL,
		Owner:       l.Owner.String,
		LinkStats: entity.LinkStats{
			Clicks: l.Clicks,
		},
		CreatedAt: time.UnixMilli(l.CreatedAt).UTC(),
	}
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *entity.ShortLink) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Save"
	const query = `INSERT INTO links(slug, original_url, owner, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id, slug, original_url, owner, clicks, created_at`

	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	owner := sql.NullString{String: link.Owner, Valid: link.Owner != ""}

	var rec linkDB

	if err := r.db.GetContext(ctx, &rec, query, link.Slug, link.OriginalURL, owner, createdAt.UnixMilli()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *LinkRepository) RetrieveBySlug(ctx context.Context, slug string) (*entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.LinkRepository.RetrieveBySlug"
	const query = `SELECT id, slug, original_url, owner, clicks, created_at FROM links WHERE slug = ?`

	var rec linkDB

	if err := r.db.GetContext(ctx, &rec, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *LinkRepository) IncrementClicks(ctx context.Context, slug string) error {
	const op = "adapter.repository.sqlite.LinkRepository.IncrementClicks"
	const query = `UPDATE links SET clicks = clicks + 1 WHERE slug = ?`

	if _, err := r.db.ExecContext(ctx, query, slug); err != nil {
		return fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return nil
}

func (r *LinkRepository) ListByOwner(ctx context.Context, owner string) ([]entity.ShortLink, error) {
	const op = "adapter.repository.sqlite.LinkRepository.ListByOwner"
	const query = `SELECT id, slug, original_url, owner, clicks, created_at FROM links
		WHERE owner = ?
		ORDER BY created_at DESC, id DESC`

	var recs []linkDB

	if err := r.db.SelectContext(ctx, &recs, query, owner); err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	links := make([]entity.ShortLink, 0, len(recs))
	for i := range recs {
		links = append(links, *recs[i].toEntity())
	}

	return links, nil
}
