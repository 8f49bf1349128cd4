package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/truck-intake-reservation/internal/model"
)

// SiteRepo provides data access to the sites table.  Sites are
// near-static configuration: they are created once by an admin and
// read by every scheduling operation to learn the interval floor.
type SiteRepo struct {
	db *sql.DB
}

// NewSiteRepo returns a new SiteRepo bound to the provided database.
func NewSiteRepo(db *sql.DB) *SiteRepo { return &SiteRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that span repositories.
func (r *SiteRepo) DB() *sql.DB { return r.db }

// Create inserts a site and populates its generated ID.
func (r *SiteRepo) Create(ctx context.Context, s *model.Site) error {
	const q = `INSERT INTO sites (name, min_interval_minutes) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Name, s.MinIntervalMinutes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a single site.  Returns ErrNotFound when the site
// does not exist.
func (r *SiteRepo) GetByID(ctx context.Context, id uint64) (*model.Site, error) {
	const q = `SELECT id, name, min_interval_minutes, created_at FROM sites WHERE id = ?`
	var s model.Site
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.MinIntervalMinutes, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAll returns every registered site ordered by ID.
func (r *SiteRepo) ListAll(ctx context.Context) ([]model.Site, error) {
	const q = `SELECT id, name, min_interval_minutes, created_at FROM sites ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sites []model.Site
	for rows.Next() {
		var s model.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.MinIntervalMinutes, &s.CreatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
