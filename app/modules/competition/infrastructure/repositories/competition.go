package competitiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new competition repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) CreateCompetition(ctx context.Context, db bun.IDB, c *Competition) error {
	db = r.resolveDB(db)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(c).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

func (r *Impl) GetCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*Competition, error) {
	return r.selectCompetition(ctx, r.resolveDB(db), id, false)
}

func (r *Impl) LockCompetition(ctx context.Context, db bun.IDB, id uuid.UUID) (*Competition, error) {
	return r.selectCompetition(ctx, r.resolveDB(db), id, true)
}

func (r *Impl) selectCompetition(ctx context.Context, db bun.IDB, id uuid.UUID, lock bool) (*Competition, error) {
	c := new(Competition)
	q := db.NewSelect().Model(c).Where("c.id = ?", id)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

func (r *Impl) GetCompetitionsByStatus(ctx context.Context, db bun.IDB, status competitiondomain.Status, page, pageSize int) ([]*Competition, error) {
	db = r.resolveDB(db)
	if page < 1 {
		page = 1
	}
	var out []*Competition
	err := db.NewSelect().
		Model(&out).
		Where("c.status = ?", status).
		Order("c.start_date ASC", "c.id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions by status: %w", err)
	}
	return out, nil
}

func (r *Impl) GetCompetitionsStartingBetween(ctx context.Context, db bun.IDB, from, to time.Time) ([]*Competition, error) {
	db = r.resolveDB(db)
	var out []*Competition
	err := db.NewSelect().
		Model(&out).
		Where("c.start_date >= ?", from).
		Where("c.start_date < ?", to).
		Order("c.start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions by start date: %w", err)
	}
	return out, nil
}

func (r *Impl) UpdateCompetition(ctx context.Context, db bun.IDB, c *Competition) error {
	db = r.resolveDB(db)
	c.UpdatedAt = time.Now().UTC()
	res, err := db.NewUpdate().
		Model(c).
		ExcludeColumn("status", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	return requireRows(res)
}

func (r *Impl) UpdateCompetitionStatus(ctx context.Context, db bun.IDB, id uuid.UUID, from, to competitiondomain.Status) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Competition)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update competition status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Nothing matched: either the competition is gone or its status moved on.
	if _, err := r.GetCompetition(ctx, db, id); err != nil {
		return err
	}
	return ErrStatusMismatch
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
