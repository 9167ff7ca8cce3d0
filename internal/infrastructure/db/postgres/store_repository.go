package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

const storeColumns = `id, name, email, address, owner_id, average_rating, total_ratings, created_at, updated_at`

// StoreRepository persists stores in the stores table.
type StoreRepository struct {
	db DB
}

var _ ports.StoreRepository = (*StoreRepository)(nil)

func NewStoreRepository(db DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func scanStore(row pgx.Row) (*domain.Store, error) {
	var (
		s       domain.Store
		ownerID pgtype.Int8
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Address, &ownerID, &s.AverageRating, &s.TotalRatings, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.OwnerID = int64Ptr(ownerID)
	return &s, nil
}

func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) error {
	const q = `INSERT INTO stores (name, email, address, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, average_rating, total_ratings, created_at, updated_at`

	err := conn(ctx, r.db).QueryRow(ctx, q, s.Name, s.Email, s.Address, s.OwnerID).
		Scan(&s.ID, &s.AverageRating, &s.TotalRatings, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrStoreEmailTaken
		}
		return persistence("create store", err)
	}
	return nil
}

func (r *StoreRepository) findOne(ctx context.Context, op, q string, args ...any) (*domain.Store, error) {
	s, err := scanStore(conn(ctx, r.db).QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, persistence(op, err)
	}
	return s, nil
}

func (r *StoreRepository) FindByID(ctx context.Context, id int64) (*domain.Store, error) {
	return r.findOne(ctx, "find store by id", `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
}

// FindByIDForUpdate row-locks the store until the surrounding transaction ends.
func (r *StoreRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Store, error) {
	return r.findOne(ctx, "lock store", `SELECT `+storeColumns+` FROM stores WHERE id = $1 FOR UPDATE`, id)
}

func (r *StoreRepository) FindByEmail(ctx context.Context, email string) (*domain.Store, error) {
	return r.findOne(ctx, "find store by email", `SELECT `+storeColumns+` FROM stores WHERE email = $1`, email)
}

func (r *StoreRepository) list(ctx context.Context, op, q string, args ...any) ([]*domain.Store, error) {
	rows, err := conn(ctx, r.db).Query(ctx, q, args...)
	if err != nil {
		return nil, persistence(op, err)
	}
	defer rows.Close()

	stores := []*domain.Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, persistence("scan store", err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(op, err)
	}
	return stores, nil
}

func (r *StoreRepository) List(ctx context.Context, filter ports.ListStoresFilter) ([]*domain.Store, error) {
	var w where
	if filter.Name != "" {
		w.add("name ILIKE $%d", contains(filter.Name))
	}
	if filter.Address != "" {
		w.add("address ILIKE $%d", contains(filter.Address))
	}
	if filter.MinRating != nil {
		w.add("average_rating >= $%d", *filter.MinRating)
	}

	q := `SELECT ` + storeColumns + ` FROM stores` + w.String() + ` ORDER BY average_rating DESC, id ASC`
	return r.list(ctx, "list stores", q, w.args...)
}

func (r *StoreRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Store, error) {
	return r.list(ctx, "list stores by owner", `SELECT `+storeColumns+` FROM stores WHERE owner_id = $1 ORDER BY id`, ownerID)
}

// Update writes the editable columns. The rating aggregate is left alone.
func (r *StoreRepository) Update(ctx context.Context, s *domain.Store) error {
	const q = `UPDATE stores
		SET name = $2, email = $3, address = $4, owner_id = $5
		WHERE id = $1
		RETURNING updated_at`

	err := conn(ctx, r.db).QueryRow(ctx, q, s.ID, s.Name, s.Email, s.Address, s.OwnerID).Scan(&s.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.ErrStoreNotFound
		case isUniqueViolation(err):
			return domain.ErrStoreEmailTaken
		}
		return persistence("update store", err)
	}
	return nil
}

func (r *StoreRepository) UpdateAggregate(ctx context.Context, id int64, agg domain.Aggregate) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE stores SET average_rating = $2, total_ratings = $3 WHERE id = $1`,
		id, agg.Average, agg.Total)
	if err != nil {
		return persistence("update store aggregate", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepository) ClearOwner(ctx context.Context, ownerID int64) error {
	if _, err := conn(ctx, r.db).Exec(ctx, `UPDATE stores SET owner_id = NULL WHERE owner_id = $1`, ownerID); err != nil {
		return persistence("clear store owner", err)
	}
	return nil
}

func (r *StoreRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return persistence("delete store", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r *StoreRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM stores`).Scan(&n); err != nil {
		return 0, persistence("count stores", err)
	}
	return n, nil
}
