package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

const ratingColumns = `id, user_id, store_id, rating, comment, created_at, updated_at`

// RatingRepository persists ratings in the ratings table.
type RatingRepository struct {
	db DB
}

var _ ports.RatingRepository = (*RatingRepository)(nil)

func NewRatingRepository(db DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func scanRating(row pgx.Row, extra ...any) (*domain.Rating, error) {
	var (
		rt      domain.Rating
		comment pgtype.Text
	)
	dest := append([]any{&rt.ID, &rt.UserID, &rt.StoreID, &rt.Rating, &comment, &rt.CreatedAt, &rt.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rt.Comment = textPtr(comment)
	return &rt, nil
}

// Upsert relies on the (user_id, store_id) unique constraint. xmax is zero
// only for a freshly inserted row version.
func (r *RatingRepository) Upsert(ctx context.Context, rt *domain.Rating) (bool, error) {
	const q = `INSERT INTO ratings (user_id, store_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, store_id)
		DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	var inserted bool
	err := conn(ctx, r.db).QueryRow(ctx, q, rt.UserID, rt.StoreID, rt.Rating, rt.Comment).
		Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt, &inserted)
	if err != nil {
		switch {
		case isForeignKeyViolation(err, "ratings_user_id_fkey"):
			// The rater was deleted while their token is still valid.
			return false, domain.ErrInvalidToken
		case isForeignKeyViolation(err, "ratings_store_id_fkey"):
			return false, domain.ErrStoreNotFound
		}
		return false, persistence("upsert rating", err)
	}
	return inserted, nil
}

func (r *RatingRepository) FindByID(ctx context.Context, id int64) (*domain.Rating, error) {
	rt, err := scanRating(conn(ctx, r.db).QueryRow(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRatingNotFound
		}
		return nil, persistence("find rating", err)
	}
	return rt, nil
}

func (r *RatingRepository) FindByUserAndStore(ctx context.Context, userID, storeID int64) (*domain.Rating, error) {
	rt, err := scanRating(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+ratingColumns+` FROM ratings WHERE user_id = $1 AND store_id = $2`, userID, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRatingNotFound
		}
		return nil, persistence("find user rating", err)
	}
	return rt, nil
}

func (r *RatingRepository) ListByStore(ctx context.Context, storeID int64) ([]*domain.Rating, error) {
	const q = `SELECT r.id, r.user_id, r.store_id, r.rating, r.comment, r.created_at, r.updated_at, u.name
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.store_id = $1
		ORDER BY r.created_at DESC, r.id DESC`

	rows, err := conn(ctx, r.db).Query(ctx, q, storeID)
	if err != nil {
		return nil, persistence("list store ratings", err)
	}
	defer rows.Close()

	ratings := []*domain.Rating{}
	for rows.Next() {
		var name string
		rt, err := scanRating(rows, &name)
		if err != nil {
			return nil, persistence("scan rating", err)
		}
		rt.UserName = name
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list store ratings", err)
	}
	return ratings, nil
}

func (r *RatingRepository) TotalsByStore(ctx context.Context, storeID int64) (domain.Totals, error) {
	var t domain.Totals
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM ratings WHERE store_id = $1`, storeID).
		Scan(&t.Count, &t.Sum)
	if err != nil {
		return domain.Totals{}, persistence("sum store ratings", err)
	}
	return t, nil
}

func (r *RatingRepository) Totals(ctx context.Context) (domain.Totals, error) {
	var t domain.Totals
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM ratings`).Scan(&t.Count, &t.Sum)
	if err != nil {
		return domain.Totals{}, persistence("sum ratings", err)
	}
	return t, nil
}

func (r *RatingRepository) StoreIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT DISTINCT store_id FROM ratings WHERE user_id = $1 ORDER BY store_id`, userID)
	if err != nil {
		return nil, persistence("list rated stores", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, persistence("scan store id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list rated stores", err)
	}
	return ids, nil
}

func (r *RatingRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return persistence("delete rating", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRatingNotFound
	}
	return nil
}

func (r *RatingRepository) DeleteByStore(ctx context.Context, storeID int64) error {
	if _, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM ratings WHERE store_id = $1`, storeID); err != nil {
		return persistence("delete store ratings", err)
	}
	return nil
}

func (r *RatingRepository) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM ratings WHERE user_id = $1`, userID); err != nil {
		return persistence("delete user ratings", err)
	}
	return nil
}
