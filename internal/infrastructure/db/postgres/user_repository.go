package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

const userColumns = `id, name, email, password_hash, address, role, store_id, created_at, updated_at`

// UserRepository persists users in the users table.
type UserRepository struct {
	db DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u       domain.User
		role    string
		storeID pgtype.Int8
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Address, &role, &storeID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.StoreID = int64Ptr(storeID)
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	const q = `INSERT INTO users (name, email, password_hash, address, role, store_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := conn(ctx, r.db).QueryRow(ctx, q, u.Name, u.Email, u.PasswordHash, u.Address, string(u.Role), u.StoreID).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return persistence("create user", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistence("find user by id", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, persistence("find user by email", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, filter ports.ListUsersFilter) ([]*domain.User, error) {
	var w where
	if filter.Name != "" {
		w.add("name ILIKE $%d", contains(filter.Name))
	}
	if filter.Email != "" {
		w.add("email ILIKE $%d", contains(filter.Email))
	}
	if filter.Address != "" {
		w.add("address ILIKE $%d", contains(filter.Address))
	}
	if filter.Role != "" {
		w.add("role = $%d", string(filter.Role))
	}

	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, persistence("list users", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, persistence("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

// Update writes every mutable column except the password hash.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	const q = `UPDATE users
		SET name = $2, email = $3, address = $4, role = $5, store_id = $6
		WHERE id = $1
		RETURNING updated_at`

	err := conn(ctx, r.db).QueryRow(ctx, q, u.ID, u.Name, u.Email, u.Address, string(u.Role), u.StoreID).Scan(&u.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.ErrUserNotFound
		case isUniqueViolation(err):
			return domain.ErrEmailTaken
		}
		return persistence("update user", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return persistence("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return persistence("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, string(role)).Scan(&exists)
	if err != nil {
		return false, persistence("check role exists", err)
	}
	return exists, nil
}

// ResetStoreOwners demotes every user pointing at storeID.
func (r *UserRepository) ResetStoreOwners(ctx context.Context, storeID int64) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE users SET role = $2, store_id = NULL WHERE store_id = $1`,
		storeID, string(domain.RoleUser))
	if err != nil {
		return 0, persistence("reset store owners", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, persistence("count users by role", err)
	}
	defer rows.Close()

	counts := make(map[domain.Role]int64)
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, persistence("scan role count", err)
		}
		counts[domain.Role(role)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("count users by role", err)
	}
	return counts, nil
}
