package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository defines persistence access for users, including the magic token columns.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListActiveAdmins(ctx context.Context) ([]domain.User, error)
	// FindOrCreateGuest returns the user for email, creating a GUEST when absent.
	// An existing non-guest gets its name refreshed. Runs in one transaction.
	FindOrCreateGuest(ctx context.Context, name, email string) (*domain.User, error)

	SetMagicToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ClearMagicToken(ctx context.Context, userID string) error
	GetByMagicToken(ctx context.Context, token string) (*domain.User, error)
}

const userColumns = `id, name, email, password_hash, role, is_active, magic_token, magic_token_exp, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if !validID(user.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (r *userRepository) ListActiveAdmins(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role=$1 AND is_active ORDER BY created_at ASC`, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) FindOrCreateGuest(ctx context.Context, name, email string) (*domain.User, error) {
	var user *domain.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1) FOR UPDATE`, email))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			created := &domain.User{Name: name, Email: email, Role: domain.RoleGuest, IsActive: true}
			if err := tx.QueryRow(ctx, `
                INSERT INTO users (name, email, password_hash, role, is_active)
                VALUES ($1, $2, '', $3, TRUE)
                RETURNING id, created_at, updated_at`,
				created.Name, created.Email, created.Role,
			).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
				return err
			}
			user = created
			return nil
		case err != nil:
			return err
		}

		if existing.Role != domain.RoleGuest && existing.Name != name {
			if _, err := tx.Exec(ctx, `UPDATE users SET name=$1, updated_at=NOW() WHERE id=$2`, name, existing.ID); err != nil {
				return err
			}
			existing.Name = name
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SetMagicToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if !validID(userID) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET magic_token=$1, magic_token_exp=$2, updated_at=NOW() WHERE id=$3`, token, expiresAt, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ClearMagicToken(ctx context.Context, userID string) error {
	if !validID(userID) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET magic_token=NULL, magic_token_exp=NULL, updated_at=NOW() WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByMagicToken(ctx context.Context, token string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE magic_token=$1`, token))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.MagicToken,
		&user.MagicTokenExp,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
