package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// UserRepository — доступ к таблице users.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, f model.UserFilter) ([]*model.User, error)
	Count(ctx context.Context, f model.UserFilter) (int, error)
	Update(ctx context.Context, u *model.User) error
}

type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, full_name, email, role, processing_unit_id, active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role,
		&u.ProcessingUnitID, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, full_name, email, role, processing_unit_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		u.Username, u.FullName, u.Email, u.Role, u.ProcessingUnitID, u.Active,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания пользователя")
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения пользователя")
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapError(err, "ошибка получения пользователя")
	}
	return u, nil
}

func userWhere(f model.UserFilter) *where {
	w := &where{}
	w.search(f.Search, "username", "full_name", "email")
	if f.Role != nil {
		w.eq("role", *f.Role)
	}
	return w
}

func (r *userRepo) List(ctx context.Context, f model.UserFilter) ([]*model.User, error) {
	w := userWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY username %s`,
		userColumns, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context, f model.UserFilter) (int, error) {
	w := userWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET username = $2, full_name = $3, email = $4, role = $5,
			processing_unit_id = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.FullName, u.Email, u.Role, u.ProcessingUnitID, u.Active,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления пользователя")
	}
	return nil
}
