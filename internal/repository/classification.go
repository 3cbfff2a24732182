package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ClassificationRepository — доступ к таблице kode_klasifikasi.
type ClassificationRepository interface {
	// Create добавляет код. Дубликат кода — ConstraintError(ErrConflict).
	Create(ctx context.Context, c *model.ClassificationCode) error
	// GetByCode возвращает код или ErrNotFound.
	GetByCode(ctx context.Context, code string) (*model.ClassificationCode, error)
	// List возвращает страницу кодов, упорядоченных по коду.
	List(ctx context.Context, f model.ClassificationFilter) ([]*model.ClassificationCode, error)
	// Count возвращает количество кодов по фильтру.
	Count(ctx context.Context, f model.ClassificationFilter) (int, error)
	// All возвращает все коды (для построения дерева и обхода предков).
	All(ctx context.Context) ([]model.ClassificationCode, error)
	// Update обновляет всё, кроме самого кода.
	Update(ctx context.Context, c *model.ClassificationCode) error
	// LockHierarchy блокирует иерархию до конца транзакции от параллельных переназначений родителя.
	LockHierarchy(ctx context.Context) error
}

type classificationRepo struct {
	db DBTX
}

// NewClassificationRepository создаёт репозиторий кодов классификации.
func NewClassificationRepository(db DBTX) ClassificationRepository {
	return &classificationRepo{db: db}
}

const classificationColumns = `id, code, parent_code, description,
	active_retention_years, inactive_retention_years,
	final_disposition, security_classification, created_at, updated_at`

func scanClassification(row pgx.Row) (*model.ClassificationCode, error) {
	c := &model.ClassificationCode{}
	err := row.Scan(&c.ID, &c.Code, &c.ParentCode, &c.Description,
		&c.ActiveRetentionYears, &c.InactiveRetentionYears,
		&c.FinalDisposition, &c.SecurityClassification, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *classificationRepo) Create(ctx context.Context, c *model.ClassificationCode) error {
	query := `
		INSERT INTO kode_klasifikasi (code, parent_code, description,
			active_retention_years, inactive_retention_years,
			final_disposition, security_classification)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.Code, c.ParentCode, c.Description,
		c.ActiveRetentionYears, c.InactiveRetentionYears,
		string(c.FinalDisposition), string(c.SecurityClassification),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания кода классификации")
	}
	return nil
}

func (r *classificationRepo) GetByCode(ctx context.Context, code string) (*model.ClassificationCode, error) {
	query := `SELECT ` + classificationColumns + ` FROM kode_klasifikasi WHERE code = $1`

	c, err := scanClassification(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, mapError(err, "ошибка получения кода классификации")
	}
	return c, nil
}

func classificationWhere(f model.ClassificationFilter) *where {
	w := &where{}
	w.search(f.Search, "code", "description")
	if f.ParentCode != nil {
		w.eq("parent_code", *f.ParentCode)
	}
	if f.RootOnly {
		w.add("parent_code IS NULL")
	}
	return w
}

func (r *classificationRepo) List(ctx context.Context, f model.ClassificationFilter) ([]*model.ClassificationCode, error) {
	w := classificationWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM kode_klasifikasi %s ORDER BY code %s`,
		classificationColumns, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка кодов классификации: %w", err)
	}
	defer rows.Close()

	var result []*model.ClassificationCode
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования кода классификации: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *classificationRepo) Count(ctx context.Context, f model.ClassificationFilter) (int, error) {
	w := classificationWhere(f)

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kode_klasifikasi `+w.sql(), w.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта кодов классификации: %w", err)
	}
	return count, nil
}

func (r *classificationRepo) All(ctx context.Context) ([]model.ClassificationCode, error) {
	rows, err := r.db.Query(ctx, `SELECT `+classificationColumns+` FROM kode_klasifikasi ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кодов классификации: %w", err)
	}
	defer rows.Close()

	var result []model.ClassificationCode
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования кода классификации: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *classificationRepo) Update(ctx context.Context, c *model.ClassificationCode) error {
	query := `
		UPDATE kode_klasifikasi
		SET parent_code = $2, description = $3,
			active_retention_years = $4, inactive_retention_years = $5,
			final_disposition = $6, security_classification = $7,
			updated_at = NOW()
		WHERE code = $1
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.Code, c.ParentCode, c.Description,
		c.ActiveRetentionYears, c.InactiveRetentionYears,
		string(c.FinalDisposition), string(c.SecurityClassification),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления кода классификации")
	}
	return nil
}

func (r *classificationRepo) LockHierarchy(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `LOCK TABLE kode_klasifikasi IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("ошибка блокировки иерархии кодов: %w", err)
	}
	return nil
}
