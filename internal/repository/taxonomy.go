package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ProcessingUnitRepository — доступ к таблице unit_pengolah.
type ProcessingUnitRepository interface {
	Create(ctx context.Context, u *model.ProcessingUnit) error
	GetByID(ctx context.Context, id int64) (*model.ProcessingUnit, error)
	List(ctx context.Context, f model.TaxonomyFilter) ([]*model.ProcessingUnit, error)
	Count(ctx context.Context, f model.TaxonomyFilter) (int, error)
	Update(ctx context.Context, u *model.ProcessingUnit) error
}

// CategoryRepository — доступ к таблице kategori.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	// List возвращает категории с количеством подкатегорий.
	List(ctx context.Context, f model.TaxonomyFilter) ([]*model.Category, error)
	Count(ctx context.Context, f model.TaxonomyFilter) (int, error)
	Update(ctx context.Context, c *model.Category) error
}

// SubCategoryRepository — доступ к таблице sub_kategori.
type SubCategoryRepository interface {
	Create(ctx context.Context, s *model.SubCategory) error
	GetByID(ctx context.Context, id int64) (*model.SubCategory, error)
	ListByCategory(ctx context.Context, categoryID int64, f model.TaxonomyFilter) ([]*model.SubCategory, error)
	CountByCategory(ctx context.Context, categoryID int64, f model.TaxonomyFilter) (int, error)
	Update(ctx context.Context, s *model.SubCategory) error
}

// --- unit_pengolah ---

type processingUnitRepo struct {
	db DBTX
}

// NewProcessingUnitRepository создаёт репозиторий подразделений.
func NewProcessingUnitRepository(db DBTX) ProcessingUnitRepository {
	return &processingUnitRepo{db: db}
}

func scanProcessingUnit(row pgx.Row) (*model.ProcessingUnit, error) {
	u := &model.ProcessingUnit{}
	err := row.Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *processingUnitRepo) Create(ctx context.Context, u *model.ProcessingUnit) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO unit_pengolah (name, code) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		u.Name, u.Code,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания подразделения")
	}
	return nil
}

func (r *processingUnitRepo) GetByID(ctx context.Context, id int64) (*model.ProcessingUnit, error) {
	u, err := scanProcessingUnit(r.db.QueryRow(ctx,
		`SELECT id, name, code, created_at, updated_at FROM unit_pengolah WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения подразделения")
	}
	return u, nil
}

func (r *processingUnitRepo) List(ctx context.Context, f model.TaxonomyFilter) ([]*model.ProcessingUnit, error) {
	w := &where{}
	w.search(f.Search, "name", "code")
	query := fmt.Sprintf(`SELECT id, name, code, created_at, updated_at FROM unit_pengolah %s ORDER BY name %s`,
		w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка подразделений: %w", err)
	}
	defer rows.Close()

	var result []*model.ProcessingUnit
	for rows.Next() {
		u, err := scanProcessingUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подразделения: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *processingUnitRepo) Count(ctx context.Context, f model.TaxonomyFilter) (int, error) {
	w := &where{}
	w.search(f.Search, "name", "code")

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM unit_pengolah `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта подразделений: %w", err)
	}
	return count, nil
}

func (r *processingUnitRepo) Update(ctx context.Context, u *model.ProcessingUnit) error {
	err := r.db.QueryRow(ctx,
		`UPDATE unit_pengolah SET name = $2, code = $3, updated_at = NOW()
		WHERE id = $1 RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Code,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления подразделения")
	}
	return nil
}

// --- kategori ---

type categoryRepo struct {
	db DBTX
}

// NewCategoryRepository создаёт репозиторий категорий.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepo{db: db}
}

const categorySelect = `
	SELECT k.id, k.name, k.description,
		(SELECT COUNT(*) FROM sub_kategori s WHERE s.kategori_id = k.id),
		k.created_at, k.updated_at
	FROM kategori k`

func scanCategory(row pgx.Row) (*model.Category, error) {
	c := &model.Category{}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.SubCategoryCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *categoryRepo) Create(ctx context.Context, c *model.Category) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO kategori (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания категории")
	}
	return nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, categorySelect+` WHERE k.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения категории")
	}
	return c, nil
}

func (r *categoryRepo) List(ctx context.Context, f model.TaxonomyFilter) ([]*model.Category, error) {
	w := &where{}
	w.search(f.Search, "k.name", "k.description")
	query := fmt.Sprintf(`%s %s ORDER BY k.name %s`, categorySelect, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка категорий: %w", err)
	}
	defer rows.Close()

	var result []*model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования категории: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *categoryRepo) Count(ctx context.Context, f model.TaxonomyFilter) (int, error) {
	w := &where{}
	w.search(f.Search, "k.name", "k.description")

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kategori k `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта категорий: %w", err)
	}
	return count, nil
}

func (r *categoryRepo) Update(ctx context.Context, c *model.Category) error {
	err := r.db.QueryRow(ctx,
		`UPDATE kategori SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Description,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления категории")
	}
	return nil
}

// --- sub_kategori ---

type subCategoryRepo struct {
	db DBTX
}

// NewSubCategoryRepository создаёт репозиторий подкатегорий.
func NewSubCategoryRepository(db DBTX) SubCategoryRepository {
	return &subCategoryRepo{db: db}
}

const subCategoryColumns = `id, kategori_id, name, description, created_at, updated_at`

func scanSubCategory(row pgx.Row) (*model.SubCategory, error) {
	s := &model.SubCategory{}
	err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *subCategoryRepo) Create(ctx context.Context, s *model.SubCategory) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO sub_kategori (kategori_id, name, description) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		s.CategoryID, s.Name, s.Description,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания подкатегории")
	}
	return nil
}

func (r *subCategoryRepo) GetByID(ctx context.Context, id int64) (*model.SubCategory, error) {
	s, err := scanSubCategory(r.db.QueryRow(ctx,
		`SELECT `+subCategoryColumns+` FROM sub_kategori WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения подкатегории")
	}
	return s, nil
}

func subCategoryWhere(categoryID int64, f model.TaxonomyFilter) *where {
	w := &where{}
	w.eq("kategori_id", categoryID)
	w.search(f.Search, "name", "description")
	return w
}

func (r *subCategoryRepo) ListByCategory(ctx context.Context, categoryID int64, f model.TaxonomyFilter) ([]*model.SubCategory, error) {
	w := subCategoryWhere(categoryID, f)
	query := fmt.Sprintf(`SELECT %s FROM sub_kategori %s ORDER BY name %s`,
		subCategoryColumns, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка подкатегорий: %w", err)
	}
	defer rows.Close()

	var result []*model.SubCategory
	for rows.Next() {
		s, err := scanSubCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования подкатегории: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *subCategoryRepo) CountByCategory(ctx context.Context, categoryID int64, f model.TaxonomyFilter) (int, error) {
	w := subCategoryWhere(categoryID, f)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sub_kategori `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта подкатегорий: %w", err)
	}
	return count, nil
}

func (r *subCategoryRepo) Update(ctx context.Context, s *model.SubCategory) error {
	err := r.db.QueryRow(ctx,
		`UPDATE sub_kategori SET kategori_id = $2, name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 RETURNING created_at, updated_at`,
		s.ID, s.CategoryID, s.Name, s.Description,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления подкатегории")
	}
	return nil
}
