package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ArchiveFileRepository — доступ к таблице berkas_arsip.
type ArchiveFileRepository interface {
	Create(ctx context.Context, f *model.ArchiveFile) error
	GetByID(ctx context.Context, id int64) (*model.ArchiveFile, error)
	List(ctx context.Context, f model.ArchiveFileFilter) ([]*model.ArchiveFile, error)
	Count(ctx context.Context, f model.ArchiveFileFilter) (int, error)
	Update(ctx context.Context, f *model.ArchiveFile) error
}

type archiveFileRepo struct {
	db DBTX
}

// NewArchiveFileRepository создаёт репозиторий дел.
func NewArchiveFileRepository(db DBTX) ArchiveFileRepository {
	return &archiveFileRepo{db: db}
}

const archiveFileColumns = `id, name, classification_code, processing_unit_id,
	active_retention_years, inactive_retention_years,
	physical_location, description, created_by, created_at, updated_at`

func scanArchiveFile(row pgx.Row) (*model.ArchiveFile, error) {
	f := &model.ArchiveFile{}
	err := row.Scan(&f.ID, &f.Name, &f.ClassificationCode, &f.ProcessingUnitID,
		&f.ActiveRetentionYears, &f.InactiveRetentionYears,
		&f.PhysicalLocation, &f.Description, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *archiveFileRepo) Create(ctx context.Context, f *model.ArchiveFile) error {
	query := `
		INSERT INTO berkas_arsip (name, classification_code, processing_unit_id,
			active_retention_years, inactive_retention_years,
			physical_location, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.Name, f.ClassificationCode, f.ProcessingUnitID,
		f.ActiveRetentionYears, f.InactiveRetentionYears,
		f.PhysicalLocation, f.Description, f.CreatedBy,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания дела")
	}
	return nil
}

func (r *archiveFileRepo) GetByID(ctx context.Context, id int64) (*model.ArchiveFile, error) {
	f, err := scanArchiveFile(r.db.QueryRow(ctx,
		`SELECT `+archiveFileColumns+` FROM berkas_arsip WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения дела")
	}
	return f, nil
}

func archiveFileWhere(f model.ArchiveFileFilter) *where {
	w := &where{}
	w.search(f.Search, "name", "description", "physical_location")
	if f.ClassificationCode != nil {
		w.eq("classification_code", *f.ClassificationCode)
	}
	if f.ProcessingUnitID != nil {
		w.eq("processing_unit_id", *f.ProcessingUnitID)
	}
	return w
}

func (r *archiveFileRepo) List(ctx context.Context, f model.ArchiveFileFilter) ([]*model.ArchiveFile, error) {
	w := archiveFileWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM berkas_arsip %s ORDER BY created_at DESC, id DESC %s`,
		archiveFileColumns, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка дел: %w", err)
	}
	defer rows.Close()

	var result []*model.ArchiveFile
	for rows.Next() {
		af, err := scanArchiveFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования дела: %w", err)
		}
		result = append(result, af)
	}
	return result, rows.Err()
}

func (r *archiveFileRepo) Count(ctx context.Context, f model.ArchiveFileFilter) (int, error) {
	w := archiveFileWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM berkas_arsip `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта дел: %w", err)
	}
	return count, nil
}

func (r *archiveFileRepo) Update(ctx context.Context, f *model.ArchiveFile) error {
	query := `
		UPDATE berkas_arsip
		SET name = $2, classification_code = $3, processing_unit_id = $4,
			active_retention_years = $5, inactive_retention_years = $6,
			physical_location = $7, description = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_by, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.Name, f.ClassificationCode, f.ProcessingUnitID,
		f.ActiveRetentionYears, f.InactiveRetentionYears,
		f.PhysicalLocation, f.Description,
	).Scan(&f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления дела")
	}
	return nil
}
