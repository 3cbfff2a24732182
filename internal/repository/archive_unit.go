package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ArchiveUnitRepository — доступ к таблице arsip_unit.
type ArchiveUnitRepository interface {
	Create(ctx context.Context, u *model.ArchiveUnit) error
	GetByID(ctx context.Context, id int64) (*model.ArchiveUnit, error)
	List(ctx context.Context, f model.ArchiveUnitFilter) ([]*model.ArchiveUnit, error)
	Count(ctx context.Context, f model.ArchiveUnitFilter) (int, error)
	// Update обновляет описательные поля и ссылки, не затрагивая статусы.
	Update(ctx context.Context, u *model.ArchiveUnit) error
	// SetStatus меняет статус проверки и записывает проверяющего, время и примечание.
	SetStatus(ctx context.Context, id int64, status model.ArchiveStatus, verifiedBy int64, verifiedAt time.Time, notes *string) error
	// SetPublishStatus меняет только статус публикации.
	SetPublishStatus(ctx context.Context, id int64, publish model.PublishStatus) error
}

type archiveUnitRepo struct {
	db DBTX
}

// NewArchiveUnitRepository создаёт репозиторий единиц хранения.
func NewArchiveUnitRepository(db DBTX) ArchiveUnitRepository {
	return &archiveUnitRepo{db: db}
}

const archiveUnitColumns = `id, classification_code, processing_unit_id, archive_file_id,
	category_id, sub_category_id, index_terms, description, item_date,
	amount, amount_unit, location_room, location_cabinet, location_drawer,
	location_folder, location_box, remarks, status, publish_status,
	verified_by, verified_at, verification_notes, submitted_at,
	created_by, created_at, updated_at`

func scanArchiveUnit(row pgx.Row) (*model.ArchiveUnit, error) {
	u := &model.ArchiveUnit{}
	err := row.Scan(&u.ID, &u.ClassificationCode, &u.ProcessingUnitID, &u.ArchiveFileID,
		&u.CategoryID, &u.SubCategoryID, &u.IndexTerms, &u.Description, &u.ItemDate,
		&u.Amount, &u.AmountUnit, &u.Location.Room, &u.Location.Cabinet, &u.Location.Drawer,
		&u.Location.Folder, &u.Location.Box, &u.Remarks, &u.Status, &u.PublishStatus,
		&u.VerifiedBy, &u.VerifiedAt, &u.VerificationNotes, &u.SubmittedAt,
		&u.CreatedBy, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *archiveUnitRepo) Create(ctx context.Context, u *model.ArchiveUnit) error {
	query := `
		INSERT INTO arsip_unit (classification_code, processing_unit_id, archive_file_id,
			category_id, sub_category_id, index_terms, description, item_date,
			amount, amount_unit, location_room, location_cabinet, location_drawer,
			location_folder, location_box, remarks, status, publish_status,
			submitted_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ClassificationCode, u.ProcessingUnitID, u.ArchiveFileID,
		u.CategoryID, u.SubCategoryID, u.IndexTerms, u.Description, u.ItemDate,
		u.Amount, u.AmountUnit, u.Location.Room, u.Location.Cabinet, u.Location.Drawer,
		u.Location.Folder, u.Location.Box, u.Remarks, string(u.Status), string(u.PublishStatus),
		u.SubmittedAt, u.CreatedBy,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания единицы хранения")
	}
	return nil
}

func (r *archiveUnitRepo) GetByID(ctx context.Context, id int64) (*model.ArchiveUnit, error) {
	u, err := scanArchiveUnit(r.db.QueryRow(ctx,
		`SELECT `+archiveUnitColumns+` FROM arsip_unit WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения единицы хранения")
	}
	return u, nil
}

func archiveUnitWhere(f model.ArchiveUnitFilter) *where {
	w := &where{}
	w.search(f.Search, "index_terms", "description", "remarks")
	if f.Status != nil {
		w.eq("status", string(*f.Status))
	}
	if f.PublishStatus != nil {
		w.eq("publish_status", string(*f.PublishStatus))
	}
	if f.ProcessingUnitID != nil {
		w.eq("processing_unit_id", *f.ProcessingUnitID)
	}
	if f.CategoryID != nil {
		w.eq("category_id", *f.CategoryID)
	}
	if f.SubCategoryID != nil {
		w.eq("sub_category_id", *f.SubCategoryID)
	}
	if f.ArchiveFileID != nil {
		w.eq("archive_file_id", *f.ArchiveFileID)
	}
	if f.ClassificationCode != nil {
		w.eq("classification_code", *f.ClassificationCode)
	}
	visibilityWhere(w, f.Visibility)
	return w
}

// visibilityWhere ограничивает выборку опубликованными и единицами своего подразделения.
func visibilityWhere(w *where, v model.Visibility) {
	switch {
	case v.All:
	case v.ProcessingUnitID != nil:
		w.add(fmt.Sprintf("(publish_status = 'published' OR processing_unit_id = %s)", w.arg(*v.ProcessingUnitID)))
	default:
		w.add("publish_status = 'published'")
	}
}

func (r *archiveUnitRepo) List(ctx context.Context, f model.ArchiveUnitFilter) ([]*model.ArchiveUnit, error) {
	w := archiveUnitWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM arsip_unit %s ORDER BY submitted_at DESC, id DESC %s`,
		archiveUnitColumns, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка единиц хранения: %w", err)
	}
	defer rows.Close()

	var result []*model.ArchiveUnit
	for rows.Next() {
		u, err := scanArchiveUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования единицы хранения: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *archiveUnitRepo) Count(ctx context.Context, f model.ArchiveUnitFilter) (int, error) {
	w := archiveUnitWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM arsip_unit `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта единиц хранения: %w", err)
	}
	return count, nil
}

func (r *archiveUnitRepo) Update(ctx context.Context, u *model.ArchiveUnit) error {
	query := `
		UPDATE arsip_unit
		SET classification_code = $2, processing_unit_id = $3, archive_file_id = $4,
			category_id = $5, sub_category_id = $6, index_terms = $7, description = $8,
			item_date = $9, amount = $10, amount_unit = $11, location_room = $12,
			location_cabinet = $13, location_drawer = $14, location_folder = $15,
			location_box = $16, remarks = $17, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + archiveUnitColumns

	updated, err := scanArchiveUnit(r.db.QueryRow(ctx, query,
		u.ID, u.ClassificationCode, u.ProcessingUnitID, u.ArchiveFileID,
		u.CategoryID, u.SubCategoryID, u.IndexTerms, u.Description,
		u.ItemDate, u.Amount, u.AmountUnit, u.Location.Room,
		u.Location.Cabinet, u.Location.Drawer, u.Location.Folder,
		u.Location.Box, u.Remarks,
	))
	if err != nil {
		return mapError(err, "ошибка обновления единицы хранения")
	}
	*u = *updated
	return nil
}

func (r *archiveUnitRepo) SetStatus(ctx context.Context, id int64, status model.ArchiveStatus, verifiedBy int64, verifiedAt time.Time, notes *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE arsip_unit
		SET status = $2, verified_by = $3, verified_at = $4, verification_notes = $5, updated_at = NOW()
		WHERE id = $1`,
		id, string(status), verifiedBy, verifiedAt, notes)
	if err != nil {
		return mapError(err, "ошибка смены статуса единицы хранения")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *archiveUnitRepo) SetPublishStatus(ctx context.Context, id int64, publish model.PublishStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE arsip_unit SET publish_status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(publish))
	if err != nil {
		return mapError(err, "ошибка смены статуса публикации")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
