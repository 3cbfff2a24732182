package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// HandoverRepository — доступ к актам передачи и их позициям.
type HandoverRepository interface {
	Create(ctx context.Context, h *model.HandoverRecord) error
	GetByID(ctx context.Context, id int64) (*model.HandoverRecord, error)
	// GetByNumber возвращает акт по номеру или ErrNotFound.
	GetByNumber(ctx context.Context, number string) (*model.HandoverRecord, error)
	List(ctx context.Context, f model.HandoverFilter) ([]*model.HandoverRecord, error)
	Count(ctx context.Context, f model.HandoverFilter) (int, error)
	Update(ctx context.Context, h *model.HandoverRecord) error

	// AddItem добавляет позицию. Повтор пары — ConstraintError(ErrConflict).
	AddItem(ctx context.Context, item *model.HandoverItem) error
	// RemoveItem удаляет позицию или возвращает ErrNotFound.
	RemoveItem(ctx context.Context, handoverID, archiveUnitID int64) error
	// Items возвращает позиции акта в порядке добавления.
	Items(ctx context.Context, handoverID int64) ([]*model.HandoverItem, error)
	// HasItem проверяет наличие пары (акт, единица хранения).
	HasItem(ctx context.Context, handoverID, archiveUnitID int64) (bool, error)
}

type handoverRepo struct {
	db DBTX
}

// NewHandoverRepository создаёт репозиторий актов передачи.
func NewHandoverRepository(db DBTX) HandoverRepository {
	return &handoverRepo{db: db}
}

const handoverSelect = `
	SELECT h.id, h.number, h.handover_date, h.origin_unit_id, h.destination_unit_id,
		h.recipient_name, h.recipient_title, h.notes, h.created_by,
		(SELECT COUNT(*) FROM berita_acara_arsip i WHERE i.handover_id = h.id),
		h.created_at, h.updated_at
	FROM berita_acara_penyerahan h`

func scanHandover(row pgx.Row) (*model.HandoverRecord, error) {
	h := &model.HandoverRecord{}
	err := row.Scan(&h.ID, &h.Number, &h.Date, &h.OriginUnitID, &h.DestinationUnitID,
		&h.RecipientName, &h.RecipientTitle, &h.Notes, &h.CreatedBy,
		&h.ItemCount, &h.CreatedAt, &h.UpdatedAt)
	return h, err
}

func (r *handoverRepo) Create(ctx context.Context, h *model.HandoverRecord) error {
	query := `
		INSERT INTO berita_acara_penyerahan (number, handover_date, origin_unit_id,
			destination_unit_id, recipient_name, recipient_title, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		h.Number, h.Date, h.OriginUnitID, h.DestinationUnitID,
		h.RecipientName, h.RecipientTitle, h.Notes, h.CreatedBy,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка создания акта передачи")
	}
	return nil
}

func (r *handoverRepo) GetByID(ctx context.Context, id int64) (*model.HandoverRecord, error) {
	h, err := scanHandover(r.db.QueryRow(ctx, handoverSelect+` WHERE h.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "ошибка получения акта передачи")
	}
	return h, nil
}

func (r *handoverRepo) GetByNumber(ctx context.Context, number string) (*model.HandoverRecord, error) {
	h, err := scanHandover(r.db.QueryRow(ctx, handoverSelect+` WHERE h.number = $1`, number))
	if err != nil {
		return nil, mapError(err, "ошибка получения акта передачи")
	}
	return h, nil
}

func handoverWhere(f model.HandoverFilter) *where {
	w := &where{}
	w.search(f.Search, "h.number", "h.recipient_name")
	if f.OriginUnitID != nil {
		w.eq("h.origin_unit_id", *f.OriginUnitID)
	}
	if f.DestinationUnitID != nil {
		w.eq("h.destination_unit_id", *f.DestinationUnitID)
	}
	if f.DateFrom != nil {
		w.add("h.handover_date >= " + w.arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		w.add("h.handover_date <= " + w.arg(*f.DateTo))
	}
	return w
}

func (r *handoverRepo) List(ctx context.Context, f model.HandoverFilter) ([]*model.HandoverRecord, error) {
	w := handoverWhere(f)
	query := fmt.Sprintf(`%s %s ORDER BY h.handover_date DESC, h.id DESC %s`,
		handoverSelect, w.sql(), w.page(f.Page.Limit(), f.Page.Offset()))

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка актов: %w", err)
	}
	defer rows.Close()

	var result []*model.HandoverRecord
	for rows.Next() {
		h, err := scanHandover(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования акта: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *handoverRepo) Count(ctx context.Context, f model.HandoverFilter) (int, error) {
	w := handoverWhere(f)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM berita_acara_penyerahan h `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта актов: %w", err)
	}
	return count, nil
}

func (r *handoverRepo) Update(ctx context.Context, h *model.HandoverRecord) error {
	query := `
		UPDATE berita_acara_penyerahan
		SET number = $2, handover_date = $3, origin_unit_id = $4, destination_unit_id = $5,
			recipient_name = $6, recipient_title = $7, notes = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_by, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		h.ID, h.Number, h.Date, h.OriginUnitID, h.DestinationUnitID,
		h.RecipientName, h.RecipientTitle, h.Notes,
	).Scan(&h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return mapError(err, "ошибка обновления акта передачи")
	}
	return nil
}

func (r *handoverRepo) AddItem(ctx context.Context, item *model.HandoverItem) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO berita_acara_arsip (handover_id, archive_unit_id, remarks)
		VALUES ($1, $2, $3) RETURNING id, created_at`,
		item.HandoverID, item.ArchiveUnitID, item.Remarks,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return mapError(err, "ошибка добавления позиции акта")
	}
	return nil
}

func (r *handoverRepo) RemoveItem(ctx context.Context, handoverID, archiveUnitID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM berita_acara_arsip WHERE handover_id = $1 AND archive_unit_id = $2`,
		handoverID, archiveUnitID)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции акта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *handoverRepo) Items(ctx context.Context, handoverID int64) ([]*model.HandoverItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, handover_id, archive_unit_id, remarks, created_at
		FROM berita_acara_arsip WHERE handover_id = $1 ORDER BY id`, handoverID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения позиций акта: %w", err)
	}
	defer rows.Close()

	var result []*model.HandoverItem
	for rows.Next() {
		it := &model.HandoverItem{}
		if err := rows.Scan(&it.ID, &it.HandoverID, &it.ArchiveUnitID, &it.Remarks, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции акта: %w", err)
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func (r *handoverRepo) HasItem(ctx context.Context, handoverID, archiveUnitID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM berita_acara_arsip WHERE handover_id = $1 AND archive_unit_id = $2)`,
		handoverID, archiveUnitID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки позиции акта: %w", err)
	}
	return exists, nil
}
