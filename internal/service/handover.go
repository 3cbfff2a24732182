// handover.go — сервис актов приёма-передачи (berita acara penyerahan).
// Заголовок акта и его позиции записываются в одной транзакции:
// при любой ошибке ни одна позиция не сохраняется.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
)

// handoversCreatedTotal — счётчик созданных актов.
var handoversCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ar_handovers_created_total",
	Help: "Количество созданных актов приёма-передачи.",
})

// HandoverInput — поля акта. Items учитываются только при создании.
type HandoverInput struct {
	Number            string
	Date              time.Time
	OriginUnitID      int64
	DestinationUnitID *int64
	RecipientName     *string
	RecipientTitle    *string
	Notes             string
	Items             []HandoverItemInput
}

// HandoverItemInput — позиция акта.
type HandoverItemInput struct {
	ArchiveUnitID int64
	Remarks       string
}

// HandoverService — сервис актов приёма-передачи.
type HandoverService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewHandoverService создаёт сервис актов.
func NewHandoverService(store repository.Store, logger *slog.Logger) *HandoverService {
	return &HandoverService{
		store:  store,
		logger: logger.With(slog.String("component", "handover_service")),
	}
}

// validate проверяет заголовок акта и возвращает модель (без ID).
func (in HandoverInput) validate() (*model.HandoverRecord, error) {
	number, err := required("number", in.Number)
	if err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, ValidationFailed("date", "required")
	}
	if in.OriginUnitID == 0 {
		return nil, ValidationFailed("origin_unit_id", "required")
	}
	if in.DestinationUnitID != nil && *in.DestinationUnitID == in.OriginUnitID {
		return nil, ValidationFailed("destination_unit_id", "must differ from origin")
	}

	h := &model.HandoverRecord{
		Number:            number,
		Date:              in.Date,
		OriginUnitID:      in.OriginUnitID,
		DestinationUnitID: in.DestinationUnitID,
		RecipientName:     trimPtr(in.RecipientName),
		RecipientTitle:    trimPtr(in.RecipientTitle),
		Notes:             in.Notes,
	}
	if h.DestinationUnitID == nil && h.RecipientName == nil {
		return nil, ValidationFailed("recipient_name", "destination unit or recipient required")
	}
	return h, nil
}

// checkHandoverRefs проверяет номер и подразделения акта.
func checkHandoverRefs(ctx context.Context, r repository.Repositories, h *model.HandoverRecord) error {
	other, err := r.Handovers.GetByNumber(ctx, h.Number)
	found, err := exists(err)
	if err != nil {
		return fmt.Errorf("проверка номера акта: %w", err)
	}
	if found && other.ID != h.ID {
		return ErrDuplicateNumber
	}

	refs := []struct {
		field string
		id    *int64
	}{
		{"origin_unit_id", &h.OriginUnitID},
		{"destination_unit_id", h.DestinationUnitID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		_, err := r.Units.GetByID(ctx, *ref.id)
		ok, err := exists(err)
		if err != nil {
			return fmt.Errorf("проверка подразделения: %w", err)
		}
		if !ok {
			return unknownUnit(ref.field)
		}
	}
	return nil
}

// CreateHandover создаёт акт вместе с позициями.
func (s *HandoverService) CreateHandover(ctx context.Context, actor model.Actor, in HandoverInput) (*model.HandoverRecord, error) {
	h, err := in.validate()
	if err != nil {
		return nil, err
	}
	if !rbac.CanWriteArchive(actor, &h.OriginUnitID) {
		return nil, ErrForbidden
	}
	h.CreatedBy = actor.UserID

	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := checkHandoverRefs(ctx, r, h); err != nil {
			return err
		}
		if err := r.Handovers.Create(ctx, h); err != nil {
			return handoverWriteError(err)
		}

		seen := make(map[int64]bool, len(in.Items))
		for _, it := range in.Items {
			if seen[it.ArchiveUnitID] {
				return ErrDuplicateItem
			}
			seen[it.ArchiveUnitID] = true
			if err := addItem(ctx, r, h.ID, it); err != nil {
				return err
			}
		}
		h.ItemCount = len(in.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	handoversCreatedTotal.Inc()

	s.logger.Info("Акт приёма-передачи создан",
		slog.Int64("id", h.ID),
		slog.String("number", h.Number),
		slog.Int("items", h.ItemCount),
		slog.String("actor", actor.Username),
	)
	return h, nil
}

// UpdateHandover изменяет заголовок акта. Позиции не меняются.
func (s *HandoverService) UpdateHandover(ctx context.Context, actor model.Actor, id int64, in HandoverInput) (*model.HandoverRecord, error) {
	h, err := in.validate()
	if err != nil {
		return nil, err
	}
	h.ID = id

	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		cur, err := r.Handovers.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, &cur.OriginUnitID) || !rbac.CanWriteArchive(actor, &h.OriginUnitID) {
			return ErrForbidden
		}
		if err := checkHandoverRefs(ctx, r, h); err != nil {
			return err
		}
		if err := r.Handovers.Update(ctx, h); err != nil {
			return handoverWriteError(err)
		}
		h.ItemCount = cur.ItemCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Акт приёма-передачи обновлён",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return h, nil
}

// AddItem включает единицу хранения в акт.
func (s *HandoverService) AddItem(ctx context.Context, actor model.Actor, handoverID int64, item HandoverItemInput) error {
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		h, err := r.Handovers.GetByID(ctx, handoverID)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, &h.OriginUnitID) {
			return ErrForbidden
		}
		return addItem(ctx, r, handoverID, item)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Единица хранения включена в акт",
		slog.Int64("handover_id", handoverID),
		slog.Int64("archive_unit_id", item.ArchiveUnitID),
		slog.String("actor", actor.Username),
	)
	return nil
}

// addItem проверяет и записывает одну позицию акта.
func addItem(ctx context.Context, r repository.Repositories, handoverID int64, in HandoverItemInput) error {
	_, err := r.ArchiveUnits.GetByID(ctx, in.ArchiveUnitID)
	ok, err := exists(err)
	if err != nil {
		return fmt.Errorf("проверка единицы хранения: %w", err)
	}
	if !ok {
		return ErrUnknownArchiveUnit
	}

	dup, err := r.Handovers.HasItem(ctx, handoverID, in.ArchiveUnitID)
	if err != nil {
		return fmt.Errorf("проверка позиции акта: %w", err)
	}
	if dup {
		return ErrDuplicateItem
	}

	item := &model.HandoverItem{
		HandoverID:    handoverID,
		ArchiveUnitID: in.ArchiveUnitID,
		Remarks:       strings.TrimSpace(in.Remarks),
	}
	if err := r.Handovers.AddItem(ctx, item); err != nil {
		return handoverWriteError(err)
	}
	return nil
}

// RemoveItem исключает единицу хранения из акта.
func (s *HandoverService) RemoveItem(ctx context.Context, actor model.Actor, handoverID, archiveUnitID int64) error {
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		h, err := r.Handovers.GetByID(ctx, handoverID)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, &h.OriginUnitID) {
			return ErrForbidden
		}
		return notFound(r.Handovers.RemoveItem(ctx, handoverID, archiveUnitID))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Единица хранения исключена из акта",
		slog.Int64("handover_id", handoverID),
		slog.Int64("archive_unit_id", archiveUnitID),
		slog.String("actor", actor.Username),
	)
	return nil
}

// DeleteHandover удаляет акт вместе с позициями.
func (s *HandoverService) DeleteHandover(ctx context.Context, actor model.Actor, id int64) error {
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		h, err := r.Handovers.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, &h.OriginUnitID) {
			return ErrForbidden
		}
		return deleteRow(ctx, r, model.TableHandovers, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Акт приёма-передачи удалён",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// GetHandover возвращает акт с позициями и названиями подразделений.
// Позиции с единицами хранения, которые viewer не видит, не выдаются,
// ItemCount считает только видимые.
func (s *HandoverService) GetHandover(ctx context.Context, viewer model.Actor, id int64) (*model.HandoverDetail, error) {
	r := s.store.Repositories()
	h, err := r.Handovers.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	d := &model.HandoverDetail{HandoverRecord: *h}
	if origin, err := r.Units.GetByID(ctx, h.OriginUnitID); err == nil {
		d.OriginUnitName = origin.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if h.DestinationUnitID != nil {
		if dest, err := r.Units.GetByID(ctx, *h.DestinationUnitID); err == nil {
			d.DestinationUnitName = &dest.Name
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if creator, err := r.Users.GetByID(ctx, h.CreatedBy); err == nil {
		d.CreatorName = creator.FullName
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	vis := rbac.VisibilityFor(viewer)
	items, err := r.Handovers.Items(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("позиции акта: %w", err)
	}
	d.Items = make([]model.HandoverItemDetail, 0, len(items))
	for _, it := range items {
		u, err := r.ArchiveUnits.GetByID(ctx, it.ArchiveUnitID)
		if err != nil {
			return nil, fmt.Errorf("единица хранения %d: %w", it.ArchiveUnitID, err)
		}
		if !vis.Allows(u) {
			continue
		}
		d.Items = append(d.Items, model.HandoverItemDetail{
			HandoverItem: *it,
			Unit: model.ArchiveUnitSummary{
				ID:                 u.ID,
				ClassificationCode: u.ClassificationCode,
				IndexTerms:         u.IndexTerms,
				Description:        u.Description,
				Amount:             u.Amount,
				AmountUnit:         u.AmountUnit,
				Status:             u.Status,
			},
		})
	}
	d.ItemCount = len(d.Items)
	return d, nil
}

// ListHandovers возвращает страницу актов. Для viewer с ограниченной
// видимостью ItemCount пересчитывается по видимым позициям.
func (s *HandoverService) ListHandovers(ctx context.Context, viewer model.Actor, f model.HandoverFilter) (model.PageResult[*model.HandoverRecord], error) {
	f.Page = pageOf(f.Page)
	r := s.store.Repositories()
	res, err := listPage(f.Page,
		func() ([]*model.HandoverRecord, error) { return r.Handovers.List(ctx, f) },
		func() (int, error) { return r.Handovers.Count(ctx, f) },
	)
	if err != nil {
		return res, err
	}

	vis := rbac.VisibilityFor(viewer)
	if vis.All {
		return res, nil
	}
	for _, h := range res.Items {
		n, err := visibleItemCount(ctx, r, vis, h.ID)
		if err != nil {
			return res, err
		}
		h.ItemCount = n
	}
	return res, nil
}

func visibleItemCount(ctx context.Context, r repository.Repositories, vis model.Visibility, handoverID int64) (int, error) {
	items, err := r.Handovers.Items(ctx, handoverID)
	if err != nil {
		return 0, fmt.Errorf("позиции акта %d: %w", handoverID, err)
	}
	n := 0
	for _, it := range items {
		u, err := r.ArchiveUnits.GetByID(ctx, it.ArchiveUnitID)
		if err != nil {
			return 0, fmt.Errorf("единица хранения %d: %w", it.ArchiveUnitID, err)
		}
		if vis.Allows(u) {
			n++
		}
	}
	return n, nil
}

// handoverWriteError переводит ошибки записи акта и позиций.
func handoverWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		if repository.ConstraintOf(err) == repository.ConstraintHandoverItemUnique {
			return ErrDuplicateItem
		}
		return ErrDuplicateNumber
	case errors.Is(err, repository.ErrReferenced):
		switch repository.ConstraintOf(err) {
		case "berita_acara_arsip_archive_unit_fkey":
			return ErrUnknownArchiveUnit
		case "berita_acara_arsip_handover_fkey":
			return ErrNotFound
		case "berita_acara_penyerahan_created_by_fkey":
			return UnknownReference("created_by")
		case "berita_acara_penyerahan_origin_fkey":
			return unknownUnit("origin_unit_id")
		case "berita_acara_penyerahan_destination_fkey":
			return unknownUnit("destination_unit_id")
		}
		return ErrUnknownUnit
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись акта: %w", err)
	}
}
