// archive_units.go — сервис единиц хранения (arsip unit).
// Регистрация, проверка (status), публикация (publish_status), видимость по ролям.
// status и publish_status независимы: смена одного не трогает другой.
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
	"github.com/bigkaa/goarsip/internal/domain/retention"
	"github.com/bigkaa/goarsip/internal/repository"
)

// archiveUnitStatusChanges — счётчик смен статуса проверки.
var archiveUnitStatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ar_archive_unit_status_changes_total",
	Help: "Количество смен статуса проверки единиц хранения.",
}, []string{"status"})

// ArchiveUnitInput — описательные поля и ссылки единицы хранения.
// Amount обязателен: nil — ошибка валидации, 0 — допустимое значение.
type ArchiveUnitInput struct {
	ClassificationCode *string
	ProcessingUnitID   *int64
	ArchiveFileID      *int64
	CategoryID         *int64
	SubCategoryID      *int64
	IndexTerms         string
	Description        string
	ItemDate           *time.Time
	Amount             *int
	AmountUnit         string
	Location           model.Location
	Remarks            string
}

// ArchiveUnitService — сервис единиц хранения.
type ArchiveUnitService struct {
	store  repository.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewArchiveUnitService создаёт сервис единиц хранения.
func NewArchiveUnitService(store repository.Store, logger *slog.Logger) *ArchiveUnitService {
	return &ArchiveUnitService{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "archive_unit_service")),
	}
}

// validate проверяет обязательные поля и переносит ввод в u.
func (in ArchiveUnitInput) validate(u *model.ArchiveUnit) error {
	if in.Amount == nil {
		return ValidationFailed("amount", "required")
	}
	if err := nonNegative("amount", *in.Amount); err != nil {
		return err
	}
	unit, err := required("amount_unit", in.AmountUnit)
	if err != nil {
		return err
	}

	u.ClassificationCode = trimPtr(in.ClassificationCode)
	u.ProcessingUnitID = in.ProcessingUnitID
	u.ArchiveFileID = in.ArchiveFileID
	u.CategoryID = in.CategoryID
	u.SubCategoryID = in.SubCategoryID
	u.IndexTerms = strings.TrimSpace(in.IndexTerms)
	u.Description = in.Description
	u.ItemDate = in.ItemDate
	u.Amount = *in.Amount
	u.AmountUnit = unit
	u.Location = in.Location
	u.Remarks = in.Remarks
	return nil
}

// checkUnitRefs проверяет, что каждая указанная ссылка существует.
// Подкатегория должна принадлежать указанной категории.
func checkUnitRefs(ctx context.Context, r repository.Repositories, u *model.ArchiveUnit) error {
	if u.ClassificationCode != nil {
		_, err := r.Codes.GetByCode(ctx, *u.ClassificationCode)
		ok, err := exists(err)
		if err != nil {
			return fmt.Errorf("проверка кода классификации: %w", err)
		}
		if !ok {
			return UnknownReference("classification_code")
		}
	}
	if err := resolveRef(ctx, u.ProcessingUnitID, "processing_unit_id", r.Units.GetByID); err != nil {
		return err
	}
	if err := resolveRef(ctx, u.ArchiveFileID, "archive_file_id", r.Files.GetByID); err != nil {
		return err
	}
	if err := resolveRef(ctx, u.CategoryID, "category_id", r.Categories.GetByID); err != nil {
		return err
	}
	if u.SubCategoryID == nil {
		return nil
	}

	sc, err := r.SubCategories.GetByID(ctx, *u.SubCategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UnknownReference("sub_category_id")
		}
		return fmt.Errorf("проверка подкатегории: %w", err)
	}
	if u.CategoryID != nil && sc.CategoryID != *u.CategoryID {
		return ValidationFailed("sub_category_id", "does not belong to category")
	}
	return nil
}

// CreateArchiveUnit регистрирует единицу хранения.
// Статус — pending, публикация — draft, автор — actor.
func (s *ArchiveUnitService) CreateArchiveUnit(ctx context.Context, actor model.Actor, in ArchiveUnitInput) (*model.ArchiveUnit, error) {
	if actor.Role == rbac.RoleOperator && in.ProcessingUnitID == nil {
		in.ProcessingUnitID = actor.ProcessingUnitID
	}
	if !rbac.CanWriteArchive(actor, in.ProcessingUnitID) {
		return nil, ErrForbidden
	}

	u := &model.ArchiveUnit{
		Status:        model.StatusPending,
		PublishStatus: model.PublishDraft,
		SubmittedAt:   s.now(),
		CreatedBy:     &actor.UserID,
	}
	if err := in.validate(u); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := checkUnitRefs(ctx, r, u); err != nil {
			return err
		}
		if err := r.ArchiveUnits.Create(ctx, u); err != nil {
			return unitRefError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Единица хранения зарегистрирована",
		slog.Int64("id", u.ID),
		slog.String("actor", actor.Username),
	)
	return u, nil
}

// UpdateArchiveUnit изменяет описательные поля и ссылки.
// Поля проверки и публикации не меняются.
func (s *ArchiveUnitService) UpdateArchiveUnit(ctx context.Context, actor model.Actor, id int64, in ArchiveUnitInput) (*model.ArchiveUnit, error) {
	if actor.Role == rbac.RoleOperator && in.ProcessingUnitID == nil {
		in.ProcessingUnitID = actor.ProcessingUnitID
	}

	var updated *model.ArchiveUnit
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		cur, err := r.ArchiveUnits.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, cur.ProcessingUnitID) || !rbac.CanWriteArchive(actor, in.ProcessingUnitID) {
			return ErrForbidden
		}
		if err := in.validate(cur); err != nil {
			return err
		}
		if err := checkUnitRefs(ctx, r, cur); err != nil {
			return err
		}
		if err := r.ArchiveUnits.Update(ctx, cur); err != nil {
			return unitRefError(err)
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Единица хранения обновлена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return updated, nil
}

// SetStatus меняет статус проверки и фиксирует, кто и когда проверил.
// Допустим переход из любого статуса в любой.
func (s *ArchiveUnitService) SetStatus(ctx context.Context, actor model.Actor, id int64, status model.ArchiveStatus, notes *string) (*model.ArchiveUnit, error) {
	if !rbac.CanVerify(actor) {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ValidationFailed("status", "invalid value")
	}

	repo := s.store.Repositories().ArchiveUnits
	if err := repo.SetStatus(ctx, id, status, actor.UserID, s.now(), trimPtr(notes)); err != nil {
		return nil, notFound(err)
	}
	archiveUnitStatusChanges.WithLabelValues(string(status)).Inc()

	s.logger.Info("Статус единицы хранения изменён",
		slog.Int64("id", id),
		slog.String("status", string(status)),
		slog.String("actor", actor.Username),
	)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// SetPublishStatus переключает публикацию. Статус проверки не учитывается и не меняется.
func (s *ArchiveUnitService) SetPublishStatus(ctx context.Context, actor model.Actor, id int64, publish model.PublishStatus) (*model.ArchiveUnit, error) {
	if !rbac.CanVerify(actor) {
		return nil, ErrForbidden
	}
	if !publish.Valid() {
		return nil, ValidationFailed("publish_status", "invalid value")
	}

	repo := s.store.Repositories().ArchiveUnits
	if err := repo.SetPublishStatus(ctx, id, publish); err != nil {
		return nil, notFound(err)
	}

	s.logger.Info("Статус публикации изменён",
		slog.Int64("id", id),
		slog.String("publish_status", string(publish)),
		slog.String("actor", actor.Username),
	)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// DeleteArchiveUnit удаляет единицу хранения.
// Запрещено, пока она включена хотя бы в один акт.
func (s *ArchiveUnitService) DeleteArchiveUnit(ctx context.Context, actor model.Actor, id int64) error {
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		cur, err := r.ArchiveUnits.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, cur.ProcessingUnitID) {
			return ErrForbidden
		}
		return deleteRow(ctx, r, model.TableArchiveUnits, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Единица хранения удалена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// GetArchiveUnit возвращает единицу хранения с названиями связанных записей.
// Невидимая для viewer единица считается ненайденной.
func (s *ArchiveUnitService) GetArchiveUnit(ctx context.Context, viewer model.Actor, id int64) (*model.ArchiveUnitDetail, error) {
	repos := s.store.Repositories()
	u, err := s.visibleUnit(ctx, repos, viewer, id)
	if err != nil {
		return nil, err
	}
	return resolveUnitDetail(ctx, repos, u)
}

// ListArchiveUnits возвращает страницу единиц хранения, видимых viewer.
func (s *ArchiveUnitService) ListArchiveUnits(ctx context.Context, viewer model.Actor, f model.ArchiveUnitFilter) (model.PageResult[*model.ArchiveUnit], error) {
	f.Page = pageOf(f.Page)
	f.Visibility = rbac.VisibilityFor(viewer)
	repo := s.store.Repositories().ArchiveUnits
	return listPage(f.Page,
		func() ([]*model.ArchiveUnit, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// ResolveUnitRetention возвращает сроки хранения единицы.
// Политика берётся из дела, если оно указано, иначе из кода единицы.
func (s *ArchiveUnitService) ResolveUnitRetention(ctx context.Context, viewer model.Actor, id int64) (*retention.Schedule, error) {
	repos := s.store.Repositories()
	u, err := s.visibleUnit(ctx, repos, viewer, id)
	if err != nil {
		return nil, err
	}

	var file *model.ArchiveFile
	code := u.ClassificationCode
	if u.ArchiveFileID != nil {
		file, err = repos.Files.GetByID(ctx, *u.ArchiveFileID)
		if err != nil {
			return nil, fmt.Errorf("загрузка дела: %w", notFound(err))
		}
		code = &file.ClassificationCode
	}

	var chain []model.ClassificationCode
	if code != nil {
		chain, err = chainOf(ctx, repos, *code)
		if err != nil {
			return nil, err
		}
	}

	sch := retention.ScheduleFor(u.ItemDate, retention.Resolve(file, chain))
	return &sch, nil
}

func (s *ArchiveUnitService) visibleUnit(ctx context.Context, r repository.Repositories, viewer model.Actor, id int64) (*model.ArchiveUnit, error) {
	u, err := r.ArchiveUnits.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !rbac.VisibilityFor(viewer).Allows(u) {
		return nil, ErrNotFound
	}
	return u, nil
}

// resolveUnitDetail подставляет названия связанных записей.
// Ссылка на удалённую запись даёт пустое название.
func resolveUnitDetail(ctx context.Context, r repository.Repositories, u *model.ArchiveUnit) (*model.ArchiveUnitDetail, error) {
	d := &model.ArchiveUnitDetail{ArchiveUnit: *u}

	if u.ClassificationCode != nil {
		c, err := r.Codes.GetByCode(ctx, *u.ClassificationCode)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.ClassificationDescription = &c.Description
		}
	}
	if u.ProcessingUnitID != nil {
		pu, err := r.Units.GetByID(ctx, *u.ProcessingUnitID)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.ProcessingUnitName = &pu.Name
		}
	}
	if u.ArchiveFileID != nil {
		f, err := r.Files.GetByID(ctx, *u.ArchiveFileID)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.ArchiveFileName = &f.Name
		}
	}
	if u.CategoryID != nil {
		c, err := r.Categories.GetByID(ctx, *u.CategoryID)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.CategoryName = &c.Name
		}
	}
	if u.SubCategoryID != nil {
		sc, err := r.SubCategories.GetByID(ctx, *u.SubCategoryID)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.SubCategoryName = &sc.Name
		}
	}
	if u.VerifiedBy != nil {
		usr, err := r.Users.GetByID(ctx, *u.VerifiedBy)
		if ok, err := exists(err); err != nil {
			return nil, err
		} else if ok {
			d.VerifierName = &usr.FullName
		}
	}
	return d, nil
}

// unitFKFields — ограничения внешних ключей arsip_unit и поля формы.
var unitFKFields = map[string]string{
	"arsip_unit_code_fkey":            "classification_code",
	"arsip_unit_processing_unit_fkey": "processing_unit_id",
	"arsip_unit_archive_file_fkey":    "archive_file_id",
	"arsip_unit_category_fkey":        "category_id",
	"arsip_unit_sub_category_fkey":    "sub_category_id",
}

// unitRefError переводит нарушение внешнего ключа при записи в UnknownReference.
func unitRefError(err error) error {
	switch {
	case errors.Is(err, repository.ErrReferenced):
		if field, ok := unitFKFields[repository.ConstraintOf(err)]; ok {
			return UnknownReference(field)
		}
		return UnknownReference("")
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись единицы хранения: %w", err)
	}
}
