// archive_files.go — сервис дел (berkas arsip).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/domain/retention"
	"github.com/bigkaa/goarsip/internal/repository"
)

// ArchiveFileInput — поля дела.
// Сроки хранения необязательны: nil означает «наследовать от кода».
type ArchiveFileInput struct {
	Name                   string
	ClassificationCode     string
	ProcessingUnitID       *int64
	ActiveRetentionYears   *int
	InactiveRetentionYears *int
	PhysicalLocation       string
	Description            string
}

// ArchiveFileService — сервис дел.
type ArchiveFileService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewArchiveFileService создаёт сервис дел.
func NewArchiveFileService(store repository.Store, logger *slog.Logger) *ArchiveFileService {
	return &ArchiveFileService{
		store:  store,
		logger: logger.With(slog.String("component", "archive_file_service")),
	}
}

// validate проверяет поля и возвращает заполненную модель (без ID).
func (in ArchiveFileInput) validate() (*model.ArchiveFile, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}
	code, err := required("classification_code", in.ClassificationCode)
	if err != nil {
		return nil, err
	}
	if in.ActiveRetentionYears != nil {
		if err := nonNegative("active_retention_years", *in.ActiveRetentionYears); err != nil {
			return nil, err
		}
	}
	if in.InactiveRetentionYears != nil {
		if err := nonNegative("inactive_retention_years", *in.InactiveRetentionYears); err != nil {
			return nil, err
		}
	}
	return &model.ArchiveFile{
		Name:                   name,
		ClassificationCode:     code,
		ProcessingUnitID:       in.ProcessingUnitID,
		ActiveRetentionYears:   in.ActiveRetentionYears,
		InactiveRetentionYears: in.InactiveRetentionYears,
		PhysicalLocation:       strings.TrimSpace(in.PhysicalLocation),
		Description:            in.Description,
	}, nil
}

// checkFileRefs проверяет код классификации и подразделение дела.
func checkFileRefs(ctx context.Context, r repository.Repositories, f *model.ArchiveFile) error {
	_, err := r.Codes.GetByCode(ctx, f.ClassificationCode)
	ok, err := exists(err)
	if err != nil {
		return fmt.Errorf("проверка кода классификации: %w", err)
	}
	if !ok {
		return UnknownReference("classification_code")
	}
	return resolveRef(ctx, f.ProcessingUnitID, "processing_unit_id", r.Units.GetByID)
}

// CreateArchiveFile создаёт дело.
func (s *ArchiveFileService) CreateArchiveFile(ctx context.Context, actor model.Actor, in ArchiveFileInput) (*model.ArchiveFile, error) {
	if actor.Role == rbac.RoleOperator && in.ProcessingUnitID == nil {
		in.ProcessingUnitID = actor.ProcessingUnitID
	}
	if !rbac.CanWriteArchive(actor, in.ProcessingUnitID) {
		return nil, ErrForbidden
	}

	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	f.CreatedBy = &actor.UserID

	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := checkFileRefs(ctx, r, f); err != nil {
			return err
		}
		if err := r.Files.Create(ctx, f); err != nil {
			return fileWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Дело создано",
		slog.Int64("id", f.ID),
		slog.String("classification_code", f.ClassificationCode),
		slog.String("actor", actor.Username),
	)
	return f, nil
}

// GetArchiveFile возвращает дело.
func (s *ArchiveFileService) GetArchiveFile(ctx context.Context, id int64) (*model.ArchiveFile, error) {
	f, err := s.store.Repositories().Files.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// ListArchiveFiles возвращает страницу дел.
func (s *ArchiveFileService) ListArchiveFiles(ctx context.Context, f model.ArchiveFileFilter) (model.PageResult[*model.ArchiveFile], error) {
	f.Page = pageOf(f.Page)
	repo := s.store.Repositories().Files
	return listPage(f.Page,
		func() ([]*model.ArchiveFile, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// UpdateArchiveFile изменяет дело.
func (s *ArchiveFileService) UpdateArchiveFile(ctx context.Context, actor model.Actor, id int64, in ArchiveFileInput) (*model.ArchiveFile, error) {
	f, err := in.validate()
	if err != nil {
		return nil, err
	}
	f.ID = id

	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		cur, err := r.Files.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, cur.ProcessingUnitID) || !rbac.CanWriteArchive(actor, f.ProcessingUnitID) {
			return ErrForbidden
		}
		if err := checkFileRefs(ctx, r, f); err != nil {
			return err
		}
		if err := r.Files.Update(ctx, f); err != nil {
			return fileWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Дело обновлено",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return f, nil
}

// DeleteArchiveFile удаляет дело; ссылки единиц хранения на него обнуляются.
func (s *ArchiveFileService) DeleteArchiveFile(ctx context.Context, actor model.Actor, id int64) error {
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		cur, err := r.Files.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !rbac.CanWriteArchive(actor, cur.ProcessingUnitID) {
			return ErrForbidden
		}
		return deleteRow(ctx, r, model.TableArchiveFiles, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Дело удалено",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// ResolveFileRetention возвращает действующую политику хранения дела.
func (s *ArchiveFileService) ResolveFileRetention(ctx context.Context, id int64) (*retention.Policy, error) {
	repos := s.store.Repositories()
	f, err := repos.Files.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	chain, err := chainOf(ctx, repos, f.ClassificationCode)
	if err != nil {
		return nil, err
	}
	p := retention.Resolve(f, chain)
	return &p, nil
}

func fileWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrReferenced):
		if repository.ConstraintOf(err) == "berkas_arsip_processing_unit_fkey" {
			return UnknownReference("processing_unit_id")
		}
		return UnknownReference("classification_code")
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись дела: %w", err)
	}
}
