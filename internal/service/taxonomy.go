// taxonomy.go — справочники: подразделения, категории, подкатегории.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
)

// UnitInput — поля подразделения.
type UnitInput struct {
	Name string
	Code *string
}

// CategoryInput — поля категории.
type CategoryInput struct {
	Name        string
	Description *string
}

// SubCategoryInput — поля подкатегории.
type SubCategoryInput struct {
	CategoryID  int64
	Name        string
	Description *string
}

// TaxonomyService — CRUD справочников.
type TaxonomyService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewTaxonomyService создаёт сервис справочников.
func NewTaxonomyService(store repository.Store, logger *slog.Logger) *TaxonomyService {
	return &TaxonomyService{
		store:  store,
		logger: logger.With(slog.String("component", "taxonomy_service")),
	}
}

// --- Подразделения ---

// CreateUnit создаёт подразделение. Имя уникально.
func (s *TaxonomyService) CreateUnit(ctx context.Context, actor model.Actor, in UnitInput) (*model.ProcessingUnit, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	u := &model.ProcessingUnit{Name: name, Code: trimPtr(in.Code)}
	if err := s.store.Repositories().Units.Create(ctx, u); err != nil {
		return nil, unitWriteError(err)
	}

	s.logger.Info("Подразделение создано",
		slog.Int64("id", u.ID),
		slog.String("name", u.Name),
		slog.String("actor", actor.Username),
	)
	return u, nil
}

// GetUnit возвращает подразделение.
func (s *TaxonomyService) GetUnit(ctx context.Context, id int64) (*model.ProcessingUnit, error) {
	u, err := s.store.Repositories().Units.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListUnits возвращает страницу подразделений.
func (s *TaxonomyService) ListUnits(ctx context.Context, f model.TaxonomyFilter) (model.PageResult[*model.ProcessingUnit], error) {
	f.Page = pageOf(f.Page)
	repo := s.store.Repositories().Units
	return listPage(f.Page,
		func() ([]*model.ProcessingUnit, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// UpdateUnit изменяет подразделение.
func (s *TaxonomyService) UpdateUnit(ctx context.Context, actor model.Actor, id int64, in UnitInput) (*model.ProcessingUnit, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	u := &model.ProcessingUnit{ID: id, Name: name, Code: trimPtr(in.Code)}
	if err := s.store.Repositories().Units.Update(ctx, u); err != nil {
		return nil, unitWriteError(err)
	}

	s.logger.Info("Подразделение обновлено",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return u, nil
}

// DeleteUnit удаляет подразделение. Запрещено, пока на него ссылаются акты;
// ссылки пользователей, дел и единиц хранения обнуляются.
func (s *TaxonomyService) DeleteUnit(ctx context.Context, actor model.Actor, id int64) error {
	if !rbac.CanDeleteMasterData(actor) {
		return ErrForbidden
	}
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		return deleteRow(ctx, r, model.TableProcessingUnits, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Подразделение удалено",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

func unitWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateName
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись подразделения: %w", err)
	}
}

// --- Категории ---

// CreateCategory создаёт категорию.
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor model.Actor, in CategoryInput) (*model.Category, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	c := &model.Category{Name: name, Description: trimPtr(in.Description)}
	if err := s.store.Repositories().Categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("создание категории: %w", err)
	}

	s.logger.Info("Категория создана",
		slog.Int64("id", c.ID),
		slog.String("name", c.Name),
		slog.String("actor", actor.Username),
	)
	return c, nil
}

// GetCategory возвращает категорию с количеством подкатегорий.
func (s *TaxonomyService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.store.Repositories().Categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListCategories возвращает страницу категорий.
func (s *TaxonomyService) ListCategories(ctx context.Context, f model.TaxonomyFilter) (model.PageResult[*model.Category], error) {
	f.Page = pageOf(f.Page)
	repo := s.store.Repositories().Categories
	return listPage(f.Page,
		func() ([]*model.Category, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// UpdateCategory изменяет категорию.
func (s *TaxonomyService) UpdateCategory(ctx context.Context, actor model.Actor, id int64, in CategoryInput) (*model.Category, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	repo := s.store.Repositories().Categories
	c := &model.Category{ID: id, Name: name, Description: trimPtr(in.Description)}
	if err := repo.Update(ctx, c); err != nil {
		return nil, notFound(err)
	}

	s.logger.Info("Категория обновлена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return s.GetCategory(ctx, id)
}

// DeleteCategory удаляет категорию вместе со всеми её подкатегориями
// в одной транзакции.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, actor model.Actor, id int64) error {
	if !rbac.CanDeleteMasterData(actor) {
		return ErrForbidden
	}
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		return deleteRow(ctx, r, model.TableCategories, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Категория удалена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// --- Подкатегории ---

// CreateSubCategory создаёт подкатегорию. Категория должна существовать.
func (s *TaxonomyService) CreateSubCategory(ctx context.Context, actor model.Actor, in SubCategoryInput) (*model.SubCategory, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	sc := &model.SubCategory{CategoryID: in.CategoryID, Name: name, Description: trimPtr(in.Description)}
	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := s.requireCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}
		if err := r.SubCategories.Create(ctx, sc); err != nil {
			return subCategoryWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Подкатегория создана",
		slog.Int64("id", sc.ID),
		slog.Int64("category_id", sc.CategoryID),
		slog.String("actor", actor.Username),
	)
	return sc, nil
}

// GetSubCategory возвращает подкатегорию.
func (s *TaxonomyService) GetSubCategory(ctx context.Context, id int64) (*model.SubCategory, error) {
	sc, err := s.store.Repositories().SubCategories.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return sc, nil
}

// ListSubCategories возвращает страницу подкатегорий категории.
func (s *TaxonomyService) ListSubCategories(ctx context.Context, categoryID int64, f model.TaxonomyFilter) (model.PageResult[*model.SubCategory], error) {
	repos := s.store.Repositories()
	if _, err := repos.Categories.GetByID(ctx, categoryID); err != nil {
		return model.PageResult[*model.SubCategory]{}, notFound(err)
	}

	f.Page = pageOf(f.Page)
	return listPage(f.Page,
		func() ([]*model.SubCategory, error) { return repos.SubCategories.ListByCategory(ctx, categoryID, f) },
		func() (int, error) { return repos.SubCategories.CountByCategory(ctx, categoryID, f) },
	)
}

// UpdateSubCategory изменяет подкатегорию; её можно перенести в другую категорию.
// Перенос отклоняется, пока единицы хранения связывают подкатегорию с
// прежней категорией: иначе пара category_id/sub_category_id разойдётся.
func (s *TaxonomyService) UpdateSubCategory(ctx context.Context, actor model.Actor, id int64, in SubCategoryInput) (*model.SubCategory, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}
	name, err := required("name", in.Name)
	if err != nil {
		return nil, err
	}

	sc := &model.SubCategory{ID: id, CategoryID: in.CategoryID, Name: name, Description: trimPtr(in.Description)}
	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := s.requireCategory(ctx, r, in.CategoryID); err != nil {
			return err
		}
		current, err := r.SubCategories.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if current.CategoryID != in.CategoryID {
			n, err := r.ArchiveUnits.Count(ctx, model.ArchiveUnitFilter{
				CategoryID:    &current.CategoryID,
				SubCategoryID: &id,
				Visibility:    model.Visibility{All: true},
			})
			if err != nil {
				return fmt.Errorf("проверка единиц хранения подкатегории: %w", err)
			}
			if n > 0 {
				return ValidationFailed("category_id", "sub-category is used by archive units of its category")
			}
		}
		if err := r.SubCategories.Update(ctx, sc); err != nil {
			return subCategoryWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Подкатегория обновлена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return sc, nil
}

// DeleteSubCategory удаляет подкатегорию; ссылки единиц хранения обнуляются.
func (s *TaxonomyService) DeleteSubCategory(ctx context.Context, actor model.Actor, id int64) error {
	if !rbac.CanDeleteMasterData(actor) {
		return ErrForbidden
	}
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		return deleteRow(ctx, r, model.TableSubCategories, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Подкатегория удалена",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

func (s *TaxonomyService) requireCategory(ctx context.Context, r repository.Repositories, id int64) error {
	_, err := r.Categories.GetByID(ctx, id)
	ok, err := exists(err)
	if err != nil {
		return fmt.Errorf("проверка категории: %w", err)
	}
	if !ok {
		return ErrUnknownCategory
	}
	return nil
}

func subCategoryWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrReferenced):
		return ErrUnknownCategory
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись подкатегории: %w", err)
	}
}
