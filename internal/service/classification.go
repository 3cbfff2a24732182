// classification.go — сервис кодов классификации.
// Лес кодов: уникальность кода, существование родителя, отсутствие циклов.
// Проверка цикла и запись выполняются в одной транзакции под блокировкой иерархии.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goarsip/internal/domain/hierarchy"
	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
)

// CodeInput — поля кода классификации для создания и изменения.
// При изменении Code игнорируется: код неизменяем.
type CodeInput struct {
	Code                   string
	ParentCode             *string
	Description            string
	ActiveRetentionYears   int
	InactiveRetentionYears int
	FinalDisposition       model.FinalDisposition
	SecurityClassification model.SecurityClassification
}

// ClassificationService — сервис кодов классификации.
type ClassificationService struct {
	store  repository.Store
	cache  *CodeCache
	logger *slog.Logger
}

// NewClassificationService создаёт сервис кодов классификации.
// cache может быть nil — тогда поиск по коду всегда идёт в хранилище.
func NewClassificationService(store repository.Store, cache *CodeCache, logger *slog.Logger) *ClassificationService {
	return &ClassificationService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "classification_service")),
	}
}

// apply проверяет поля ввода и переносит их в c.
func (in CodeInput) apply(c *model.ClassificationCode) error {
	if err := nonNegative("active_retention_years", in.ActiveRetentionYears); err != nil {
		return err
	}
	if err := nonNegative("inactive_retention_years", in.InactiveRetentionYears); err != nil {
		return err
	}

	disposition := in.FinalDisposition
	if disposition == "" {
		disposition = model.DispositionReappraise
	}
	if !disposition.Valid() {
		return ValidationFailed("final_disposition", "invalid value")
	}
	security := in.SecurityClassification
	if security == "" {
		security = model.SecurityNormal
	}
	if !security.Valid() {
		return ValidationFailed("security_classification", "invalid value")
	}

	c.ParentCode = trimPtr(in.ParentCode)
	c.Description = in.Description
	c.ActiveRetentionYears = in.ActiveRetentionYears
	c.InactiveRetentionYears = in.InactiveRetentionYears
	c.FinalDisposition = disposition
	c.SecurityClassification = security
	return nil
}

// CreateCode создаёт код классификации.
func (s *ClassificationService) CreateCode(ctx context.Context, actor model.Actor, in CodeInput) (*model.ClassificationCode, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}

	code, err := required("code", in.Code)
	if err != nil {
		return nil, err
	}
	c := &model.ClassificationCode{Code: code}
	if err := in.apply(c); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(r repository.Repositories) error {
		_, err := r.Codes.GetByCode(ctx, code)
		found, err := exists(err)
		if err != nil {
			return fmt.Errorf("проверка кода: %w", err)
		}
		if found {
			return ErrDuplicateCode
		}
		if c.ParentCode != nil {
			if err := s.checkParent(ctx, r, code, *c.ParentCode); err != nil {
				return err
			}
		}
		if err := r.Codes.Create(ctx, c); err != nil {
			return codeWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Код классификации создан",
		slog.String("code", c.Code),
		slog.String("actor", actor.Username),
	)
	return c, nil
}

// UpdateCode изменяет код классификации, в том числе его родителя.
func (s *ClassificationService) UpdateCode(ctx context.Context, actor model.Actor, code string, in CodeInput) (*model.ClassificationCode, error) {
	if !rbac.CanEditMasterData(actor) {
		return nil, ErrForbidden
	}

	var updated *model.ClassificationCode
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		c, err := r.Codes.GetByCode(ctx, code)
		if err != nil {
			return notFound(err)
		}
		if err := in.apply(c); err != nil {
			return err
		}
		if c.ParentCode != nil {
			if err := s.checkParent(ctx, r, code, *c.ParentCode); err != nil {
				return err
			}
		}
		if err := r.Codes.Update(ctx, c); err != nil {
			return codeWriteError(err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(code)
	s.logger.Info("Код классификации обновлён",
		slog.String("code", code),
		slog.String("actor", actor.Username),
	)
	return updated, nil
}

// checkParent проверяет родителя: существование и отсутствие цикла.
// Вызывается внутри транзакции; иерархия блокируется до конца транзакции.
func (s *ClassificationService) checkParent(ctx context.Context, r repository.Repositories, code, parent string) error {
	if err := r.Codes.LockHierarchy(ctx); err != nil {
		return fmt.Errorf("блокировка иерархии: %w", err)
	}

	all, err := r.Codes.All(ctx)
	if err != nil {
		return fmt.Errorf("загрузка иерархии: %w", err)
	}
	forest := hierarchy.NewForest(all)
	if !forest.Contains(parent) {
		return ErrUnknownParent
	}
	if forest.WouldCycle(code, parent) {
		return ErrCyclicParent
	}
	return nil
}

// DeleteCode удаляет код классификации.
// Запрещено, пока код используется делами или имеет дочерние коды;
// ссылки единиц хранения на код обнуляются.
func (s *ClassificationService) DeleteCode(ctx context.Context, actor model.Actor, code string) error {
	if !rbac.CanDeleteMasterData(actor) {
		return ErrForbidden
	}

	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		return deleteRow(ctx, r, model.TableClassificationCodes, code)
	})
	if err != nil {
		return err
	}

	s.invalidate(code)
	s.logger.Info("Код классификации удалён",
		slog.String("code", code),
		slog.String("actor", actor.Username),
	)
	return nil
}

// GetCode возвращает код классификации, используя кэш.
func (s *ClassificationService) GetCode(ctx context.Context, code string) (*model.ClassificationCode, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(code); ok {
			return c, nil
		}
	}

	c, err := s.store.Repositories().Codes.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err)
	}
	if s.cache != nil {
		s.cache.Set(c)
	}
	return c, nil
}

// ListCodes возвращает страницу кодов по фильтру.
func (s *ClassificationService) ListCodes(ctx context.Context, f model.ClassificationFilter) (model.PageResult[*model.ClassificationCode], error) {
	f.Page = pageOf(f.Page)
	repo := s.store.Repositories().Codes
	return listPage(f.Page,
		func() ([]*model.ClassificationCode, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// Tree возвращает лес кодов, упорядоченный по коду.
func (s *ClassificationService) Tree(ctx context.Context) ([]*model.ClassificationNode, error) {
	all, err := s.store.Repositories().Codes.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка иерархии: %w", err)
	}
	return hierarchy.BuildTree(all), nil
}

// Ancestors возвращает предков кода, начиная с ближайшего.
func (s *ClassificationService) Ancestors(ctx context.Context, code string) ([]model.ClassificationCode, error) {
	chain, err := chainOf(ctx, s.store.Repositories(), code)
	if err != nil {
		return nil, err
	}
	return chain[1:], nil
}

// chainOf возвращает код и его предков: chain[0] — сам код.
func chainOf(ctx context.Context, r repository.Repositories, code string) ([]model.ClassificationCode, error) {
	all, err := r.Codes.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка иерархии: %w", err)
	}

	byCode := make(map[string]model.ClassificationCode, len(all))
	for _, c := range all {
		byCode[c.Code] = c
	}
	own, ok := byCode[code]
	if !ok {
		return nil, ErrNotFound
	}

	ancestors, err := hierarchy.NewForest(all).Ancestors(code)
	if err != nil {
		if errors.Is(err, hierarchy.ErrCycle) {
			return nil, ErrCyclicParent
		}
		return nil, err
	}

	chain := make([]model.ClassificationCode, 0, len(ancestors)+1)
	chain = append(chain, own)
	for _, a := range ancestors {
		if c, ok := byCode[a]; ok {
			chain = append(chain, c)
		}
	}
	return chain, nil
}

func (s *ClassificationService) invalidate(code string) {
	if s.cache != nil {
		s.cache.Delete(code)
	}
}

// codeWriteError переводит ошибки записи кода в ошибки сервиса.
func codeWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateCode
	case errors.Is(err, repository.ErrReferenced):
		return ErrUnknownParent
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись кода классификации: %w", err)
	}
}
