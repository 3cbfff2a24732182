// users.go — администрирование локальных пользователей и определение
// действующего пользователя запроса (model.Actor).
// Аутентификация выполняется внешним IdP; локальная запись задаёт
// подразделение и минимальную роль.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
)

// UserInput — поля пользователя. Active == nil при изменении оставляет
// текущее значение, при создании означает true.
type UserInput struct {
	Username         string
	FullName         string
	Email            string
	Role             string
	ProcessingUnitID *int64
	Active           *bool
}

// UserService — сервис пользователей.
type UserService struct {
	store  repository.Store
	groups rbac.GroupMapping
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
// groups — соответствие групп IdP ролям.
func NewUserService(store repository.Store, groups rbac.GroupMapping, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		groups: groups,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

func (in UserInput) apply(u *model.User) error {
	username, err := required("username", in.Username)
	if err != nil {
		return err
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = rbac.RoleViewer
	}
	if !rbac.IsValidRole(role) {
		return ValidationFailed("role", "invalid value")
	}

	u.Username = username
	u.FullName = strings.TrimSpace(in.FullName)
	u.Email = strings.TrimSpace(in.Email)
	u.Role = role
	u.ProcessingUnitID = in.ProcessingUnitID
	if in.Active != nil {
		u.Active = *in.Active
	}
	return nil
}

// CreateUser создаёт локального пользователя.
func (s *UserService) CreateUser(ctx context.Context, actor model.Actor, in UserInput) (*model.User, error) {
	if !rbac.CanAdministerUsers(actor) {
		return nil, ErrForbidden
	}

	u := &model.User{Active: true}
	if err := in.apply(u); err != nil {
		return nil, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		if err := resolveRef(ctx, u.ProcessingUnitID, "processing_unit_id", r.Units.GetByID); err != nil {
			return err
		}
		if err := r.Users.Create(ctx, u); err != nil {
			return userWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Пользователь создан",
		slog.Int64("id", u.ID),
		slog.String("username", u.Username),
		slog.String("role", u.Role),
		slog.String("actor", actor.Username),
	)
	return u, nil
}

// GetUser возвращает пользователя.
func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.Repositories().Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListUsers возвращает страницу пользователей.
func (s *UserService) ListUsers(ctx context.Context, f model.UserFilter) (model.PageResult[*model.User], error) {
	f.Page = pageOf(f.Page)
	repo := s.store.Repositories().Users
	return listPage(f.Page,
		func() ([]*model.User, error) { return repo.List(ctx, f) },
		func() (int, error) { return repo.Count(ctx, f) },
	)
}

// UpdateUser изменяет пользователя. Деактивация — Active = false.
func (s *UserService) UpdateUser(ctx context.Context, actor model.Actor, id int64, in UserInput) (*model.User, error) {
	if !rbac.CanAdministerUsers(actor) {
		return nil, ErrForbidden
	}

	var updated *model.User
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		u, err := r.Users.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if err := in.apply(u); err != nil {
			return err
		}
		if id == actor.UserID && !u.Active {
			return ValidationFailed("active", "cannot deactivate yourself")
		}
		if err := resolveRef(ctx, u.ProcessingUnitID, "processing_unit_id", r.Units.GetByID); err != nil {
			return err
		}
		if err := r.Users.Update(ctx, u); err != nil {
			return userWriteError(err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Пользователь обновлён",
		slog.Int64("id", id),
		slog.String("role", updated.Role),
		slog.Bool("active", updated.Active),
		slog.String("actor", actor.Username),
	)
	return updated, nil
}

// DeleteUser удаляет пользователя. Запрещено, пока он автор актов;
// ссылки на него в делах и единицах хранения обнуляются.
func (s *UserService) DeleteUser(ctx context.Context, actor model.Actor, id int64) error {
	if !rbac.CanAdministerUsers(actor) {
		return ErrForbidden
	}
	if id == actor.UserID {
		return ValidationFailed("id", "cannot delete yourself")
	}

	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		return deleteRow(ctx, r, model.TableUsers, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Пользователь удалён",
		slog.Int64("id", id),
		slog.String("actor", actor.Username),
	)
	return nil
}

// ResolveActor находит локального пользователя по имени из токена и
// вычисляет итоговую роль = max(роль по группам IdP, локальная роль).
// Неизвестный или неактивный пользователь получает ErrForbidden.
func (s *UserService) ResolveActor(ctx context.Context, username string, groups []string) (model.Actor, error) {
	u, err := s.store.Repositories().Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Actor{}, ErrForbidden
		}
		return model.Actor{}, fmt.Errorf("%w: %w", ErrUnavailable, err) //nolint:errorlint // намеренный двойной wrap
	}
	if !u.Active {
		return model.Actor{}, ErrForbidden
	}

	return model.Actor{
		UserID:           u.ID,
		Username:         u.Username,
		Role:             rbac.EffectiveRole(rbac.MapGroupsToRole(groups, s.groups), u.Role),
		ProcessingUnitID: u.ProcessingUnitID,
	}, nil
}

// Bootstrap создаёт первого администратора, если пользователей ещё нет.
// Пустое имя отключает создание.
func (s *UserService) Bootstrap(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	created := false
	err := s.store.RunInTx(ctx, func(r repository.Repositories) error {
		n, err := r.Users.Count(ctx, model.UserFilter{})
		if err != nil {
			return fmt.Errorf("подсчёт пользователей: %w", err)
		}
		if n > 0 {
			return nil
		}
		u := &model.User{Username: username, FullName: username, Role: rbac.RoleAdmin, Active: true}
		if err := r.Users.Create(ctx, u); err != nil {
			return userWriteError(err)
		}
		created = true
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		s.logger.Info("Создан начальный администратор", slog.String("username", username))
	}
	return nil
}

func userWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrDuplicateName
	case errors.Is(err, repository.ErrReferenced):
		return UnknownReference("processing_unit_id")
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("запись пользователя: %w", err)
	}
}
