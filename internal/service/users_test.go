package service

import (
	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
)

func (s *RegistrySuite) TestBootstrapOnce() {
	s.Require().NoError(s.users.Bootstrap(s.ctx, "another-admin"))

	_, err := s.users.ResolveActor(s.ctx, "another-admin", nil)
	s.ErrorIs(err, ErrForbidden)

	page, err := s.users.ListUsers(s.ctx, model.UserFilter{Role: ptr(rbac.RoleAdmin)})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
}

func (s *RegistrySuite) TestResolveActor() {
	tests := []struct {
		name     string
		username string
		groups   []string
		wantRole string
		wantErr  error
	}{
		{"локальная роль", "arsiparis", nil, rbac.RoleArchivist, nil},
		{"группа IdP повышает роль", "tamu", []string{"arsip-admins"}, rbac.RoleAdmin, nil},
		{"группа IdP не понижает роль", "arsiparis", []string{"arsip-viewers"}, rbac.RoleArchivist, nil},
		{"неизвестный пользователь", "nobody", []string{"arsip-admins"}, "", ErrForbidden},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			a, err := s.users.ResolveActor(s.ctx, tt.username, tt.groups)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tt.wantRole, a.Role)
			s.Equal(tt.username, a.Username)
		})
	}

	s.Run("оператор получает подразделение", func() {
		a, err := s.users.ResolveActor(s.ctx, "operator-a", nil)
		s.Require().NoError(err)
		s.Require().NotNil(a.ProcessingUnitID)
		s.Equal(s.unitA.ID, *a.ProcessingUnitID)
	})

	s.Run("неактивный пользователь", func() {
		_, err := s.users.UpdateUser(s.ctx, s.admin, s.viewer.UserID, UserInput{
			Username: "tamu", Role: rbac.RoleViewer, Active: ptr(false),
		})
		s.Require().NoError(err)

		_, err = s.users.ResolveActor(s.ctx, "tamu", []string{"arsip-admins"})
		s.ErrorIs(err, ErrForbidden)
	})
}

func (s *RegistrySuite) TestUserAdministration() {
	s.Run("только администратор", func() {
		_, err := s.users.CreateUser(s.ctx, s.archivist, UserInput{Username: "baru"})
		s.ErrorIs(err, ErrForbidden)
	})

	s.Run("роль по умолчанию", func() {
		u, err := s.users.CreateUser(s.ctx, s.admin, UserInput{Username: "baru"})
		s.Require().NoError(err)
		s.Equal(rbac.RoleViewer, u.Role)
		s.True(u.Active)
	})

	s.Run("дубликат имени", func() {
		_, err := s.users.CreateUser(s.ctx, s.admin, UserInput{Username: "baru"})
		s.ErrorIs(err, ErrDuplicateName)
	})

	s.Run("недопустимая роль", func() {
		_, err := s.users.CreateUser(s.ctx, s.admin, UserInput{Username: "lain", Role: "superuser"})
		s.ErrorIs(err, ErrValidation)
		s.Equal("role", FieldOf(err))
	})

	s.Run("неизвестное подразделение", func() {
		_, err := s.users.CreateUser(s.ctx, s.admin, UserInput{Username: "lain", ProcessingUnitID: ptr(int64(999))})
		s.ErrorIs(err, ErrUnknownReference)
		s.Equal("processing_unit_id", FieldOf(err))
	})

	s.Run("нельзя деактивировать и удалить себя", func() {
		_, err := s.users.UpdateUser(s.ctx, s.admin, s.admin.UserID, UserInput{
			Username: "admin", Role: rbac.RoleAdmin, Active: ptr(false),
		})
		s.ErrorIs(err, ErrValidation)
		s.ErrorIs(s.users.DeleteUser(s.ctx, s.admin, s.admin.UserID), ErrValidation)
	})

	s.Run("автор акта не удаляется", func() {
		_, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-USR"))
		s.Require().NoError(err)
		s.ErrorIs(s.users.DeleteUser(s.ctx, s.admin, s.archivist.UserID), ErrReferencedByHandover)
	})

	s.Run("удаление обнуляет авторство единиц хранения", func() {
		u := s.newArchiveUnit(s.operator, ArchiveUnitInput{})
		s.Require().NoError(s.users.DeleteUser(s.ctx, s.admin, s.operator.UserID))

		got, err := s.units.GetArchiveUnit(s.ctx, s.admin, u.ID)
		s.Require().NoError(err)
		s.Nil(got.CreatedBy)

		_, err = s.users.GetUser(s.ctx, s.operator.UserID)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *RegistrySuite) TestDashboardStatistics() {
	own := s.newArchiveUnit(s.operator, ArchiveUnitInput{})
	s.newArchiveUnit(s.archivist, ArchiveUnitInput{ProcessingUnitID: &s.unitB.ID})
	_, err := s.units.SetPublishStatus(s.ctx, s.archivist, own.ID, model.PublishPublished)
	s.Require().NoError(err)

	all, err := s.dashboard.Statistics(s.ctx, s.archivist)
	s.Require().NoError(err)
	s.Equal(2, all.ArchiveUnits)
	s.Equal(2, all.ByStatus[model.StatusPending])
	s.Equal(1, all.ByPublishStatus[model.PublishPublished])
	s.Equal(2, all.ProcessingUnits)

	public, err := s.dashboard.Statistics(s.ctx, s.viewer)
	s.Require().NoError(err)
	s.Equal(1, public.ArchiveUnits)

	// Статистика кэшируется до явного сброса.
	s.newArchiveUnit(s.archivist, ArchiveUnitInput{})
	cached, err := s.dashboard.Statistics(s.ctx, s.archivist)
	s.Require().NoError(err)
	s.Equal(2, cached.ArchiveUnits)

	s.dashboard.Invalidate()
	fresh, err := s.dashboard.Statistics(s.ctx, s.archivist)
	s.Require().NoError(err)
	s.Equal(3, fresh.ArchiveUnits)
}
