package service

import (
	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
)

func (s *RegistrySuite) TestProcessingUnits() {
	s.Run("имя уникально", func() {
		_, err := s.taxonomy.CreateUnit(s.ctx, s.admin, UnitInput{Name: s.unitA.Name})
		s.ErrorIs(err, ErrDuplicateName)
	})

	s.Run("изменение", func() {
		u, err := s.taxonomy.UpdateUnit(s.ctx, s.archivist, s.unitB.ID, UnitInput{Name: "Bagian Keuangan", Code: ptr("KEU")})
		s.Require().NoError(err)
		s.Require().NotNil(u.Code)
		s.Equal("KEU", *u.Code)
	})

	s.Run("удаление запрещено, пока подразделение указано в акте", func() {
		s.Require().NoError(func() error {
			_, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-UNIT"))
			return err
		}())

		err := s.taxonomy.DeleteUnit(s.ctx, s.admin, s.unitB.ID)
		s.ErrorIs(err, ErrReferencedByHandover)
		_, err = s.taxonomy.GetUnit(s.ctx, s.unitB.ID)
		s.NoError(err)
	})

	s.Run("удаление обнуляет ссылки", func() {
		c := s.newUnit("Bagian Sementara")
		au := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ProcessingUnitID: &c.ID})
		user := s.newActor("staf-sementara", rbac.RoleViewer, &c.ID)

		s.Require().NoError(s.taxonomy.DeleteUnit(s.ctx, s.admin, c.ID))

		got, err := s.units.GetArchiveUnit(s.ctx, s.admin, au.ID)
		s.Require().NoError(err)
		s.Nil(got.ProcessingUnitID)

		usr, err := s.users.GetUser(s.ctx, user.UserID)
		s.Require().NoError(err)
		s.Nil(usr.ProcessingUnitID)
	})
}

// TestSubCategoryRequiresCategory — подкатегория с несуществующей категорией
// не создаётся и не оставляет строк.
func (s *RegistrySuite) TestSubCategoryRequiresCategory() {
	_, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: 42, Name: "Surat Masuk"})
	s.ErrorIs(err, ErrUnknownCategory)

	n, err := s.store.Repositories().SubCategories.CountByCategory(s.ctx, 42, model.TaxonomyFilter{})
	s.Require().NoError(err)
	s.Zero(n)

	_, err = s.taxonomy.ListSubCategories(s.ctx, 42, model.TaxonomyFilter{})
	s.ErrorIs(err, ErrNotFound)
}

// TestDeleteCategoryCascades — удаление категории удаляет все её подкатегории
// и обнуляет ссылки единиц хранения на обе записи.
func (s *RegistrySuite) TestDeleteCategoryCascades() {
	cat, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Surat"})
	s.Require().NoError(err)
	other, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Laporan"})
	s.Require().NoError(err)

	var subs []*model.SubCategory
	for _, name := range []string{"Surat Masuk", "Surat Keluar", "Nota Dinas"} {
		sc, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: cat.ID, Name: name})
		s.Require().NoError(err)
		subs = append(subs, sc)
	}
	kept, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: other.ID, Name: "Tahunan"})
	s.Require().NoError(err)

	au := s.newArchiveUnit(s.archivist, ArchiveUnitInput{CategoryID: &cat.ID, SubCategoryID: &subs[0].ID})

	listed, err := s.taxonomy.ListCategories(s.ctx, model.TaxonomyFilter{Search: "surat"})
	s.Require().NoError(err)
	s.Require().Len(listed.Items, 1)
	s.Equal(3, listed.Items[0].SubCategoryCount)

	s.ErrorIs(s.taxonomy.DeleteCategory(s.ctx, s.archivist, cat.ID), ErrForbidden)
	s.Require().NoError(s.taxonomy.DeleteCategory(s.ctx, s.admin, cat.ID))

	n, err := s.store.Repositories().SubCategories.CountByCategory(s.ctx, cat.ID, model.TaxonomyFilter{})
	s.Require().NoError(err)
	s.Zero(n)
	for _, sc := range subs {
		_, err := s.taxonomy.GetSubCategory(s.ctx, sc.ID)
		s.ErrorIs(err, ErrNotFound)
	}
	_, err = s.taxonomy.GetSubCategory(s.ctx, kept.ID)
	s.NoError(err)

	got, err := s.units.GetArchiveUnit(s.ctx, s.admin, au.ID)
	s.Require().NoError(err)
	s.Nil(got.CategoryID)
	s.Nil(got.SubCategoryID)
}

func (s *RegistrySuite) TestUpdateSubCategory() {
	cat, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Surat"})
	s.Require().NoError(err)
	sc, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: cat.ID, Name: "Surat Masuk"})
	s.Require().NoError(err)

	_, err = s.taxonomy.UpdateSubCategory(s.ctx, s.archivist, sc.ID, SubCategoryInput{CategoryID: 999, Name: "Surat Masuk"})
	s.ErrorIs(err, ErrUnknownCategory)

	updated, err := s.taxonomy.UpdateSubCategory(s.ctx, s.archivist, sc.ID,
		SubCategoryInput{CategoryID: cat.ID, Name: "Surat Masuk Eksternal"})
	s.Require().NoError(err)
	s.Equal("Surat Masuk Eksternal", updated.Name)

	s.Require().NoError(s.taxonomy.DeleteSubCategory(s.ctx, s.admin, sc.ID))
	_, err = s.taxonomy.GetSubCategory(s.ctx, sc.ID)
	s.ErrorIs(err, ErrNotFound)
}

// TestMoveSubCategoryInUse — подкатегорию, на которую ссылаются единицы
// хранения её категории, нельзя перенести в другую категорию.
func (s *RegistrySuite) TestMoveSubCategoryInUse() {
	from, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Surat"})
	s.Require().NoError(err)
	to, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Laporan"})
	s.Require().NoError(err)
	sc, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: from.ID, Name: "Surat Masuk"})
	s.Require().NoError(err)

	u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{CategoryID: &from.ID, SubCategoryID: &sc.ID})

	_, err = s.taxonomy.UpdateSubCategory(s.ctx, s.archivist, sc.ID, SubCategoryInput{CategoryID: to.ID, Name: "Surat Masuk"})
	s.ErrorIs(err, ErrValidation)
	s.Equal("category_id", FieldOf(err))

	got, err := s.taxonomy.GetSubCategory(s.ctx, sc.ID)
	s.Require().NoError(err)
	s.Equal(from.ID, got.CategoryID)

	// Единица сохраняется без изменений.
	_, err = s.units.UpdateArchiveUnit(s.ctx, s.archivist, u.ID, ArchiveUnitInput{
		CategoryID:    &from.ID,
		SubCategoryID: &sc.ID,
		Amount:        ptr(1),
		AmountUnit:    "lembar",
	})
	s.NoError(err)

	s.Run("без ссылок перенос разрешён", func() {
		_, err := s.units.UpdateArchiveUnit(s.ctx, s.archivist, u.ID, ArchiveUnitInput{Amount: ptr(1), AmountUnit: "lembar"})
		s.Require().NoError(err)

		moved, err := s.taxonomy.UpdateSubCategory(s.ctx, s.archivist, sc.ID, SubCategoryInput{CategoryID: to.ID, Name: "Surat Masuk"})
		s.Require().NoError(err)
		s.Equal(to.ID, moved.CategoryID)
	})
}
