package service

import (
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/retention"
)

// TestArchiveUnitAmount — amount обязателен, но 0 допустим.
func (s *RegistrySuite) TestArchiveUnitAmount() {
	s.Run("amount = 0 без связей", func() {
		u, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, ArchiveUnitInput{Amount: ptr(0), AmountUnit: "lembar"})
		s.Require().NoError(err)
		s.Zero(u.Amount)
		s.Equal(model.StatusPending, u.Status)
		s.Equal(model.PublishDraft, u.PublishStatus)
		s.Require().NotNil(u.CreatedBy)
		s.Equal(s.archivist.UserID, *u.CreatedBy)
	})

	s.Run("amount не указан", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, ArchiveUnitInput{AmountUnit: "lembar"})
		s.ErrorIs(err, ErrValidation)
		s.Equal("amount", FieldOf(err))
	})

	s.Run("отрицательный amount", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, ArchiveUnitInput{Amount: ptr(-1), AmountUnit: "lembar"})
		s.ErrorIs(err, ErrValidation)
	})

	s.Run("amount_unit не указан", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, ArchiveUnitInput{Amount: ptr(3)})
		s.ErrorIs(err, ErrValidation)
		s.Equal("amount_unit", FieldOf(err))
	})
}

func (s *RegistrySuite) TestArchiveUnitReferences() {
	cat, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Surat"})
	s.Require().NoError(err)
	other, err := s.taxonomy.CreateCategory(s.ctx, s.archivist, CategoryInput{Name: "Laporan"})
	s.Require().NoError(err)
	sc, err := s.taxonomy.CreateSubCategory(s.ctx, s.archivist, SubCategoryInput{CategoryID: other.ID, Name: "Tahunan"})
	s.Require().NoError(err)

	tests := []struct {
		name  string
		in    ArchiveUnitInput
		field string
	}{
		{"неизвестный код", ArchiveUnitInput{ClassificationCode: ptr("XYZ")}, "classification_code"},
		{"неизвестное подразделение", ArchiveUnitInput{ProcessingUnitID: ptr(int64(999))}, "processing_unit_id"},
		{"неизвестное дело", ArchiveUnitInput{ArchiveFileID: ptr(int64(999))}, "archive_file_id"},
		{"неизвестная категория", ArchiveUnitInput{CategoryID: ptr(int64(999))}, "category_id"},
		{"неизвестная подкатегория", ArchiveUnitInput{SubCategoryID: ptr(int64(999))}, "sub_category_id"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.in.Amount = ptr(1)
			tt.in.AmountUnit = "berkas"
			_, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, tt.in)
			s.ErrorIs(err, ErrUnknownReference)
			s.Equal(tt.field, FieldOf(err))
		})
	}

	s.Run("подкатегория другой категории", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.archivist, ArchiveUnitInput{
			CategoryID: &cat.ID, SubCategoryID: &sc.ID, Amount: ptr(1), AmountUnit: "berkas",
		})
		s.ErrorIs(err, ErrValidation)
		s.Equal("sub_category_id", FieldOf(err))
	})

	page, err := s.units.ListArchiveUnits(s.ctx, s.admin, model.ArchiveUnitFilter{})
	s.Require().NoError(err)
	s.Zero(page.Total)
}

func (s *RegistrySuite) TestArchiveUnitOperatorScope() {
	s.Run("подразделение оператора подставляется", func() {
		u := s.newArchiveUnit(s.operator, ArchiveUnitInput{})
		s.Require().NotNil(u.ProcessingUnitID)
		s.Equal(s.unitA.ID, *u.ProcessingUnitID)

		updated, err := s.units.UpdateArchiveUnit(s.ctx, s.operator, u.ID,
			ArchiveUnitInput{Amount: ptr(5), AmountUnit: "lembar", Description: "Surat keputusan"})
		s.Require().NoError(err)
		s.Equal(5, updated.Amount)
		s.Equal(s.unitA.ID, *updated.ProcessingUnitID)
	})

	s.Run("чужое подразделение", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.operator, ArchiveUnitInput{
			ProcessingUnitID: &s.unitB.ID, Amount: ptr(1), AmountUnit: "lembar",
		})
		s.ErrorIs(err, ErrForbidden)

		foreign := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ProcessingUnitID: &s.unitB.ID})
		s.ErrorIs(s.units.DeleteArchiveUnit(s.ctx, s.operator, foreign.ID), ErrForbidden)
	})

	s.Run("наблюдатель не регистрирует", func() {
		_, err := s.units.CreateArchiveUnit(s.ctx, s.viewer, ArchiveUnitInput{Amount: ptr(1), AmountUnit: "lembar"})
		s.ErrorIs(err, ErrForbidden)
	})
}

// TestStatusIndependence — смена статуса проверки не трогает публикацию и наоборот.
func (s *RegistrySuite) TestStatusIndependence() {
	u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})

	published, err := s.units.SetPublishStatus(s.ctx, s.archivist, u.ID, model.PublishPublished)
	s.Require().NoError(err)
	s.Equal(model.PublishPublished, published.PublishStatus)
	s.Equal(model.StatusPending, published.Status)
	s.Nil(published.VerifiedBy)

	rejected, err := s.units.SetStatus(s.ctx, s.archivist, u.ID, model.StatusRejected, ptr("Tidak lengkap"))
	s.Require().NoError(err)
	s.Equal(model.StatusRejected, rejected.Status)
	s.Equal(model.PublishPublished, rejected.PublishStatus)
	s.Require().NotNil(rejected.VerifiedBy)
	s.Equal(s.archivist.UserID, *rejected.VerifiedBy)
	s.NotNil(rejected.VerifiedAt)
	s.Require().NotNil(rejected.VerificationNotes)
	s.Equal("Tidak lengkap", *rejected.VerificationNotes)

	draft, err := s.units.SetPublishStatus(s.ctx, s.admin, u.ID, model.PublishDraft)
	s.Require().NoError(err)
	s.Equal(model.StatusRejected, draft.Status)
	s.Equal(s.archivist.UserID, *draft.VerifiedBy)

	// Любой переход допустим, в том числе обратно в pending.
	pending, err := s.units.SetStatus(s.ctx, s.admin, u.ID, model.StatusPending, nil)
	s.Require().NoError(err)
	s.Equal(model.StatusPending, pending.Status)
	s.Equal(model.PublishDraft, pending.PublishStatus)
	s.Equal(s.admin.UserID, *pending.VerifiedBy)
	s.Nil(pending.VerificationNotes)

	// Изменение описания не сбрасывает статусы.
	_, err = s.units.SetStatus(s.ctx, s.admin, u.ID, model.StatusAccepted, nil)
	s.Require().NoError(err)
	updated, err := s.units.UpdateArchiveUnit(s.ctx, s.archivist, u.ID, ArchiveUnitInput{Amount: ptr(2), AmountUnit: "box"})
	s.Require().NoError(err)
	s.Equal(model.StatusAccepted, updated.Status)
	s.Equal(model.PublishDraft, updated.PublishStatus)

	s.Run("права и значения", func() {
		_, err := s.units.SetStatus(s.ctx, s.operator, u.ID, model.StatusAccepted, nil)
		s.ErrorIs(err, ErrForbidden)
		_, err = s.units.SetStatus(s.ctx, s.admin, u.ID, "approved", nil)
		s.ErrorIs(err, ErrValidation)
		_, err = s.units.SetPublishStatus(s.ctx, s.admin, u.ID, "public")
		s.ErrorIs(err, ErrValidation)
		_, err = s.units.SetStatus(s.ctx, s.admin, 999, model.StatusAccepted, nil)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *RegistrySuite) TestArchiveUnitVisibility() {
	own := s.newArchiveUnit(s.operator, ArchiveUnitInput{})
	foreign := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ProcessingUnitID: &s.unitB.ID})
	public := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ProcessingUnitID: &s.unitB.ID})
	_, err := s.units.SetPublishStatus(s.ctx, s.archivist, public.ID, model.PublishPublished)
	s.Require().NoError(err)

	tests := []struct {
		name    string
		viewer  model.Actor
		visible []int64
	}{
		{"архивист видит всё", s.archivist, []int64{own.ID, foreign.ID, public.ID}},
		{"оператор видит своё и опубликованное", s.operator, []int64{own.ID, public.ID}},
		{"наблюдатель видит опубликованное", s.viewer, []int64{public.ID}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			page, err := s.units.ListArchiveUnits(s.ctx, tt.viewer, model.ArchiveUnitFilter{})
			s.Require().NoError(err)
			s.Equal(len(tt.visible), page.Total)

			got := make([]int64, 0, len(page.Items))
			for _, u := range page.Items {
				got = append(got, u.ID)
			}
			s.ElementsMatch(tt.visible, got)
		})
	}

	s.Run("невидимая единица не найдена", func() {
		_, err := s.units.GetArchiveUnit(s.ctx, s.viewer, foreign.ID)
		s.ErrorIs(err, ErrNotFound)
		_, err = s.units.ResolveUnitRetention(s.ctx, s.operator, foreign.ID)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *RegistrySuite) TestArchiveUnitDetail() {
	s.newCode("800", nil, 1, 1)
	f := s.newFile("800", &s.unitA.ID)
	u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{
		ClassificationCode: ptr("800"),
		ProcessingUnitID:   &s.unitA.ID,
		ArchiveFileID:      &f.ID,
	})
	_, err := s.units.SetStatus(s.ctx, s.admin, u.ID, model.StatusAccepted, nil)
	s.Require().NoError(err)

	d, err := s.units.GetArchiveUnit(s.ctx, s.archivist, u.ID)
	s.Require().NoError(err)
	s.Require().NotNil(d.ClassificationDescription)
	s.Equal("Kode 800", *d.ClassificationDescription)
	s.Require().NotNil(d.ProcessingUnitName)
	s.Equal(s.unitA.Name, *d.ProcessingUnitName)
	s.Require().NotNil(d.ArchiveFileName)
	s.Equal(f.Name, *d.ArchiveFileName)
	s.Nil(d.CategoryName)
	s.Require().NotNil(d.VerifierName)
	s.Equal("admin", *d.VerifierName)
}

// TestDeleteArchiveFile — удаление дела обнуляет ссылки единиц хранения.
func (s *RegistrySuite) TestDeleteArchiveFile() {
	s.newCode("900", nil, 0, 0)
	f := s.newFile("900", &s.unitA.ID)
	u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ArchiveFileID: &f.ID})

	s.ErrorIs(s.files.DeleteArchiveFile(s.ctx, s.viewer, f.ID), ErrForbidden)
	s.Require().NoError(s.files.DeleteArchiveFile(s.ctx, s.operator, f.ID))

	_, err := s.files.GetArchiveFile(s.ctx, f.ID)
	s.ErrorIs(err, ErrNotFound)

	got, err := s.units.GetArchiveUnit(s.ctx, s.admin, u.ID)
	s.Require().NoError(err)
	s.Nil(got.ArchiveFileID)
}

func (s *RegistrySuite) TestArchiveFileValidation() {
	s.newCode("910", nil, 0, 0)

	_, err := s.files.CreateArchiveFile(s.ctx, s.archivist, ArchiveFileInput{Name: "Berkas", ClassificationCode: "XYZ"})
	s.ErrorIs(err, ErrUnknownReference)
	s.Equal("classification_code", FieldOf(err))

	_, err = s.files.CreateArchiveFile(s.ctx, s.archivist, ArchiveFileInput{ClassificationCode: "910"})
	s.ErrorIs(err, ErrValidation)
	s.Equal("name", FieldOf(err))

	_, err = s.files.CreateArchiveFile(s.ctx, s.archivist, ArchiveFileInput{
		Name: "Berkas", ClassificationCode: "910", ActiveRetentionYears: ptr(-2),
	})
	s.ErrorIs(err, ErrValidation)

	f, err := s.files.CreateArchiveFile(s.ctx, s.operator, ArchiveFileInput{Name: "Berkas", ClassificationCode: "910"})
	s.Require().NoError(err)
	s.Require().NotNil(f.ProcessingUnitID)
	s.Equal(s.unitA.ID, *f.ProcessingUnitID)

	_, err = s.files.UpdateArchiveFile(s.ctx, s.operator, f.ID, ArchiveFileInput{
		Name: "Berkas", ClassificationCode: "910", ProcessingUnitID: &s.unitB.ID,
	})
	s.ErrorIs(err, ErrForbidden)
}

func (s *RegistrySuite) TestRetention() {
	s.newCode("KU", nil, 5, 10)
	s.newCode("KU.01", ptr("KU"), 0, 3)
	s.newCode("KU.01.1", ptr("KU.01"), 0, 0)
	itemDate := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)

	s.Run("наследование от предков", func() {
		u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ClassificationCode: ptr("KU.01.1"), ItemDate: &itemDate})

		sch, err := s.units.ResolveUnitRetention(s.ctx, s.viewer, u.ID)
		s.ErrorIs(err, ErrNotFound)

		sch, err = s.units.ResolveUnitRetention(s.ctx, s.archivist, u.ID)
		s.Require().NoError(err)
		s.Equal(5, sch.Policy.ActiveYears)
		s.Equal(retention.SourceAncestor, sch.Policy.ActiveSource)
		s.Equal("KU", *sch.Policy.ActiveFromCode)
		s.Equal(3, sch.Policy.InactiveYears)
		s.Equal("KU.01", *sch.Policy.InactiveFromCode)
		s.Require().NotNil(sch.ActiveUntil)
		s.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), *sch.ActiveUntil)
		s.Equal(time.Date(2028, 1, 15, 0, 0, 0, 0, time.UTC), *sch.InactiveUntil)
	})

	s.Run("переопределение в деле", func() {
		f, err := s.files.CreateArchiveFile(s.ctx, s.archivist, ArchiveFileInput{
			Name: "Berkas Keuangan", ClassificationCode: "KU.01", ActiveRetentionYears: ptr(0),
		})
		s.Require().NoError(err)

		p, err := s.files.ResolveFileRetention(s.ctx, f.ID)
		s.Require().NoError(err)
		s.Equal(0, p.ActiveYears)
		s.Equal(retention.SourceFile, p.ActiveSource)
		s.Equal(3, p.InactiveYears)
		s.Equal(retention.SourceCode, p.InactiveSource)

		// Дело важнее кода самой единицы хранения.
		u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ClassificationCode: ptr("KU"), ArchiveFileID: &f.ID})
		sch, err := s.units.ResolveUnitRetention(s.ctx, s.archivist, u.ID)
		s.Require().NoError(err)
		s.Equal("KU.01", sch.Policy.ClassificationCode)
		s.Nil(sch.ActiveUntil)
	})
}
