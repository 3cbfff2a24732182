package service

import (
	"fmt"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// itemCount возвращает число позиций во всех актах.
func (s *RegistrySuite) itemCount() int {
	page, err := s.handovers.ListHandovers(s.ctx, s.archivist, model.HandoverFilter{Page: model.Page{PerPage: 100}})
	s.Require().NoError(err)
	n := 0
	for _, h := range page.Items {
		n += h.ItemCount
	}
	return n
}

// TestHandoverDuplicateNumber — второй акт с тем же номером отклоняется
// целиком: ни одна его позиция не сохраняется.
func (s *RegistrySuite) TestHandoverDuplicateNumber() {
	u1 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})
	u2 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})
	u3 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})

	h, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-001", u1.ID, u2.ID))
	s.Require().NoError(err)
	s.Equal(2, h.ItemCount)
	s.Equal(s.archivist.UserID, h.CreatedBy)

	_, err = s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-001", u3.ID))
	s.ErrorIs(err, ErrDuplicateNumber)

	page, err := s.handovers.ListHandovers(s.ctx, s.archivist, model.HandoverFilter{})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal(2, s.itemCount())

	// u3 ни в один акт не попала и удаляется свободно.
	s.NoError(s.units.DeleteArchiveUnit(s.ctx, s.archivist, u3.ID))
}

// TestHandoverDuplicateItem — пара (акт, единица хранения) уникальна.
func (s *RegistrySuite) TestHandoverDuplicateItem() {
	u1 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})
	u2 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})

	s.Run("повтор в одном запросе", func() {
		_, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-010", u1.ID, u2.ID, u1.ID))
		s.ErrorIs(err, ErrDuplicateItem)

		_, err = s.store.Repositories().Handovers.GetByNumber(s.ctx, "BA-010")
		s.Error(err)
		s.Zero(s.itemCount())
	})

	s.Run("повторное добавление", func() {
		h, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-011", u1.ID))
		s.Require().NoError(err)

		err = s.handovers.AddItem(s.ctx, s.archivist, h.ID, HandoverItemInput{ArchiveUnitID: u1.ID})
		s.ErrorIs(err, ErrDuplicateItem)

		s.Require().NoError(s.handovers.AddItem(s.ctx, s.archivist, h.ID, HandoverItemInput{ArchiveUnitID: u2.ID, Remarks: "asli"}))

		items, err := s.store.Repositories().Handovers.Items(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Len(items, 2)
	})

	s.Run("одна единица в разных актах", func() {
		_, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-012", u1.ID))
		s.NoError(err)
	})
}

func (s *RegistrySuite) TestHandoverValidation() {
	u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})

	tests := []struct {
		name      string
		mutate    func(in *HandoverInput)
		wantErr   error
		wantField string
	}{
		{"нет номера", func(in *HandoverInput) { in.Number = " " }, ErrValidation, "number"},
		{"нет даты", func(in *HandoverInput) { in.Date = time.Time{} }, ErrValidation, "date"},
		{"нет источника", func(in *HandoverInput) { in.OriginUnitID = 0 }, ErrValidation, "origin_unit_id"},
		{"получатель совпадает с источником", func(in *HandoverInput) { in.DestinationUnitID = &in.OriginUnitID }, ErrValidation, "destination_unit_id"},
		{"нет ни подразделения, ни получателя", func(in *HandoverInput) { in.DestinationUnitID = nil }, ErrValidation, "recipient_name"},
		{"неизвестный получатель", func(in *HandoverInput) { in.DestinationUnitID = ptr(int64(999)) }, ErrUnknownUnit, "destination_unit_id"},
		{"неизвестный источник", func(in *HandoverInput) { in.OriginUnitID = 998 }, ErrUnknownUnit, "origin_unit_id"},
		{"неизвестная единица хранения", func(in *HandoverInput) {
			in.Items = []HandoverItemInput{{ArchiveUnitID: u.ID}, {ArchiveUnitID: 999}}
		}, ErrUnknownArchiveUnit, ""},
	}
	for i, tt := range tests {
		s.Run(tt.name, func() {
			in := s.handoverInput(fmt.Sprintf("BA-V%02d", i))
			tt.mutate(&in)
			_, err := s.handovers.CreateHandover(s.ctx, s.archivist, in)
			s.ErrorIs(err, tt.wantErr)
			if tt.wantField != "" {
				s.Equal(tt.wantField, FieldOf(err))
			}
			if tt.wantErr == ErrUnknownUnit {
				s.ErrorIs(err, ErrUnknownReference)
			}
		})
	}
	s.Zero(s.itemCount())

	s.Run("внешний получатель без подразделения", func() {
		in := s.handoverInput("BA-EXT", u.ID)
		in.DestinationUnitID = nil
		in.RecipientName = ptr("Arsip Nasional")
		h, err := s.handovers.CreateHandover(s.ctx, s.archivist, in)
		s.Require().NoError(err)
		s.Nil(h.DestinationUnitID)
	})

	s.Run("оператор передаёт только из своего подразделения", func() {
		in := s.handoverInput("BA-OP")
		in.OriginUnitID, in.DestinationUnitID = s.unitB.ID, &s.unitA.ID
		_, err := s.handovers.CreateHandover(s.ctx, s.operator, in)
		s.ErrorIs(err, ErrForbidden)

		_, err = s.handovers.CreateHandover(s.ctx, s.operator, s.handoverInput("BA-OP"))
		s.NoError(err)
	})
}

func (s *RegistrySuite) TestHandoverLifecycle() {
	u1 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{Description: "Surat keputusan", Amount: ptr(12)})
	u2 := s.newArchiveUnit(s.archivist, ArchiveUnitInput{})

	h, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-100", u1.ID, u2.ID))
	s.Require().NoError(err)

	d, err := s.handovers.GetHandover(s.ctx, s.archivist, h.ID)
	s.Require().NoError(err)
	s.Equal(s.unitA.Name, d.OriginUnitName)
	s.Require().NotNil(d.DestinationUnitName)
	s.Equal(s.unitB.Name, *d.DestinationUnitName)
	s.Equal("Pengguna arsiparis", d.CreatorName)
	s.Require().Len(d.Items, 2)
	s.Equal(u1.ID, d.Items[0].Unit.ID)
	s.Equal(12, d.Items[0].Unit.Amount)
	s.Equal(2, d.ItemCount)

	s.Run("удаление единицы хранения из акта запрещено", func() {
		s.ErrorIs(s.units.DeleteArchiveUnit(s.ctx, s.archivist, u1.ID), ErrReferencedByHandover)
		_, err := s.units.GetArchiveUnit(s.ctx, s.archivist, u1.ID)
		s.NoError(err)
	})

	s.Run("изменение заголовка не трогает позиции", func() {
		in := s.handoverInput("BA-100A")
		in.Notes = "revisi"
		updated, err := s.handovers.UpdateHandover(s.ctx, s.archivist, h.ID, in)
		s.Require().NoError(err)
		s.Equal("BA-100A", updated.Number)
		s.Equal(2, updated.ItemCount)
	})

	s.Run("исключение позиции", func() {
		s.Require().NoError(s.handovers.RemoveItem(s.ctx, s.archivist, h.ID, u2.ID))
		s.ErrorIs(s.handovers.RemoveItem(s.ctx, s.archivist, h.ID, u2.ID), ErrNotFound)
		s.NoError(s.units.DeleteArchiveUnit(s.ctx, s.archivist, u2.ID))
	})

	s.Run("удаление акта удаляет позиции", func() {
		s.Require().NoError(s.handovers.DeleteHandover(s.ctx, s.archivist, h.ID))
		_, err := s.handovers.GetHandover(s.ctx, s.archivist, h.ID)
		s.ErrorIs(err, ErrNotFound)
		s.Zero(s.itemCount())
		s.NoError(s.units.DeleteArchiveUnit(s.ctx, s.archivist, u1.ID))
	})
}

// TestHandoverHidesInvisibleUnits — позиции с черновиками чужих
// подразделений не раскрываются через акт.
func (s *RegistrySuite) TestHandoverHidesInvisibleUnits() {
	draft := s.newArchiveUnit(s.archivist, ArchiveUnitInput{Description: "RAHASIA draft", ProcessingUnitID: &s.unitB.ID})
	own := s.newArchiveUnit(s.operator, ArchiveUnitInput{Description: "milik bagian umum"})
	public := s.newArchiveUnit(s.archivist, ArchiveUnitInput{Description: "terbuka", ProcessingUnitID: &s.unitB.ID})
	_, err := s.units.SetPublishStatus(s.ctx, s.archivist, public.ID, model.PublishPublished)
	s.Require().NoError(err)

	h, err := s.handovers.CreateHandover(s.ctx, s.archivist, s.handoverInput("BA-200", draft.ID, own.ID, public.ID))
	s.Require().NoError(err)

	tests := []struct {
		name    string
		viewer  model.Actor
		visible []int64
	}{
		{"архивист видит все позиции", s.archivist, []int64{draft.ID, own.ID, public.ID}},
		{"оператор видит своё и опубликованное", s.operator, []int64{own.ID, public.ID}},
		{"наблюдатель видит опубликованное", s.viewer, []int64{public.ID}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			d, err := s.handovers.GetHandover(s.ctx, tt.viewer, h.ID)
			s.Require().NoError(err)

			got := make([]int64, 0, len(d.Items))
			for _, it := range d.Items {
				got = append(got, it.Unit.ID)
			}
			s.ElementsMatch(tt.visible, got)
			s.Equal(len(tt.visible), d.ItemCount)

			page, err := s.handovers.ListHandovers(s.ctx, tt.viewer, model.HandoverFilter{})
			s.Require().NoError(err)
			s.Require().Len(page.Items, 1)
			s.Equal(len(tt.visible), page.Items[0].ItemCount)
		})
	}
}
