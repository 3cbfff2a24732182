package service

import (
	"github.com/bigkaa/goarsip/internal/domain/model"
)

func (s *RegistrySuite) TestCreateCode() {
	s.Run("значения по умолчанию", func() {
		c := s.newCode("010", nil, 2, 3)
		s.Equal(model.DispositionReappraise, c.FinalDisposition)
		s.Equal(model.SecurityNormal, c.SecurityClassification)
		s.Nil(c.ParentCode)
	})

	s.Run("дубликат кода", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "010"})
		s.ErrorIs(err, ErrDuplicateCode)
	})

	s.Run("неизвестный родитель", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "020.1", ParentCode: ptr("020")})
		s.ErrorIs(err, ErrUnknownParent)

		_, err = s.codes.GetCode(s.ctx, "020.1")
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("сам себе родитель до создания", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "900", ParentCode: ptr("900")})
		s.ErrorIs(err, ErrUnknownParent)
		s.NotErrorIs(err, ErrCyclicParent)
	})

	s.Run("пустой код", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "  "})
		s.ErrorIs(err, ErrValidation)
		s.Equal("code", FieldOf(err))
	})

	s.Run("отрицательный срок", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "030", ActiveRetentionYears: -1})
		s.ErrorIs(err, ErrValidation)
		s.Equal("active_retention_years", FieldOf(err))
	})

	s.Run("недопустимое итоговое действие", func() {
		_, err := s.codes.CreateCode(s.ctx, s.archivist, CodeInput{Code: "031", FinalDisposition: "burn"})
		s.ErrorIs(err, ErrValidation)
		s.Equal("final_disposition", FieldOf(err))
	})

	s.Run("оператор не редактирует справочники", func() {
		_, err := s.codes.CreateCode(s.ctx, s.operator, CodeInput{Code: "040"})
		s.ErrorIs(err, ErrForbidden)
	})
}

// TestCyclicParent — назначение родителя, замыкающее цепочку, отклоняется,
// а сохранённая иерархия не меняется.
func (s *RegistrySuite) TestCyclicParent() {
	s.newCode("001", nil, 0, 0)
	s.newCode("001.1", ptr("001"), 0, 0)
	s.newCode("001.1.1", ptr("001.1"), 0, 0)

	tests := []struct {
		name   string
		code   string
		parent string
	}{
		{"прямой цикл", "001", "001.1"},
		{"цикл через два уровня", "001", "001.1.1"},
		{"сам себе родитель", "001.1", "001.1"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.codes.UpdateCode(s.ctx, s.archivist, tt.code, CodeInput{ParentCode: ptr(tt.parent)})
			s.ErrorIs(err, ErrCyclicParent)
		})
	}

	root, err := s.codes.GetCode(s.ctx, "001")
	s.Require().NoError(err)
	s.Nil(root.ParentCode)

	child, err := s.codes.GetCode(s.ctx, "001.1")
	s.Require().NoError(err)
	s.Require().NotNil(child.ParentCode)
	s.Equal("001", *child.ParentCode)
}

// TestAncestorChainsTerminate — цепочка предков любого кода конечна
// и короче общего числа кодов.
func (s *RegistrySuite) TestAncestorChainsTerminate() {
	s.newCode("100", nil, 0, 0)
	s.newCode("100.1", ptr("100"), 0, 0)
	s.newCode("100.1.1", ptr("100.1"), 0, 0)
	s.newCode("100.2", ptr("100"), 0, 0)
	s.newCode("200", nil, 0, 0)

	// Перенос поддерева под другой корень допустим.
	_, err := s.codes.UpdateCode(s.ctx, s.archivist, "100.1", CodeInput{ParentCode: ptr("200")})
	s.Require().NoError(err)

	page, err := s.codes.ListCodes(s.ctx, model.ClassificationFilter{Page: model.Page{PerPage: 100}})
	s.Require().NoError(err)
	s.Require().Equal(5, page.Total)

	for _, c := range page.Items {
		ancestors, err := s.codes.Ancestors(s.ctx, c.Code)
		s.Require().NoError(err, c.Code)
		s.Less(len(ancestors), page.Total, c.Code)
	}

	ancestors, err := s.codes.Ancestors(s.ctx, "100.1.1")
	s.Require().NoError(err)
	s.Require().Len(ancestors, 2)
	s.Equal("100.1", ancestors[0].Code)
	s.Equal("200", ancestors[1].Code)
}

func (s *RegistrySuite) TestTree() {
	s.newCode("B", nil, 0, 0)
	s.newCode("A", nil, 0, 0)
	s.newCode("A.2", ptr("A"), 0, 0)
	s.newCode("A.1", ptr("A"), 0, 0)

	tree, err := s.codes.Tree(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tree, 2)
	s.Equal("A", tree[0].Code.Code)
	s.Equal("B", tree[1].Code.Code)
	s.Require().Len(tree[0].Children, 2)
	s.Equal("A.1", tree[0].Children[0].Code.Code)
	s.Equal("A.2", tree[0].Children[1].Code.Code)
}

func (s *RegistrySuite) TestUpdateCodeRefreshesCache() {
	s.newCode("300", nil, 1, 1)

	cached, err := s.codes.GetCode(s.ctx, "300")
	s.Require().NoError(err)
	s.Equal("Kode 300", cached.Description)

	_, err = s.codes.UpdateCode(s.ctx, s.archivist, "300", CodeInput{Description: "Keuangan", ActiveRetentionYears: 5})
	s.Require().NoError(err)

	got, err := s.codes.GetCode(s.ctx, "300")
	s.Require().NoError(err)
	s.Equal("Keuangan", got.Description)
	s.Equal(5, got.ActiveRetentionYears)
}

func (s *RegistrySuite) TestDeleteCode() {
	s.Run("код используется делом", func() {
		s.newCode("400", nil, 0, 0)
		f := s.newFile("400", nil)

		err := s.codes.DeleteCode(s.ctx, s.admin, "400")
		s.ErrorIs(err, ErrReferencedByArchiveFile)

		_, err = s.codes.GetCode(s.ctx, "400")
		s.NoError(err)
		_, err = s.files.GetArchiveFile(s.ctx, f.ID)
		s.NoError(err)
	})

	s.Run("у кода есть дочерние", func() {
		s.newCode("500", nil, 0, 0)
		s.newCode("500.1", ptr("500"), 0, 0)

		err := s.codes.DeleteCode(s.ctx, s.admin, "500")
		s.ErrorIs(err, ErrHasChildren)
	})

	s.Run("ссылки единиц хранения обнуляются", func() {
		s.newCode("600", nil, 0, 0)
		u := s.newArchiveUnit(s.archivist, ArchiveUnitInput{ClassificationCode: ptr("600")})

		s.Require().NoError(s.codes.DeleteCode(s.ctx, s.admin, "600"))

		got, err := s.units.GetArchiveUnit(s.ctx, s.admin, u.ID)
		s.Require().NoError(err)
		s.Nil(got.ClassificationCode)

		_, err = s.codes.GetCode(s.ctx, "600")
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("только администратор", func() {
		s.newCode("700", nil, 0, 0)
		s.ErrorIs(s.codes.DeleteCode(s.ctx, s.archivist, "700"), ErrForbidden)
	})

	s.Run("несуществующий код", func() {
		s.ErrorIs(s.codes.DeleteCode(s.ctx, s.admin, "999"), ErrNotFound)
	})
}
