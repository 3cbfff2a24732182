package model

import "time"

// ProcessingUnit — подразделение-владелец документов (unit_pengolah).
type ProcessingUnit struct {
	ID int64
	// Name — уникальное название
	Name string
	// Code — краткое обозначение (опционально)
	Code      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category — категория архивных документов (kategori).
type Category struct {
	ID          int64
	Name        string
	Description *string
	// SubCategoryCount — число подкатегорий (заполняется в списках)
	SubCategoryCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubCategory — подкатегория (sub_kategori), принадлежит ровно одной категории.
type SubCategory struct {
	ID          int64
	CategoryID  int64
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaxonomyFilter — поиск по имени с пагинацией для справочников.
type TaxonomyFilter struct {
	Search string
	Page   Page
}
