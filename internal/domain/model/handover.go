package model

import "time"

// HandoverRecord — акт передачи (berita_acara_penyerahan).
type HandoverRecord struct {
	ID     int64
	Number string
	Date   time.Time
	// OriginUnitID — передающее подразделение (обязательно)
	OriginUnitID int64
	// DestinationUnitID — принимающее подразделение (nil для внешнего получателя)
	DestinationUnitID *int64
	RecipientName     *string
	RecipientTitle    *string
	Notes             string
	CreatedBy         int64
	// ItemCount — число позиций акта (заполняется в списках)
	ItemCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HandoverItem — позиция акта (berita_acara_arsip).
type HandoverItem struct {
	ID            int64
	HandoverID    int64
	ArchiveUnitID int64
	Remarks       string
	CreatedAt     time.Time
}

// ArchiveUnitSummary — краткие сведения о единице хранения в составе акта.
type ArchiveUnitSummary struct {
	ID                 int64
	ClassificationCode *string
	IndexTerms         string
	Description        string
	Amount             int
	AmountUnit         string
	Status             ArchiveStatus
}

// HandoverItemDetail — позиция акта со сводкой единицы хранения.
type HandoverItemDetail struct {
	HandoverItem
	Unit ArchiveUnitSummary
}

// HandoverDetail — акт с позициями и именами подразделений.
type HandoverDetail struct {
	HandoverRecord
	OriginUnitName      string
	DestinationUnitName *string
	CreatorName         string
	Items               []HandoverItemDetail
}

// HandoverFilter — параметры выборки актов.
type HandoverFilter struct {
	// Search — подстрока в номере или имени получателя
	Search            string
	OriginUnitID      *int64
	DestinationUnitID *int64
	DateFrom          *time.Time
	DateTo            *time.Time
	Page              Page
}
