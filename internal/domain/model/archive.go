// Пакет model — доменные модели реестра архивов.
package model

import "time"

// ArchiveStatus — статус проверки единицы хранения.
type ArchiveStatus string

const (
	StatusPending  ArchiveStatus = "pending"
	StatusAccepted ArchiveStatus = "diterima"
	StatusRejected ArchiveStatus = "ditolak"
)

// Valid проверяет, что статус входит в допустимый набор.
func (s ArchiveStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// PublishStatus — статус публикации единицы хранения.
type PublishStatus string

const (
	PublishDraft     PublishStatus = "draft"
	PublishPublished PublishStatus = "published"
)

// Valid проверяет, что статус публикации входит в допустимый набор.
func (s PublishStatus) Valid() bool {
	return s == PublishDraft || s == PublishPublished
}

// ArchiveFile — дело (berkas_arsip), группирующее единицы хранения.
type ArchiveFile struct {
	ID   int64
	Name string
	// ClassificationCode — обязательная ссылка на код классификации
	ClassificationCode string
	ProcessingUnitID   *int64
	// ActiveRetentionYears — переопределение активного срока (nil — берётся из кода)
	ActiveRetentionYears *int
	// InactiveRetentionYears — переопределение неактивного срока
	InactiveRetentionYears *int
	PhysicalLocation       string
	Description            string
	CreatedBy              *int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ArchiveFileFilter — параметры выборки дел.
type ArchiveFileFilter struct {
	// Search — подстрока в названии, описании или местоположении
	Search             string
	ClassificationCode *string
	ProcessingUnitID   *int64
	Page               Page
}

// Location — физическое местоположение единицы хранения.
type Location struct {
	Room    string
	Cabinet string
	Drawer  string
	Folder  string
	Box     string
}

// ArchiveUnit — единица хранения (arsip_unit).
// Все ссылки необязательны и обнуляются при удалении родителя.
type ArchiveUnit struct {
	ID                 int64
	ClassificationCode *string
	ProcessingUnitID   *int64
	ArchiveFileID      *int64
	CategoryID         *int64
	SubCategoryID      *int64

	IndexTerms  string
	Description string
	// ItemDate — дата документа, от неё считаются сроки хранения
	ItemDate   *time.Time
	Amount     int
	AmountUnit string
	Location   Location
	Remarks    string

	Status        ArchiveStatus
	PublishStatus PublishStatus
	// VerifiedBy, VerifiedAt, VerificationNotes выставляются вместе при смене статуса
	VerifiedBy        *int64
	VerifiedAt        *time.Time
	VerificationNotes *string
	SubmittedAt       time.Time

	CreatedBy *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArchiveUnitDetail — единица хранения с разрешёнными именами связей.
type ArchiveUnitDetail struct {
	ArchiveUnit
	ClassificationDescription *string
	ProcessingUnitName        *string
	ArchiveFileName           *string
	CategoryName              *string
	SubCategoryName           *string
	VerifierName              *string
}

// ArchiveUnitFilter — параметры выборки единиц хранения.
type ArchiveUnitFilter struct {
	// Search — подстрока в индексных терминах, описании или примечаниях
	Search             string
	Status             *ArchiveStatus
	PublishStatus      *PublishStatus
	ProcessingUnitID   *int64
	CategoryID         *int64
	SubCategoryID      *int64
	ArchiveFileID      *int64
	ClassificationCode *string
	// Visibility — ограничение видимости по роли запрашивающего
	Visibility Visibility
	Page       Page
}

// Visibility описывает, какие единицы хранения видит пользователь.
// All — без ограничений; иначе видны опубликованные и, если задан
// ProcessingUnitID, все единицы этого подразделения.
type Visibility struct {
	All              bool
	ProcessingUnitID *int64
}

// Allows проверяет видимость единицы хранения.
func (v Visibility) Allows(u *ArchiveUnit) bool {
	if v.All || u.PublishStatus == PublishPublished {
		return true
	}
	return v.ProcessingUnitID != nil && u.ProcessingUnitID != nil &&
		*v.ProcessingUnitID == *u.ProcessingUnitID
}

// Key возвращает ключ области видимости (для кэшей).
func (v Visibility) Key() string {
	switch {
	case v.All:
		return "all"
	case v.ProcessingUnitID != nil:
		return "unit:" + itoa(*v.ProcessingUnitID)
	default:
		return "published"
	}
}
