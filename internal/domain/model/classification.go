package model

import "time"

// FinalDisposition — итоговое действие над документами кода классификации.
type FinalDisposition string

const (
	DispositionDestroy    FinalDisposition = "destroy"
	DispositionPermanent  FinalDisposition = "permanent"
	DispositionReappraise FinalDisposition = "reappraise"
)

// Valid проверяет, что значение входит в допустимый набор.
func (d FinalDisposition) Valid() bool {
	switch d {
	case DispositionDestroy, DispositionPermanent, DispositionReappraise:
		return true
	}
	return false
}

// SecurityClassification — гриф доступа документов кода классификации.
type SecurityClassification string

const (
	SecurityNormal       SecurityClassification = "normal"
	SecurityConfidential SecurityClassification = "confidential"
	SecurityRestricted   SecurityClassification = "restricted"
)

// Valid проверяет, что значение входит в допустимый набор.
func (s SecurityClassification) Valid() bool {
	switch s {
	case SecurityNormal, SecurityConfidential, SecurityRestricted:
		return true
	}
	return false
}

// ClassificationCode — код классификации (kode_klasifikasi).
// Коды образуют лес через ParentCode.
type ClassificationCode struct {
	// ID — суррогатный ключ
	ID int64
	// Code — уникальный код, внешний ключ для дел и единиц хранения
	Code string
	// ParentCode — код родителя (nil для корня)
	ParentCode *string
	// Description — описание
	Description string
	// ActiveRetentionYears — срок хранения в активном архиве, лет
	ActiveRetentionYears int
	// InactiveRetentionYears — срок хранения в неактивном архиве, лет
	InactiveRetentionYears int
	// FinalDisposition — итоговое действие по истечении сроков
	FinalDisposition FinalDisposition
	// SecurityClassification — гриф доступа
	SecurityClassification SecurityClassification
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ClassificationNode — узел дерева кодов классификации.
type ClassificationNode struct {
	Code     ClassificationCode
	Children []*ClassificationNode
}

// ClassificationFilter — параметры выборки кодов классификации.
type ClassificationFilter struct {
	// Search — подстрока в коде или описании
	Search string
	// ParentCode — только прямые потомки указанного кода
	ParentCode *string
	// RootOnly — только корневые коды
	RootOnly bool
	Page     Page
}
