// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrForbidden — недостаточно прав для операции.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrUnavailable — хранилище недоступно.
	ErrUnavailable = errors.New("хранилище недоступно")

	// ErrDuplicateCode — код классификации уже существует.
	ErrDuplicateCode = errors.New("код классификации уже существует")
	// ErrDuplicateNumber — номер акта уже существует.
	ErrDuplicateNumber = errors.New("номер акта уже существует")
	// ErrDuplicateItem — единица хранения уже включена в акт.
	ErrDuplicateItem = errors.New("единица хранения уже включена в акт")
	// ErrDuplicateName — имя уже занято.
	ErrDuplicateName = errors.New("имя уже занято")

	// ErrUnknownParent — родительский код не найден.
	ErrUnknownParent = errors.New("родительский код не найден")
	// ErrUnknownCategory — категория не найдена.
	ErrUnknownCategory = errors.New("категория не найдена")
	// ErrUnknownUnit — подразделение не найдено.
	ErrUnknownUnit = errors.New("подразделение не найдено")
	// ErrUnknownArchiveUnit — единица хранения не найдена.
	ErrUnknownArchiveUnit = errors.New("единица хранения не найдена")
	// ErrUnknownReference — ссылка на несуществующую запись (см. ReferenceError).
	ErrUnknownReference = errors.New("ссылка на несуществующую запись")

	// ErrCyclicParent — назначение родителя образует цикл.
	ErrCyclicParent = errors.New("назначение родителя образует цикл")
	// ErrReferencedByArchiveFile — код используется делами.
	ErrReferencedByArchiveFile = errors.New("код используется делами")
	// ErrReferencedByHandover — запись используется актами приёма-передачи.
	ErrReferencedByHandover = errors.New("запись используется актами приёма-передачи")
	// ErrHasChildren — у кода есть дочерние коды.
	ErrHasChildren = errors.New("у кода есть дочерние коды")

	// ErrValidation — ошибка валидации входных данных (см. ValidationError).
	ErrValidation = errors.New("ошибка валидации")
)

// ReferenceError — поле ссылается на несуществующую запись.
// errors.Is(err, ErrUnknownReference) == true; при заданном Kind
// ошибка совпадает и с ним (например, ErrUnknownUnit).
type ReferenceError struct {
	Field string
	Kind  error
}

// UnknownReference создаёт ReferenceError для поля.
func UnknownReference(field string) error {
	return &ReferenceError{Field: field}
}

// unknownUnit — ссылка на несуществующее подразделение в поле field.
func unknownUnit(field string) error {
	return &ReferenceError{Field: field, Kind: ErrUnknownUnit}
}

func (e *ReferenceError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("%v: %s", ErrUnknownReference, e.Field)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrUnknownReference || (e.Kind != nil && target == e.Kind)
}

// ValidationError — поле не прошло проверку.
// errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Field  string
	Reason string
}

// ValidationFailed создаёт ValidationError.
func ValidationFailed(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldOf возвращает имя поля из ReferenceError или ValidationError.
func FieldOf(err error) string {
	var re *ReferenceError
	if errors.As(err, &re) {
		return re.Field
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
