// Пакет service — бизнес-логика реестра архива.
// Каждая операция записи принимает явного model.Actor и выполняется
// в одной транзакции repository.Store.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// notFound переводит repository.ErrNotFound в ErrNotFound сервиса.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// exists проверяет, что запись найдена. Ошибки, кроме ErrNotFound, возвращаются как есть.
func exists(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// required проверяет, что строковое поле не пустое после обрезки пробелов.
func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ValidationFailed(field, "required")
	}
	return value, nil
}

// nonNegative проверяет, что число не отрицательное.
func nonNegative(field string, v int) error {
	if v < 0 {
		return ValidationFailed(field, "must be >= 0")
	}
	return nil
}

// trimPtr обрезает пробелы; пустая строка превращается в nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// resolveRef проверяет ссылку на запись по id.
// При отсутствии записи возвращает UnknownReference(field).
func resolveRef[T any](ctx context.Context, id *int64, field string, get func(context.Context, int64) (T, error)) error {
	if id == nil {
		return nil
	}
	_, err := get(ctx, *id)
	ok, err := exists(err)
	if err != nil {
		return err
	}
	if !ok {
		return UnknownReference(field)
	}
	return nil
}

// defaultPerPage — размер страницы, если вызывающий его не задал.
const defaultPerPage = 25

// pageOf нормализует номер и размер страницы.
func pageOf(p model.Page) model.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	return p
}

// listPage собирает страницу результата из выборки и общего количества.
func listPage[T any](p model.Page, list func() ([]T, error), count func() (int, error)) (model.PageResult[T], error) {
	items, err := list()
	if err != nil {
		return model.PageResult[T]{}, err
	}
	total, err := count()
	if err != nil {
		return model.PageResult[T]{}, err
	}
	return model.NewPageResult(items, total, p), nil
}
