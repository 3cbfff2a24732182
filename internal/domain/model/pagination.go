package model

import "strconv"

// Page — параметры offset-пагинации. Number начинается с 1.
type Page struct {
	Number  int
	PerPage int
}

// Limit возвращает LIMIT для запроса.
func (p Page) Limit() int {
	if p.PerPage < 1 {
		return 1
	}
	return p.PerPage
}

// Offset возвращает OFFSET для запроса.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit()
}

// PageResult — страница результатов с общим количеством.
type PageResult[T any] struct {
	Items   []T
	Total   int
	Page    int
	PerPage int
}

// HasMore сообщает, есть ли записи после текущей страницы.
func (r PageResult[T]) HasMore() bool {
	return r.Page*r.PerPage < r.Total
}

// NewPageResult собирает PageResult из элементов, общего количества и параметров страницы.
func NewPageResult[T any](items []T, total int, p Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{Items: items, Total: total, Page: max(p.Number, 1), PerPage: p.Limit()}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
