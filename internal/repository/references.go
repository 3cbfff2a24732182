package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// ReferenceRepository — обобщённые операции над связями реестра.
// Таблицы и колонки берутся только из model.Relations.
type ReferenceRepository interface {
	// Count возвращает число дочерних строк, ссылающихся на key.
	Count(ctx context.Context, rel model.Relation, key any) (int, error)
	// Keys возвращает ключи дочерних строк (model.KeyColumn дочерней таблицы).
	Keys(ctx context.Context, rel model.Relation, key any) ([]any, error)
	// Clear обнуляет ссылку в дочерних строках.
	Clear(ctx context.Context, rel model.Relation, key any) (int64, error)
	// Delete удаляет строку таблицы по ключу. ErrNotFound, если строки нет.
	Delete(ctx context.Context, table string, key any) error
}

type referenceRepo struct {
	db DBTX
}

// NewReferenceRepository создаёт репозиторий связей.
func NewReferenceRepository(db DBTX) ReferenceRepository {
	return &referenceRepo{db: db}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (r *referenceRepo) Count(ctx context.Context, rel model.Relation, key any) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, ident(rel.Child), ident(rel.ChildColumn))

	var count int
	if err := r.db.QueryRow(ctx, query, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ссылок %s: %w", rel.Name, err)
	}
	return count, nil
}

func (r *referenceRepo) Keys(ctx context.Context, rel model.Relation, key any) ([]any, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
		ident(model.KeyColumn(rel.Child)), ident(rel.Child), ident(rel.ChildColumn))

	rows, err := r.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ссылок %s: %w", rel.Name, err)
	}
	defer rows.Close()

	var keys []any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ссылки %s: %w", rel.Name, err)
		}
		keys = append(keys, values[0])
	}
	return keys, rows.Err()
}

func (r *referenceRepo) Clear(ctx context.Context, rel model.Relation, key any) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE %s = $1`,
		ident(rel.Child), ident(rel.ChildColumn), ident(rel.ChildColumn))

	tag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return 0, fmt.Errorf("ошибка обнуления ссылок %s: %w", rel.Name, err)
	}
	return tag.RowsAffected(), nil
}

func (r *referenceRepo) Delete(ctx context.Context, table string, key any) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, ident(table), ident(model.KeyColumn(table)))

	tag, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return mapError(err, "ошибка удаления из "+table)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
