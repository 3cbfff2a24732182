// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrReferenced — нарушение внешнего ключа.
	ErrReferenced = errors.New("нарушение ссылочной целостности")
)

// Имена ограничений уникальности (совпадают с миграциями).
const (
	ConstraintCodeUnique           = "kode_klasifikasi_code_key"
	ConstraintUnitNameUnique       = "unit_pengolah_name_key"
	ConstraintHandoverNumberUnique = "berita_acara_penyerahan_number_key"
	ConstraintHandoverItemUnique   = "berita_acara_arsip_pair_key"
	ConstraintUsernameUnique       = "users_username_key"
)

// ConstraintError — нарушение ограничения с именем ограничения.
// Unwrap возвращает ErrConflict или ErrReferenced.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Constraint)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// ConstraintOf возвращает имя нарушенного ограничения или пустую строку.
func ConstraintOf(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories — набор репозиториев, работающих на одном соединении или транзакции.
type Repositories struct {
	Codes         ClassificationRepository
	Units         ProcessingUnitRepository
	Categories    CategoryRepository
	SubCategories SubCategoryRepository
	Files         ArchiveFileRepository
	ArchiveUnits  ArchiveUnitRepository
	Handovers     HandoverRepository
	Users         UserRepository
	References    ReferenceRepository
	Stats         StatsRepository
}

// Store — хранилище реестра: репозитории вне транзакции и запуск транзакций.
type Store interface {
	// Repositories возвращает репозитории для чтения и одиночных записей.
	Repositories() Repositories
	// RunInTx выполняет fn в одной транзакции; при ошибке ничего не фиксируется.
	RunInTx(ctx context.Context, fn func(r Repositories) error) error
}

// NewRepositories создаёт набор PostgreSQL-репозиториев поверх db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Codes:         NewClassificationRepository(db),
		Units:         NewProcessingUnitRepository(db),
		Categories:    NewCategoryRepository(db),
		SubCategories: NewSubCategoryRepository(db),
		Files:         NewArchiveFileRepository(db),
		ArchiveUnits:  NewArchiveUnitRepository(db),
		Handovers:     NewHandoverRepository(db),
		Users:         NewUserRepository(db),
		References:    NewReferenceRepository(db),
		Stats:         NewStatsRepository(db),
	}
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается.
// При успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "ошибка фиксации транзакции")
	}
	return nil
}

// postgresStore — Store поверх pgxpool.
type postgresStore struct {
	runner *TxRunner
	repos  Repositories
}

// NewPostgresStore создаёт Store на пуле PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{
		runner: NewTxRunner(pool),
		repos:  NewRepositories(pool),
	}
}

func (s *postgresStore) Repositories() Repositories { return s.repos }

func (s *postgresStore) RunInTx(ctx context.Context, fn func(r Repositories) error) error {
	return s.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// mapError переводит ошибки pgx в ошибки слоя репозиториев.
func mapError(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: ErrConflict}
		case "23503": // foreign_key_violation
			return &ConstraintError{Constraint: pgErr.ConstraintName, Err: ErrReferenced}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// where — построитель динамического WHERE с позиционными аргументами.
type where struct {
	conds []string
	args  []any
}

// arg добавляет аргумент и возвращает его плейсхолдер.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// eq добавляет условие column = value.
func (w *where) eq(column string, v any) {
	w.conds = append(w.conds, column+" = "+w.arg(v))
}

// add добавляет произвольное условие без аргументов.
func (w *where) add(cond string) {
	w.conds = append(w.conds, cond)
}

// search добавляет ILIKE-поиск по нескольким колонкам.
func (w *where) search(q string, columns ...string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}
	p := w.arg("%" + escapeLike(q) + "%")
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c + " ILIKE " + p
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

// sql возвращает WHERE-выражение или пустую строку.
func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// page добавляет LIMIT/OFFSET и возвращает хвост запроса.
func (w *where) page(limit, offset int) string {
	return fmt.Sprintf("LIMIT %s OFFSET %s", w.arg(limit), w.arg(offset))
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
