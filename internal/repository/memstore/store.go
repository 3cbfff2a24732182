// Пакет memstore — хранилище реестра в памяти с теми же интерфейсами,
// что и PostgreSQL-репозитории. Используется в тестах и при AR_STORAGE=memory.
// Транзакции сериализуются; при ошибке состояние восстанавливается из снимка.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// Store — in-memory реализация repository.Store.
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		data: newData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Repositories возвращает репозитории; каждый вызов метода атомарен.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(false)
}

// RunInTx выполняет fn под общей блокировкой. Если fn вернула ошибку,
// все изменения fn откатываются.
func (s *Store) RunInTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	if err := fn(s.repositories(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// CheckReady всегда готово: хранилище живёт в процессе.
func (s *Store) CheckReady() (status string, message string) {
	return "ok", "in-memory хранилище"
}

func (s *Store) repositories(inTx bool) repository.Repositories {
	b := base{s: s, inTx: inTx}
	return repository.Repositories{
		Codes:         &codeRepo{b},
		Units:         &unitRepo{b},
		Categories:    &categoryRepo{b},
		SubCategories: &subCategoryRepo{b},
		Files:         &fileRepo{b},
		ArchiveUnits:  &archiveUnitRepo{b},
		Handovers:     &handoverRepo{b},
		Users:         &userRepo{b},
		References:    &referenceRepo{b},
		Stats:         &statsRepo{b},
	}
}

// base — общая часть репозиториев: доступ к данным с блокировкой
// вне транзакции и без неё внутри RunInTx.
type base struct {
	s    *Store
	inTx bool
}

func (b base) read(fn func(d *data) error) error {
	if !b.inTx {
		b.s.mu.Lock()
		defer b.s.mu.Unlock()
	}
	return fn(b.s.data)
}

// write выполняет одиночную запись атомарно: при ошибке изменения откатываются.
func (b base) write(fn func(d *data, now time.Time) error) error {
	if b.inTx {
		return fn(b.s.data, b.s.now())
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	snapshot := b.s.data.clone()
	if err := fn(b.s.data, b.s.now()); err != nil {
		b.s.data = snapshot
		return err
	}
	return nil
}

// data — таблицы хранилища.
type data struct {
	seq           map[string]int64
	codes         map[string]*model.ClassificationCode
	units         map[int64]*model.ProcessingUnit
	categories    map[int64]*model.Category
	subCategories map[int64]*model.SubCategory
	files         map[int64]*model.ArchiveFile
	archiveUnits  map[int64]*model.ArchiveUnit
	handovers     map[int64]*model.HandoverRecord
	items         map[int64]*model.HandoverItem
	users         map[int64]*model.User
}

func newData() *data {
	return &data{
		seq:           map[string]int64{},
		codes:         map[string]*model.ClassificationCode{},
		units:         map[int64]*model.ProcessingUnit{},
		categories:    map[int64]*model.Category{},
		subCategories: map[int64]*model.SubCategory{},
		files:         map[int64]*model.ArchiveFile{},
		archiveUnits:  map[int64]*model.ArchiveUnit{},
		handovers:     map[int64]*model.HandoverRecord{},
		items:         map[int64]*model.HandoverItem{},
		users:         map[int64]*model.User{},
	}
}

func (d *data) nextID(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d *data) clone() *data {
	c := &data{
		seq:           cloneMap(d.seq, func(v int64) int64 { return v }),
		codes:         cloneMap(d.codes, copyOf[model.ClassificationCode]),
		units:         cloneMap(d.units, copyOf[model.ProcessingUnit]),
		categories:    cloneMap(d.categories, copyOf[model.Category]),
		subCategories: cloneMap(d.subCategories, copyOf[model.SubCategory]),
		files:         cloneMap(d.files, copyOf[model.ArchiveFile]),
		archiveUnits:  cloneMap(d.archiveUnits, copyOf[model.ArchiveUnit]),
		handovers:     cloneMap(d.handovers, copyOf[model.HandoverRecord]),
		items:         cloneMap(d.items, copyOf[model.HandoverItem]),
		users:         cloneMap(d.users, copyOf[model.User]),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

// copyOf возвращает указатель на поверхностную копию значения.
func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

// --- вспомогательные функции выборок ---

// matches — регистронезависимый поиск подстроки в любом из полей.
func matches(q string, fields ...string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func eqID(filter, value *int64) bool {
	return filter == nil || (value != nil && *value == *filter)
}

func eqStr(filter, value *string) bool {
	return filter == nil || (value != nil && *value == *filter)
}

// paginate возвращает страницу из отсортированного среза.
func paginate[T any](items []T, p model.Page) []T {
	off := p.Offset()
	if off >= len(items) {
		return nil
	}
	end := min(off+p.Limit(), len(items))
	return items[off:end]
}

// sortedValues возвращает копии значений, упорядоченные less.
func sortedValues[K comparable, V any](m map[K]*V, keep func(*V) bool, less func(a, b *V) bool) []*V {
	out := make([]*V, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, copyOf(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func conflict(constraint string) error {
	return &repository.ConstraintError{Constraint: constraint, Err: repository.ErrConflict}
}

func referenced(constraint string) error {
	return &repository.ConstraintError{Constraint: constraint, Err: repository.ErrReferenced}
}
