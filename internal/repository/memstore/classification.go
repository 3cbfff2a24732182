package memstore

import (
	"context"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

type codeRepo struct{ base }

func (r *codeRepo) Create(_ context.Context, c *model.ClassificationCode) error {
	return r.write(func(d *data, now time.Time) error {
		if _, ok := d.codes[c.Code]; ok {
			return conflict(repository.ConstraintCodeUnique)
		}
		if c.ParentCode != nil {
			if _, ok := d.codes[*c.ParentCode]; !ok || *c.ParentCode == c.Code {
				return referenced("kode_klasifikasi_parent_fkey")
			}
		}
		c.ID = d.nextID(model.TableClassificationCodes)
		c.CreatedAt, c.UpdatedAt = now, now
		d.codes[c.Code] = copyOf(c)
		return nil
	})
}

func (r *codeRepo) GetByCode(_ context.Context, code string) (*model.ClassificationCode, error) {
	var out *model.ClassificationCode
	err := r.read(func(d *data) error {
		c, ok := d.codes[code]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(c)
		return nil
	})
	return out, err
}

func (r *codeRepo) filtered(d *data, f model.ClassificationFilter) []*model.ClassificationCode {
	return sortedValues(d.codes, func(c *model.ClassificationCode) bool {
		if !matches(f.Search, c.Code, c.Description) {
			return false
		}
		if f.RootOnly && c.ParentCode != nil {
			return false
		}
		return eqStr(f.ParentCode, c.ParentCode)
	}, func(a, b *model.ClassificationCode) bool { return a.Code < b.Code })
}

func (r *codeRepo) List(_ context.Context, f model.ClassificationFilter) ([]*model.ClassificationCode, error) {
	var out []*model.ClassificationCode
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, f), f.Page)
		return nil
	})
	return out, err
}

func (r *codeRepo) Count(_ context.Context, f model.ClassificationFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *codeRepo) All(_ context.Context) ([]model.ClassificationCode, error) {
	var out []model.ClassificationCode
	err := r.read(func(d *data) error {
		for _, c := range r.filtered(d, model.ClassificationFilter{}) {
			out = append(out, *c)
		}
		return nil
	})
	return out, err
}

func (r *codeRepo) Update(_ context.Context, c *model.ClassificationCode) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.codes[c.Code]
		if !ok {
			return repository.ErrNotFound
		}
		if c.ParentCode != nil {
			if _, ok := d.codes[*c.ParentCode]; !ok || *c.ParentCode == c.Code {
				return referenced("kode_klasifikasi_parent_fkey")
			}
		}
		c.ID, c.CreatedAt, c.UpdatedAt = cur.ID, cur.CreatedAt, now
		d.codes[c.Code] = copyOf(c)
		return nil
	})
}

// LockHierarchy — транзакции в памяти уже сериализованы.
func (r *codeRepo) LockHierarchy(context.Context) error { return nil }
