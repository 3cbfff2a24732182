package memstore

import (
	"context"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// --- unit_pengolah ---

type unitRepo struct{ base }

func unitNameTaken(d *data, name string, exceptID int64) bool {
	for _, u := range d.units {
		if u.Name == name && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *unitRepo) Create(_ context.Context, u *model.ProcessingUnit) error {
	return r.write(func(d *data, now time.Time) error {
		if unitNameTaken(d, u.Name, 0) {
			return conflict(repository.ConstraintUnitNameUnique)
		}
		u.ID = d.nextID(model.TableProcessingUnits)
		u.CreatedAt, u.UpdatedAt = now, now
		d.units[u.ID] = copyOf(u)
		return nil
	})
}

func (r *unitRepo) GetByID(_ context.Context, id int64) (*model.ProcessingUnit, error) {
	var out *model.ProcessingUnit
	err := r.read(func(d *data) error {
		u, ok := d.units[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(u)
		return nil
	})
	return out, err
}

func (r *unitRepo) filtered(d *data, f model.TaxonomyFilter) []*model.ProcessingUnit {
	return sortedValues(d.units, func(u *model.ProcessingUnit) bool {
		return matches(f.Search, u.Name, deref(u.Code))
	}, func(a, b *model.ProcessingUnit) bool { return a.Name < b.Name })
}

func (r *unitRepo) List(_ context.Context, f model.TaxonomyFilter) ([]*model.ProcessingUnit, error) {
	var out []*model.ProcessingUnit
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, f), f.Page)
		return nil
	})
	return out, err
}

func (r *unitRepo) Count(_ context.Context, f model.TaxonomyFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *unitRepo) Update(_ context.Context, u *model.ProcessingUnit) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.units[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if unitNameTaken(d, u.Name, u.ID) {
			return conflict(repository.ConstraintUnitNameUnique)
		}
		u.CreatedAt, u.UpdatedAt = cur.CreatedAt, now
		d.units[u.ID] = copyOf(u)
		return nil
	})
}

// --- kategori ---

type categoryRepo struct{ base }

func withSubCount(d *data, c *model.Category) *model.Category {
	out := copyOf(c)
	out.SubCategoryCount = 0
	for _, s := range d.subCategories {
		if s.CategoryID == c.ID {
			out.SubCategoryCount++
		}
	}
	return out
}

func (r *categoryRepo) Create(_ context.Context, c *model.Category) error {
	return r.write(func(d *data, now time.Time) error {
		c.ID = d.nextID(model.TableCategories)
		c.CreatedAt, c.UpdatedAt = now, now
		d.categories[c.ID] = copyOf(c)
		return nil
	})
}

func (r *categoryRepo) GetByID(_ context.Context, id int64) (*model.Category, error) {
	var out *model.Category
	err := r.read(func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withSubCount(d, c)
		return nil
	})
	return out, err
}

func (r *categoryRepo) filtered(d *data, f model.TaxonomyFilter) []*model.Category {
	return sortedValues(d.categories, func(c *model.Category) bool {
		return matches(f.Search, c.Name, deref(c.Description))
	}, func(a, b *model.Category) bool { return a.Name < b.Name })
}

func (r *categoryRepo) List(_ context.Context, f model.TaxonomyFilter) ([]*model.Category, error) {
	var out []*model.Category
	err := r.read(func(d *data) error {
		for _, c := range paginate(r.filtered(d, f), f.Page) {
			out = append(out, withSubCount(d, c))
		}
		return nil
	})
	return out, err
}

func (r *categoryRepo) Count(_ context.Context, f model.TaxonomyFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *categoryRepo) Update(_ context.Context, c *model.Category) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.categories[c.ID]
		if !ok {
			return repository.ErrNotFound
		}
		c.CreatedAt, c.UpdatedAt = cur.CreatedAt, now
		d.categories[c.ID] = copyOf(c)
		return nil
	})
}

// --- sub_kategori ---

type subCategoryRepo struct{ base }

func (r *subCategoryRepo) Create(_ context.Context, s *model.SubCategory) error {
	return r.write(func(d *data, now time.Time) error {
		if _, ok := d.categories[s.CategoryID]; !ok {
			return referenced("sub_kategori_kategori_fkey")
		}
		s.ID = d.nextID(model.TableSubCategories)
		s.CreatedAt, s.UpdatedAt = now, now
		d.subCategories[s.ID] = copyOf(s)
		return nil
	})
}

func (r *subCategoryRepo) GetByID(_ context.Context, id int64) (*model.SubCategory, error) {
	var out *model.SubCategory
	err := r.read(func(d *data) error {
		s, ok := d.subCategories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(s)
		return nil
	})
	return out, err
}

func (r *subCategoryRepo) filtered(d *data, categoryID int64, f model.TaxonomyFilter) []*model.SubCategory {
	return sortedValues(d.subCategories, func(s *model.SubCategory) bool {
		return s.CategoryID == categoryID && matches(f.Search, s.Name, deref(s.Description))
	}, func(a, b *model.SubCategory) bool { return a.Name < b.Name })
}

func (r *subCategoryRepo) ListByCategory(_ context.Context, categoryID int64, f model.TaxonomyFilter) ([]*model.SubCategory, error) {
	var out []*model.SubCategory
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, categoryID, f), f.Page)
		return nil
	})
	return out, err
}

func (r *subCategoryRepo) CountByCategory(_ context.Context, categoryID int64, f model.TaxonomyFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, categoryID, f))
		return nil
	})
	return n, err
}

func (r *subCategoryRepo) Update(_ context.Context, s *model.SubCategory) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.subCategories[s.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.categories[s.CategoryID]; !ok {
			return referenced("sub_kategori_kategori_fkey")
		}
		s.CreatedAt, s.UpdatedAt = cur.CreatedAt, now
		d.subCategories[s.ID] = copyOf(s)
		return nil
	})
}
