package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

type handoverRepo struct{ base }

func numberTaken(d *data, number string, exceptID int64) bool {
	for _, h := range d.handovers {
		if h.Number == number && h.ID != exceptID {
			return true
		}
	}
	return false
}

func withItemCount(d *data, h *model.HandoverRecord) *model.HandoverRecord {
	out := copyOf(h)
	out.ItemCount = 0
	for _, it := range d.items {
		if it.HandoverID == h.ID {
			out.ItemCount++
		}
	}
	return out
}

func (r *handoverRepo) Create(_ context.Context, h *model.HandoverRecord) error {
	return r.write(func(d *data, now time.Time) error {
		if numberTaken(d, h.Number, 0) {
			return conflict(repository.ConstraintHandoverNumberUnique)
		}
		if _, ok := d.units[h.OriginUnitID]; !ok {
			return referenced("berita_acara_penyerahan_origin_fkey")
		}
		h.ID = d.nextID(model.TableHandovers)
		h.CreatedAt, h.UpdatedAt = now, now
		d.handovers[h.ID] = copyOf(h)
		return nil
	})
}

func (r *handoverRepo) GetByID(_ context.Context, id int64) (*model.HandoverRecord, error) {
	var out *model.HandoverRecord
	err := r.read(func(d *data) error {
		h, ok := d.handovers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withItemCount(d, h)
		return nil
	})
	return out, err
}

func (r *handoverRepo) GetByNumber(_ context.Context, number string) (*model.HandoverRecord, error) {
	var out *model.HandoverRecord
	err := r.read(func(d *data) error {
		for _, h := range d.handovers {
			if h.Number == number {
				out = withItemCount(d, h)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *handoverRepo) filtered(d *data, f model.HandoverFilter) []*model.HandoverRecord {
	return sortedValues(d.handovers, func(h *model.HandoverRecord) bool {
		return matches(f.Search, h.Number, deref(h.RecipientName)) &&
			(f.OriginUnitID == nil || h.OriginUnitID == *f.OriginUnitID) &&
			eqID(f.DestinationUnitID, h.DestinationUnitID) &&
			(f.DateFrom == nil || !h.Date.Before(*f.DateFrom)) &&
			(f.DateTo == nil || !h.Date.After(*f.DateTo))
	}, func(a, b *model.HandoverRecord) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
}

func (r *handoverRepo) List(_ context.Context, f model.HandoverFilter) ([]*model.HandoverRecord, error) {
	var out []*model.HandoverRecord
	err := r.read(func(d *data) error {
		for _, h := range paginate(r.filtered(d, f), f.Page) {
			out = append(out, withItemCount(d, h))
		}
		return nil
	})
	return out, err
}

func (r *handoverRepo) Count(_ context.Context, f model.HandoverFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *handoverRepo) Update(_ context.Context, h *model.HandoverRecord) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.handovers[h.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if numberTaken(d, h.Number, h.ID) {
			return conflict(repository.ConstraintHandoverNumberUnique)
		}
		h.CreatedBy, h.CreatedAt, h.UpdatedAt = cur.CreatedBy, cur.CreatedAt, now
		d.handovers[h.ID] = copyOf(h)
		return nil
	})
}

func (r *handoverRepo) AddItem(_ context.Context, item *model.HandoverItem) error {
	return r.write(func(d *data, now time.Time) error {
		if _, ok := d.handovers[item.HandoverID]; !ok {
			return referenced("berita_acara_arsip_handover_fkey")
		}
		if _, ok := d.archiveUnits[item.ArchiveUnitID]; !ok {
			return referenced("berita_acara_arsip_archive_unit_fkey")
		}
		for _, it := range d.items {
			if it.HandoverID == item.HandoverID && it.ArchiveUnitID == item.ArchiveUnitID {
				return conflict(repository.ConstraintHandoverItemUnique)
			}
		}
		item.ID = d.nextID(model.TableHandoverItems)
		item.CreatedAt = now
		d.items[item.ID] = copyOf(item)
		return nil
	})
}

func (r *handoverRepo) RemoveItem(_ context.Context, handoverID, archiveUnitID int64) error {
	return r.write(func(d *data, _ time.Time) error {
		for id, it := range d.items {
			if it.HandoverID == handoverID && it.ArchiveUnitID == archiveUnitID {
				delete(d.items, id)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *handoverRepo) Items(_ context.Context, handoverID int64) ([]*model.HandoverItem, error) {
	var out []*model.HandoverItem
	err := r.read(func(d *data) error {
		for _, it := range d.items {
			if it.HandoverID == handoverID {
				out = append(out, copyOf(it))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *handoverRepo) HasItem(_ context.Context, handoverID, archiveUnitID int64) (bool, error) {
	var found bool
	err := r.read(func(d *data) error {
		for _, it := range d.items {
			if it.HandoverID == handoverID && it.ArchiveUnitID == archiveUnitID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
