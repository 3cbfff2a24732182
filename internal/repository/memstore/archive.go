package memstore

import (
	"context"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// --- berkas_arsip ---

type fileRepo struct{ base }

func (r *fileRepo) Create(_ context.Context, f *model.ArchiveFile) error {
	return r.write(func(d *data, now time.Time) error {
		if _, ok := d.codes[f.ClassificationCode]; !ok {
			return referenced("berkas_arsip_code_fkey")
		}
		f.ID = d.nextID(model.TableArchiveFiles)
		f.CreatedAt, f.UpdatedAt = now, now
		d.files[f.ID] = copyOf(f)
		return nil
	})
}

func (r *fileRepo) GetByID(_ context.Context, id int64) (*model.ArchiveFile, error) {
	var out *model.ArchiveFile
	err := r.read(func(d *data) error {
		f, ok := d.files[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(f)
		return nil
	})
	return out, err
}

func (r *fileRepo) filtered(d *data, f model.ArchiveFileFilter) []*model.ArchiveFile {
	return sortedValues(d.files, func(af *model.ArchiveFile) bool {
		return matches(f.Search, af.Name, af.Description, af.PhysicalLocation) &&
			(f.ClassificationCode == nil || af.ClassificationCode == *f.ClassificationCode) &&
			eqID(f.ProcessingUnitID, af.ProcessingUnitID)
	}, func(a, b *model.ArchiveFile) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (r *fileRepo) List(_ context.Context, f model.ArchiveFileFilter) ([]*model.ArchiveFile, error) {
	var out []*model.ArchiveFile
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, f), f.Page)
		return nil
	})
	return out, err
}

func (r *fileRepo) Count(_ context.Context, f model.ArchiveFileFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *fileRepo) Update(_ context.Context, f *model.ArchiveFile) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.files[f.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.codes[f.ClassificationCode]; !ok {
			return referenced("berkas_arsip_code_fkey")
		}
		f.CreatedBy, f.CreatedAt, f.UpdatedAt = cur.CreatedBy, cur.CreatedAt, now
		d.files[f.ID] = copyOf(f)
		return nil
	})
}

// --- arsip_unit ---

type archiveUnitRepo struct{ base }

func (r *archiveUnitRepo) Create(_ context.Context, u *model.ArchiveUnit) error {
	return r.write(func(d *data, now time.Time) error {
		u.ID = d.nextID(model.TableArchiveUnits)
		u.CreatedAt, u.UpdatedAt = now, now
		if u.SubmittedAt.IsZero() {
			u.SubmittedAt = now
		}
		d.archiveUnits[u.ID] = copyOf(u)
		return nil
	})
}

func (r *archiveUnitRepo) GetByID(_ context.Context, id int64) (*model.ArchiveUnit, error) {
	var out *model.ArchiveUnit
	err := r.read(func(d *data) error {
		u, ok := d.archiveUnits[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyOf(u)
		return nil
	})
	return out, err
}

func (r *archiveUnitRepo) filtered(d *data, f model.ArchiveUnitFilter) []*model.ArchiveUnit {
	return sortedValues(d.archiveUnits, func(u *model.ArchiveUnit) bool {
		return matches(f.Search, u.IndexTerms, u.Description, u.Remarks) &&
			(f.Status == nil || u.Status == *f.Status) &&
			(f.PublishStatus == nil || u.PublishStatus == *f.PublishStatus) &&
			eqID(f.ProcessingUnitID, u.ProcessingUnitID) &&
			eqID(f.CategoryID, u.CategoryID) &&
			eqID(f.SubCategoryID, u.SubCategoryID) &&
			eqID(f.ArchiveFileID, u.ArchiveFileID) &&
			eqStr(f.ClassificationCode, u.ClassificationCode) &&
			f.Visibility.Allows(u)
	}, func(a, b *model.ArchiveUnit) bool {
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt)
		}
		return a.ID > b.ID
	})
}

func (r *archiveUnitRepo) List(_ context.Context, f model.ArchiveUnitFilter) ([]*model.ArchiveUnit, error) {
	var out []*model.ArchiveUnit
	err := r.read(func(d *data) error {
		out = paginate(r.filtered(d, f), f.Page)
		return nil
	})
	return out, err
}

func (r *archiveUnitRepo) Count(_ context.Context, f model.ArchiveUnitFilter) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(r.filtered(d, f))
		return nil
	})
	return n, err
}

func (r *archiveUnitRepo) Update(_ context.Context, u *model.ArchiveUnit) error {
	return r.write(func(d *data, now time.Time) error {
		cur, ok := d.archiveUnits[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := *cur
		next.ClassificationCode = u.ClassificationCode
		next.ProcessingUnitID = u.ProcessingUnitID
		next.ArchiveFileID = u.ArchiveFileID
		next.CategoryID = u.CategoryID
		next.SubCategoryID = u.SubCategoryID
		next.IndexTerms = u.IndexTerms
		next.Description = u.Description
		next.ItemDate = u.ItemDate
		next.Amount = u.Amount
		next.AmountUnit = u.AmountUnit
		next.Location = u.Location
		next.Remarks = u.Remarks
		next.UpdatedAt = now
		d.archiveUnits[u.ID] = &next
		*u = next
		return nil
	})
}

func (r *archiveUnitRepo) SetStatus(_ context.Context, id int64, status model.ArchiveStatus, verifiedBy int64, verifiedAt time.Time, notes *string) error {
	return r.write(func(d *data, now time.Time) error {
		u, ok := d.archiveUnits[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.Status = status
		u.VerifiedBy = &verifiedBy
		u.VerifiedAt = &verifiedAt
		u.VerificationNotes = notes
		u.UpdatedAt = now
		return nil
	})
}

func (r *archiveUnitRepo) SetPublishStatus(_ context.Context, id int64, publish model.PublishStatus) error {
	return r.write(func(d *data, now time.Time) error {
		u, ok := d.archiveUnits[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.PublishStatus = publish
		u.UpdatedAt = now
		return nil
	})
}
