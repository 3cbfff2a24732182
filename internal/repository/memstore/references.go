package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// childRow — строка дочерней таблицы: её ключ, значения ссылочных колонок
// и функция обнуления колонки.
type childRow struct {
	key   any
	refs  map[string]any
	clear func(column string)
}

func id(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// rows возвращает строки таблицы со ссылочными колонками.
func (d *data) rows(table string) []childRow {
	var out []childRow
	switch table {
	case model.TableClassificationCodes:
		for _, c := range d.codes {
			out = append(out, childRow{c.Code, map[string]any{"parent_code": str(c.ParentCode)},
				func(string) { c.ParentCode = nil }})
		}
	case model.TableSubCategories:
		for _, s := range d.subCategories {
			out = append(out, childRow{s.ID, map[string]any{"kategori_id": s.CategoryID}, func(string) {}})
		}
	case model.TableUsers:
		for _, u := range d.users {
			out = append(out, childRow{u.ID, map[string]any{"processing_unit_id": id(u.ProcessingUnitID)},
				func(string) { u.ProcessingUnitID = nil }})
		}
	case model.TableArchiveFiles:
		for _, f := range d.files {
			out = append(out, childRow{f.ID, map[string]any{
				"classification_code": f.ClassificationCode,
				"processing_unit_id":  id(f.ProcessingUnitID),
				"created_by":          id(f.CreatedBy),
			}, func(col string) {
				switch col {
				case "processing_unit_id":
					f.ProcessingUnitID = nil
				case "created_by":
					f.CreatedBy = nil
				}
			}})
		}
	case model.TableArchiveUnits:
		for _, u := range d.archiveUnits {
			out = append(out, childRow{u.ID, map[string]any{
				"classification_code": str(u.ClassificationCode),
				"processing_unit_id":  id(u.ProcessingUnitID),
				"archive_file_id":     id(u.ArchiveFileID),
				"category_id":         id(u.CategoryID),
				"sub_category_id":     id(u.SubCategoryID),
				"verified_by":         id(u.VerifiedBy),
				"created_by":          id(u.CreatedBy),
			}, func(col string) {
				switch col {
				case "classification_code":
					u.ClassificationCode = nil
				case "processing_unit_id":
					u.ProcessingUnitID = nil
				case "archive_file_id":
					u.ArchiveFileID = nil
				case "category_id":
					u.CategoryID = nil
				case "sub_category_id":
					u.SubCategoryID = nil
				case "verified_by":
					u.VerifiedBy = nil
				case "created_by":
					u.CreatedBy = nil
				}
			}})
		}
	case model.TableHandovers:
		for _, h := range d.handovers {
			out = append(out, childRow{h.ID, map[string]any{
				"origin_unit_id":      h.OriginUnitID,
				"destination_unit_id": id(h.DestinationUnitID),
				"created_by":          h.CreatedBy,
			}, func(col string) {
				if col == "destination_unit_id" {
					h.DestinationUnitID = nil
				}
			}})
		}
	case model.TableHandoverItems:
		for _, it := range d.items {
			out = append(out, childRow{it.ID, map[string]any{
				"handover_id":     it.HandoverID,
				"archive_unit_id": it.ArchiveUnitID,
			}, func(string) {}})
		}
	}
	return out
}

// referencing возвращает строки дочерней таблицы связи, ссылающиеся на key.
func (d *data) referencing(rel model.Relation, key any) []childRow {
	var out []childRow
	for _, row := range d.rows(rel.Child) {
		if v := row.refs[rel.ChildColumn]; v != nil && v == key {
			out = append(out, row)
		}
	}
	return out
}

// remove удаляет строку так же, как это сделала бы схема БД:
// restrict — ошибка, cascade — удаление дочерних, set null — обнуление.
func (d *data) remove(table string, key any) error {
	for _, rel := range model.RelationsOf(table) {
		children := d.referencing(rel, key)
		switch rel.Policy {
		case model.PolicyRestrict:
			if len(children) > 0 {
				return referenced(rel.Name)
			}
		case model.PolicyCascade:
			for _, c := range children {
				if err := d.remove(rel.Child, c.key); err != nil {
					return err
				}
			}
		case model.PolicySetNull:
			for _, c := range children {
				c.clear(rel.ChildColumn)
			}
		}
	}

	found := false
	switch table {
	case model.TableClassificationCodes:
		k, _ := key.(string)
		_, found = d.codes[k]
		delete(d.codes, k)
	default:
		k, ok := key.(int64)
		if !ok {
			return fmt.Errorf("ключ %v таблицы %s должен быть int64", key, table)
		}
		found = d.deleteByID(table, k)
	}
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (d *data) deleteByID(table string, k int64) bool {
	var ok bool
	switch table {
	case model.TableProcessingUnits:
		_, ok = d.units[k]
		delete(d.units, k)
	case model.TableCategories:
		_, ok = d.categories[k]
		delete(d.categories, k)
	case model.TableSubCategories:
		_, ok = d.subCategories[k]
		delete(d.subCategories, k)
	case model.TableArchiveFiles:
		_, ok = d.files[k]
		delete(d.files, k)
	case model.TableArchiveUnits:
		_, ok = d.archiveUnits[k]
		delete(d.archiveUnits, k)
	case model.TableHandovers:
		_, ok = d.handovers[k]
		delete(d.handovers, k)
	case model.TableHandoverItems:
		_, ok = d.items[k]
		delete(d.items, k)
	case model.TableUsers:
		_, ok = d.users[k]
		delete(d.users, k)
	}
	return ok
}

type referenceRepo struct{ base }

func (r *referenceRepo) Count(_ context.Context, rel model.Relation, key any) (int, error) {
	var n int
	err := r.read(func(d *data) error {
		n = len(d.referencing(rel, key))
		return nil
	})
	return n, err
}

func (r *referenceRepo) Keys(_ context.Context, rel model.Relation, key any) ([]any, error) {
	var keys []any
	err := r.read(func(d *data) error {
		for _, row := range d.referencing(rel, key) {
			keys = append(keys, row.key)
		}
		return nil
	})
	return keys, err
}

func (r *referenceRepo) Clear(_ context.Context, rel model.Relation, key any) (int64, error) {
	var n int64
	err := r.write(func(d *data, now time.Time) error {
		for _, row := range d.referencing(rel, key) {
			row.clear(rel.ChildColumn)
			n++
		}
		return nil
	})
	return n, err
}

func (r *referenceRepo) Delete(_ context.Context, table string, key any) error {
	return r.write(func(d *data, _ time.Time) error {
		return d.remove(table, key)
	})
}

type statsRepo struct{ base }

func (r *statsRepo) Statistics(_ context.Context, v model.Visibility) (*model.Statistics, error) {
	st := model.NewStatistics()
	err := r.read(func(d *data) error {
		for _, u := range d.archiveUnits {
			if !v.Allows(u) {
				continue
			}
			st.ArchiveUnits++
			st.ByStatus[u.Status]++
			st.ByPublishStatus[u.PublishStatus]++
		}
		st.ArchiveFiles = len(d.files)
		st.Handovers = len(d.handovers)
		st.ClassificationCodes = len(d.codes)
		st.ProcessingUnits = len(d.units)
		return nil
	})
	return st, err
}
