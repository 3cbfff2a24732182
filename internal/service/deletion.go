// deletion.go — удаление записей по реестру связей model.Relations.
// Одна процедура для всех сущностей: сначала проверки restrict,
// затем каскад, затем обнуление ссылок, затем удаление самой строки.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/repository"
)

// deleteRow удаляет строку table с ключом key внутри транзакции r.
// Ключ — int64 для всех таблиц, кроме кодов классификации (string).
func deleteRow(ctx context.Context, r repository.Repositories, table string, key any) error {
	relations := model.RelationsOf(table)

	for _, rel := range relations {
		if rel.Policy != model.PolicyRestrict {
			continue
		}
		n, err := r.References.Count(ctx, rel, key)
		if err != nil {
			return err
		}
		if n > 0 {
			return violationError(rel.Violation)
		}
	}

	for _, rel := range relations {
		switch rel.Policy {
		case model.PolicyCascade:
			keys, err := r.References.Keys(ctx, rel, key)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := deleteRow(ctx, r, rel.Child, k); err != nil {
					return err
				}
			}
		case model.PolicySetNull:
			if _, err := r.References.Clear(ctx, rel, key); err != nil {
				return err
			}
		}
	}

	if err := r.References.Delete(ctx, table, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if errors.Is(err, repository.ErrReferenced) {
			return violationError(violationOf(repository.ConstraintOf(err)))
		}
		return fmt.Errorf("удаление из %s: %w", table, err)
	}
	return nil
}

// violationError переводит вид нарушения связи в ошибку сервиса.
func violationError(v model.Violation) error {
	switch v {
	case model.ViolationHasChildren:
		return ErrHasChildren
	case model.ViolationReferencedByArchiveFile:
		return ErrReferencedByArchiveFile
	default:
		return ErrReferencedByHandover
	}
}

// restrictConstraints — ограничения ON DELETE RESTRICT из миграций.
var restrictConstraints = map[string]model.Violation{
	"kode_klasifikasi_parent_fkey":             model.ViolationHasChildren,
	"berkas_arsip_code_fkey":                   model.ViolationReferencedByArchiveFile,
	"berita_acara_penyerahan_origin_fkey":      model.ViolationReferencedByHandover,
	"berita_acara_penyerahan_destination_fkey": model.ViolationReferencedByHandover,
	"berita_acara_penyerahan_created_by_fkey":  model.ViolationReferencedByHandover,
	"berita_acara_arsip_archive_unit_fkey":     model.ViolationReferencedByHandover,
}

// violationOf находит вид нарушения по имени связи (memstore)
// или по имени ограничения БД (PostgreSQL).
func violationOf(name string) model.Violation {
	if v, ok := restrictConstraints[name]; ok {
		return v
	}
	for _, rel := range model.Relations {
		if rel.Policy == model.PolicyRestrict && rel.Name == name {
			return rel.Violation
		}
	}
	return model.ViolationReferencedByHandover
}
