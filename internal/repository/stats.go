package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/goarsip/internal/domain/model"
)

// StatsRepository — агрегаты для dashboard.
type StatsRepository interface {
	// Statistics считает показатели в пределах области видимости единиц хранения.
	Statistics(ctx context.Context, v model.Visibility) (*model.Statistics, error)
}

type statsRepo struct {
	db DBTX
}

// NewStatsRepository создаёт репозиторий статистики.
func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) Statistics(ctx context.Context, v model.Visibility) (*model.Statistics, error) {
	st := model.NewStatistics()

	w := &where{}
	visibilityWhere(w, v)
	rows, err := r.db.Query(ctx,
		`SELECT status, publish_status, COUNT(*) FROM arsip_unit `+w.sql()+` GROUP BY status, publish_status`,
		w.args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта единиц хранения: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status model.ArchiveStatus
		var publish model.PublishStatus
		var n int
		if err := rows.Scan(&status, &publish, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики: %w", err)
		}
		st.ArchiveUnits += n
		st.ByStatus[status] += n
		st.ByPublishStatus[publish] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM berkas_arsip),
			(SELECT COUNT(*) FROM berita_acara_penyerahan),
			(SELECT COUNT(*) FROM kode_klasifikasi),
			(SELECT COUNT(*) FROM unit_pengolah)`,
	).Scan(&st.ArchiveFiles, &st.Handovers, &st.ClassificationCodes, &st.ProcessingUnits)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта справочников: %w", err)
	}
	return st, nil
}
