// dashboard.go — сводная статистика реестра для главной страницы.
// Результат кэшируется (patrickmn/go-cache) отдельно для каждой области видимости.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bigkaa/goarsip/internal/domain/model"
	"github.com/bigkaa/goarsip/internal/domain/rbac"
	"github.com/bigkaa/goarsip/internal/repository"
)

// DashboardService — статистика реестра с кэшем по области видимости.
type DashboardService struct {
	store  repository.Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewDashboardService создаёт сервис статистики.
// ttl — время жизни закэшированной статистики; 0 отключает кэш.
func NewDashboardService(store repository.Store, ttl time.Duration, logger *slog.Logger) *DashboardService {
	s := &DashboardService{
		store:  store,
		logger: logger.With(slog.String("component", "dashboard_service")),
	}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Statistics возвращает статистику, видимую viewer.
func (s *DashboardService) Statistics(ctx context.Context, viewer model.Actor) (*model.Statistics, error) {
	v := rbac.VisibilityFor(viewer)
	key := v.Key()

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(*model.Statistics), nil
		}
	}

	st, err := s.store.Repositories().Stats.Statistics(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("сбор статистики: %w", err)
	}

	if s.cache != nil {
		s.cache.SetDefault(key, st)
	}
	s.logger.Debug("Статистика пересчитана",
		slog.String("scope", key),
		slog.Int("archive_units", st.ArchiveUnits),
	)
	return st, nil
}

// Invalidate сбрасывает закэшированную статистику.
func (s *DashboardService) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}
