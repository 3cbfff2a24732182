// dephealth.go — контроль внешних зависимостей реестра через topologymetrics SDK.
//
// В графе у archive-registry две критичные зависимости: база реестра
// (pgcheck поверх существующего пула) и JWKS endpoint IdP (HTTP-проверка).
// Состояние публикуется на /metrics (app_dependency_health,
// app_dependency_latency_seconds) и попадает в /health/ready.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck"
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в метриках.
const (
	DependencyRegistryDB = "registry-db"
	DependencyIdPJWKS    = "idp-jwks"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	ServiceID string
	Group     string
	// DB — *sql.DB поверх pgxpool (stdlib.OpenDBFromPool).
	DB *sql.DB
	// PostgresURL без учётных данных, идёт только в лейблы.
	PostgresURL string
	// JWKSURL пустой — IdP не проверяется.
	JWKSURL  string
	Interval time.Duration
	// Registerer nil — глобальный registry Prometheus.
	Registerer prometheus.Registerer
}

// DephealthService — периодические проверки зависимостей реестра.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService регистрирует проверки; запуск отдельно через Start.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(DependencyRegistryDB, dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)),
			dephealth.FromURL(cfg.PostgresURL),
			dephealth.CheckInterval(cfg.Interval),
			dephealth.Critical(true),
		),
	}
	if cfg.JWKSURL != "" {
		opts = append(opts, dephealth.HTTP(DependencyIdPJWKS,
			dephealth.FromURL(cfg.JWKSURL),
			dephealth.WithHTTPHealthPath(jwksHealthPath(cfg.JWKSURL)),
			dephealth.CheckInterval(cfg.Interval),
			dephealth.Critical(true),
		))
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, fmt.Errorf("topologymetrics: %w", err)
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// jwksHealthPath — путь самого JWKS; у IdP нет /health.
func jwksHealthPath(jwksURL string) string {
	if u, err := url.Parse(jwksURL); err == nil && u.Path != "" {
		return u.Path
	}
	return "/"
}

// Start запускает проверки в фоне.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Проверки зависимостей запущены")
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Проверки зависимостей остановлены")
}

// Health — состояние по именам зависимостей.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady для /health/ready: fail, если недоступна хотя бы одна зависимость.
func (ds *DephealthService) CheckReady() (status string, message string) {
	return summarizeHealth(ds.dh.Health())
}

// summarizeHealth сворачивает состояние зависимостей в статус readiness.
// Недоступные перечисляются по алфавиту.
func summarizeHealth(health map[string]bool) (string, string) {
	var down []string
	for name, ok := range health {
		if !ok {
			down = append(down, name)
		}
	}
	if len(down) == 0 {
		return "ok", fmt.Sprintf("зависимостей в норме: %d", len(health))
	}
	sort.Strings(down)
	return "fail", "недоступны: " + strings.Join(down, ", ")
}
