// Пакет database — пул pgx для реестра, встроенные миграции схемы
// и проверка готовности PostgreSQL для /health/ready.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/goarsip/internal/config"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// SchemaVersion — версия схемы, которую ожидает этот бинарник.
const SchemaVersion uint = 1

const (
	pingTimeout       = 3 * time.Second
	healthCheckPeriod = 30 * time.Second
	maxConnIdleTime   = 5 * time.Minute
)

// ErrDirtySchema — предыдущая миграция прервалась, нужна ручная правка.
var ErrDirtySchema = errors.New("схема БД в состоянии dirty")

// Connect открывает пул к базе реестра и дожидается первого ping.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN реестра: %w", err)
	}
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	poolCfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула pgx: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL %s:%d не отвечает: %w", cfg.DBHost, cfg.DBPort, err)
	}

	logger.Info("Пул PostgreSQL готов",
		slog.String("component", "database"),
		slog.String("db", cfg.DatabaseURL()),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// Migrate поднимает схему реестра до SchemaVersion.
// Схема новее ожидаемой или в состоянии dirty считается ошибкой.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("чтение встроенных миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrationURL())
	if err != nil {
		return fmt.Errorf("подключение golang-migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("чтение версии схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w: версия %d", ErrDirtySchema, version)
	}
	if version > SchemaVersion {
		return fmt.Errorf("схема БД версии %d новее ожидаемой %d", version, SchemaVersion)
	}

	logger.Info("Схема реестра актуальна",
		slog.String("component", "database"),
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// Pinger — часть пула, нужная для проверки готовности.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker отвечает health handler'у о состоянии PostgreSQL.
type ReadinessChecker struct {
	pool Pinger
}

// NewReadinessChecker оборачивает пул в проверку готовности.
func NewReadinessChecker(pool Pinger) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady — "ok" при успешном ping, иначе "fail" с текстом ошибки.
// Для *pgxpool.Pool в сообщение добавляется занятость пула.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	if p, ok := c.pool.(*pgxpool.Pool); ok {
		st := p.Stat()
		return "ok", fmt.Sprintf("соединений %d/%d", st.AcquiredConns(), st.MaxConns())
	}
	return "ok", "подключение активно"
}
