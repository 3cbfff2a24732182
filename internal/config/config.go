// Пакет config — загрузка и валидация конфигурации Archive Registry
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы хранилища.
const (
	// StoragePostgres — PostgreSQL через pgxpool (по умолчанию).
	StoragePostgres = "postgres"
	// StorageMemory — in-memory хранилище (локальная разработка, демо).
	StorageMemory = "memory"
)

// Config содержит все параметры конфигурации Archive Registry.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Режим хранилища: postgres или memory
	Storage string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string
	// Максимальное количество соединений в пуле
	DBMaxConns int

	// --- JWT / JWKS ---

	// URL JWKS endpoint Identity Provider
	JWTJWKSURL string
	// Ожидаемый issuer JWT (пусто — не проверяется)
	JWTIssuer string
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Путь к CA-сертификату для TLS к IdP (опционально)
	CACertPath string

	// --- Маппинг групп IdP → ролей ---

	RoleAdminGroups     []string
	RoleArchivistGroups []string
	RoleOperatorGroups  []string
	RoleViewerGroups    []string

	// Username, который засевается локальным администратором при пустой таблице users
	BootstrapAdmin string

	// --- Кэши ---

	// Максимальный размер LRU-кэша кодов классификации
	CodeCacheSize int
	// TTL записей кэша кодов классификации
	CodeCacheTTL time.Duration
	// TTL кэша статистики dashboard
	StatsCacheTTL time.Duration

	// --- Пагинация ---

	// Размер страницы по умолчанию
	PageSizeDefault int
	// Максимальный размер страницы
	PageSizeMax int

	// --- topologymetrics ---

	// Группа в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AR_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("AR_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("AR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("AR_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("AR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("AR_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("AR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище ---

	cfg.Storage = strings.ToLower(getEnvDefault("AR_STORAGE", StoragePostgres))
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("AR_STORAGE: недопустимое значение %q, допустимые: postgres, memory", cfg.Storage)
	}

	// --- PostgreSQL ---

	if cfg.Storage == StoragePostgres {
		// AR_DB_HOST, AR_DB_NAME, AR_DB_USER, AR_DB_PASSWORD — обязательные
		if cfg.DBHost, err = getEnvRequired("AR_DB_HOST"); err != nil {
			return nil, err
		}
		if cfg.DBName, err = getEnvRequired("AR_DB_NAME"); err != nil {
			return nil, err
		}
		if cfg.DBUser, err = getEnvRequired("AR_DB_USER"); err != nil {
			return nil, err
		}
		if cfg.DBPassword, err = getEnvRequired("AR_DB_PASSWORD"); err != nil {
			return nil, err
		}
	}

	cfg.DBPort, err = getEnvInt("AR_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AR_DB_PORT: %w", err)
	}

	cfg.DBSSLMode = getEnvDefault("AR_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("AR_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	cfg.DBMaxConns, err = getEnvInt("AR_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("AR_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("AR_DB_MAX_CONNS: значение %d должно быть положительным", cfg.DBMaxConns)
	}

	// --- JWT / JWKS ---

	// AR_JWT_JWKS_URL — обязательный, подпись токенов проверяется всегда
	cfg.JWTJWKSURL, err = getEnvRequired("AR_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("AR_JWT_ISSUER", "")

	cfg.JWTLeeway, err = getEnvDuration("AR_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AR_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("AR_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AR_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("AR_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AR_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.CACertPath = getEnvDefault("AR_CA_CERT_PATH", "")

	// --- Маппинг групп → ролей ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("AR_ROLE_ADMIN_GROUPS", "arsip-admins"))
	cfg.RoleArchivistGroups = parseCSV(getEnvDefault("AR_ROLE_ARCHIVIST_GROUPS", "arsip-arsiparis"))
	cfg.RoleOperatorGroups = parseCSV(getEnvDefault("AR_ROLE_OPERATOR_GROUPS", "arsip-operators"))
	cfg.RoleViewerGroups = parseCSV(getEnvDefault("AR_ROLE_VIEWER_GROUPS", "arsip-viewers"))

	cfg.BootstrapAdmin = strings.TrimSpace(getEnvDefault("AR_BOOTSTRAP_ADMIN", ""))

	// --- Кэши ---

	cfg.CodeCacheSize, err = getEnvInt("AR_CODE_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("AR_CODE_CACHE_SIZE: %w", err)
	}
	if cfg.CodeCacheSize < 1 {
		return nil, fmt.Errorf("AR_CODE_CACHE_SIZE: значение %d должно быть положительным", cfg.CodeCacheSize)
	}
	cfg.CodeCacheTTL, err = getEnvDuration("AR_CODE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AR_CODE_CACHE_TTL: %w", err)
	}
	cfg.StatsCacheTTL, err = getEnvDuration("AR_STATS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AR_STATS_CACHE_TTL: %w", err)
	}

	// --- Пагинация ---

	cfg.PageSizeDefault, err = getEnvInt("AR_PAGE_SIZE_DEFAULT", 25)
	if err != nil {
		return nil, fmt.Errorf("AR_PAGE_SIZE_DEFAULT: %w", err)
	}
	cfg.PageSizeMax, err = getEnvInt("AR_PAGE_SIZE_MAX", 200)
	if err != nil {
		return nil, fmt.Errorf("AR_PAGE_SIZE_MAX: %w", err)
	}
	if cfg.PageSizeDefault < 1 || cfg.PageSizeMax < cfg.PageSizeDefault {
		return nil, fmt.Errorf("AR_PAGE_SIZE_DEFAULT/AR_PAGE_SIZE_MAX: требуется 1 <= default (%d) <= max (%d)",
			cfg.PageSizeDefault, cfg.PageSizeMax)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("AR_DEPHEALTH_GROUP", "arsip")
	cfg.DephealthCheckInterval, err = getEnvDuration("AR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("AR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AR_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL (формат key=value для pgxpool).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode, c.DBMaxConns,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrationURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrationURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
