package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/match-export/internal/platform/logging"
)

// Config stores runtime configuration for the exporter.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level

	PandaScoreBaseURL               string
	PandaScoreToken                 string
	PandaScoreVideogame             string
	PandaScoreStatusFilter          string
	PandaScorePerPage               int
	PandaScoreFirstPage             int
	PandaScorePageLimit             int
	PandaScoreTimeout               time.Duration
	PandaScoreMaxRetries            int
	PandaScoreRetryBackoff          time.Duration
	PandaScoreSkipFailedPages       bool
	PandaScoreStopOnEmptyPage       bool
	PandaScoreCircuitEnabled        bool
	PandaScoreCircuitFailureCount   int
	PandaScoreCircuitOpenTimeout    time.Duration
	PandaScoreCircuitHalfOpenMaxReq int

	ExportOutputPath string

	ArchiveEnabled          bool
	DBURL                   string
	DBDisablePreparedBinary bool

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                 appEnv,
		ServiceName:            getEnv("APP_SERVICE_NAME", "match-export"),
		ServiceVersion:         getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:               logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		PandaScoreBaseURL:      strings.TrimRight(strings.TrimSpace(getEnv("PANDASCORE_BASE_URL", "https://api.pandascore.co")), "/"),
		PandaScoreToken:        strings.TrimSpace(getEnv("PANDASCORE_TOKEN", "")),
		PandaScoreVideogame:    strings.TrimSpace(getEnv("PANDASCORE_VIDEOGAME", "csgo")),
		PandaScoreStatusFilter: strings.TrimSpace(getEnv("PANDASCORE_STATUS_FILTER", "finished")),
		ExportOutputPath:       strings.TrimSpace(getEnv("EXPORT_OUTPUT_PATH", "max_api_test.csv")),
		DBURL:                  strings.TrimSpace(getEnv("DB_URL", "")),
		UptraceDSN:             strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PyroscopeServerAddress: strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
	}
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))

	if cfg.PandaScoreToken == "" {
		return Config{}, fmt.Errorf("PANDASCORE_TOKEN is required")
	}
	if cfg.PandaScoreVideogame == "" {
		return Config{}, fmt.Errorf("PANDASCORE_VIDEOGAME must not be empty")
	}
	if cfg.ExportOutputPath == "" {
		return Config{}, fmt.Errorf("EXPORT_OUTPUT_PATH must not be empty")
	}

	if err := loadPaging(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadPandaScoreResilience(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadArchive(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadObservability(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadPaging(cfg *Config) error {
	var err error
	cfg.PandaScorePerPage, err = getEnvAsInt("PANDASCORE_PER_PAGE", 100)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_PER_PAGE: %w", err)
	}
	if cfg.PandaScorePerPage < 1 || cfg.PandaScorePerPage > 100 {
		return fmt.Errorf("PANDASCORE_PER_PAGE must be between 1 and 100")
	}

	cfg.PandaScoreFirstPage, err = getEnvAsInt("PANDASCORE_FIRST_PAGE", 1)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_FIRST_PAGE: %w", err)
	}
	if cfg.PandaScoreFirstPage < 1 {
		return fmt.Errorf("PANDASCORE_FIRST_PAGE must be >= 1")
	}

	cfg.PandaScorePageLimit, err = getEnvAsInt("PANDASCORE_PAGE_LIMIT", 998)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_PAGE_LIMIT: %w", err)
	}
	if cfg.PandaScorePageLimit <= cfg.PandaScoreFirstPage {
		return fmt.Errorf("PANDASCORE_PAGE_LIMIT must be > PANDASCORE_FIRST_PAGE")
	}

	cfg.PandaScoreSkipFailedPages, err = strconv.ParseBool(getEnv("PANDASCORE_SKIP_FAILED_PAGES", "false"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_SKIP_FAILED_PAGES: %w", err)
	}
	cfg.PandaScoreStopOnEmptyPage, err = strconv.ParseBool(getEnv("PANDASCORE_STOP_ON_EMPTY_PAGE", "false"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_STOP_ON_EMPTY_PAGE: %w", err)
	}
	return nil
}

func loadPandaScoreResilience(cfg *Config) error {
	var err error
	cfg.PandaScoreTimeout, err = time.ParseDuration(getEnv("PANDASCORE_TIMEOUT", "20s"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_TIMEOUT: %w", err)
	}
	if cfg.PandaScoreTimeout <= 0 {
		return fmt.Errorf("PANDASCORE_TIMEOUT must be > 0")
	}

	cfg.PandaScoreMaxRetries, err = getEnvAsInt("PANDASCORE_MAX_RETRIES", 0)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_MAX_RETRIES: %w", err)
	}
	if cfg.PandaScoreMaxRetries < 0 {
		return fmt.Errorf("PANDASCORE_MAX_RETRIES must be >= 0")
	}
	cfg.PandaScoreRetryBackoff, err = time.ParseDuration(getEnv("PANDASCORE_RETRY_BACKOFF", "1s"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_RETRY_BACKOFF: %w", err)
	}
	if cfg.PandaScoreRetryBackoff <= 0 {
		return fmt.Errorf("PANDASCORE_RETRY_BACKOFF must be > 0")
	}

	cfg.PandaScoreCircuitEnabled, err = strconv.ParseBool(getEnv("PANDASCORE_CIRCUIT_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_CIRCUIT_ENABLED: %w", err)
	}
	cfg.PandaScoreCircuitFailureCount, err = getEnvAsInt("PANDASCORE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if cfg.PandaScoreCircuitFailureCount <= 0 {
		return fmt.Errorf("PANDASCORE_CIRCUIT_FAILURE_COUNT must be > 0")
	}
	cfg.PandaScoreCircuitOpenTimeout, err = time.ParseDuration(getEnv("PANDASCORE_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if cfg.PandaScoreCircuitOpenTimeout <= 0 {
		return fmt.Errorf("PANDASCORE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	cfg.PandaScoreCircuitHalfOpenMaxReq, err = getEnvAsInt("PANDASCORE_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return fmt.Errorf("parse PANDASCORE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if cfg.PandaScoreCircuitHalfOpenMaxReq <= 0 {
		return fmt.Errorf("PANDASCORE_CIRCUIT_HALF_OPEN_MAX_REQ must be > 0")
	}
	return nil
}

func loadArchive(cfg *Config) error {
	var err error
	cfg.ArchiveEnabled, err = strconv.ParseBool(getEnv("ARCHIVE_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse ARCHIVE_ENABLED: %w", err)
	}
	if cfg.ArchiveEnabled && cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required when ARCHIVE_ENABLED=true")
	}
	cfg.DBDisablePreparedBinary, err = strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	return nil
}

func loadObservability(cfg *Config) error {
	var err error
	cfg.UptraceEnabled, err = strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg.PyroscopeEnabled, err = strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeUploadRate, err = time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if cfg.PyroscopeUploadRate <= 0 {
		return fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
