package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jochuk/clubdesk/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                       string
	ServiceName                  string
	ServiceVersion               string
	HTTPAddr                     string
	ReadTimeout                  time.Duration
	WriteTimeout                 time.Duration
	LogLevel                     logging.Level
	CORSAllowedOrigins           []string
	CacheEnabled                 bool
	CacheTTL                     time.Duration
	SnapshotDBPath               string
	ClubAPIBaseURL               string
	ClubAPITimeout               time.Duration
	ClubAPIMaxRetries            int
	ClubAPICircuitEnabled        bool
	ClubAPICircuitFailureCount   int
	ClubAPICircuitOpenTimeout    time.Duration
	ClubAPICircuitHalfOpenMaxReq int
	SessionStartDate             time.Time
	SessionWeekday               time.Weekday
	Executives                   []ExecutiveEntry
	ScoreAttendance              int
	ScoreGoal                    int
	ScoreAssist                  int
	ScoreCleanSheet              int
	ScoreWin                     int
	ScoreDraw                    int
	ScoreLose                    int
	ScoreMOM                     int
	InternalJobToken             string
	RefreshSessions              int
	RefreshMaxWorkers            int
	PprofEnabled                 bool
	PprofAddr                    string
	UptraceEnabled               bool
	UptraceDSN                   string
	PyroscopeEnabled             bool
	PyroscopeServerAddress       string
	PyroscopeAppName             string
	PyroscopeAuthToken           string
	PyroscopeBasicAuthUser       string
	PyroscopeBasicAuthPassword   string
	PyroscopeUploadRate          time.Duration
}

// ExecutiveEntry is one configured committee member, parsed from
// EXECUTIVES as role:name pairs.
type ExecutiveEntry struct {
	Role string
	Name string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	clubAPIBaseURL := strings.TrimSpace(getEnv("CLUB_API_BASE_URL", ""))
	if clubAPIBaseURL == "" {
		return Config{}, fmt.Errorf("CLUB_API_BASE_URL is required")
	}

	clubAPITimeout, err := time.ParseDuration(getEnv("CLUB_API_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_TIMEOUT: %w", err)
	}
	if clubAPITimeout <= 0 {
		return Config{}, fmt.Errorf("CLUB_API_TIMEOUT must be > 0")
	}
	clubAPIMaxRetries, err := getEnvAsInt("CLUB_API_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_MAX_RETRIES: %w", err)
	}
	if clubAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("CLUB_API_MAX_RETRIES must be >= 0")
	}
	clubAPICircuitEnabled, err := strconv.ParseBool(getEnv("CLUB_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_CIRCUIT_ENABLED: %w", err)
	}
	clubAPICircuitFailureCount, err := getEnvAsInt("CLUB_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if clubAPICircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("CLUB_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	clubAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("CLUB_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if clubAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CLUB_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	clubAPICircuitHalfOpenMaxReq, err := getEnvAsInt("CLUB_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLUB_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if clubAPICircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("CLUB_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	sessionStartDate, err := time.Parse("2006-01-02", getEnv("SESSION_START_DATE", "2024-11-02"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_START_DATE: %w", err)
	}
	sessionWeekday, err := parseWeekday(getEnv("SESSION_WEEKDAY", "saturday"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_WEEKDAY: %w", err)
	}

	executives, err := parseExecutives(getEnv("EXECUTIVES", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse EXECUTIVES: %w", err)
	}

	scoreAttendance, err := getEnvAsInt("SCORE_ATTENDANCE", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_ATTENDANCE: %w", err)
	}
	scoreGoal, err := getEnvAsInt("SCORE_GOAL", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_GOAL: %w", err)
	}
	scoreAssist, err := getEnvAsInt("SCORE_ASSIST", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_ASSIST: %w", err)
	}
	scoreCleanSheet, err := getEnvAsInt("SCORE_CLEAN_SHEET", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_CLEAN_SHEET: %w", err)
	}
	scoreWin, err := getEnvAsInt("SCORE_WIN", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_WIN: %w", err)
	}
	scoreDraw, err := getEnvAsInt("SCORE_DRAW", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_DRAW: %w", err)
	}
	scoreLose, err := getEnvAsInt("SCORE_LOSE", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_LOSE: %w", err)
	}
	scoreMOM, err := getEnvAsInt("SCORE_MOM", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCORE_MOM: %w", err)
	}

	refreshSessions, err := getEnvAsInt("REFRESH_SESSIONS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_SESSIONS: %w", err)
	}
	if refreshSessions < 1 {
		return Config{}, fmt.Errorf("REFRESH_SESSIONS must be >= 1")
	}
	refreshMaxWorkers, err := getEnvAsInt("REFRESH_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_MAX_WORKERS: %w", err)
	}
	if refreshMaxWorkers < 1 {
		return Config{}, fmt.Errorf("REFRESH_MAX_WORKERS must be >= 1")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                       appEnv,
		ServiceName:                  getEnv("APP_SERVICE_NAME", "clubdesk-api"),
		ServiceVersion:               getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                     getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                  readTimeout,
		WriteTimeout:                 writeTimeout,
		LogLevel:                     parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:           splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		CacheEnabled:                 cacheEnabled,
		CacheTTL:                     cacheTTL,
		SnapshotDBPath:               getEnv("SNAPSHOT_DB_PATH", "clubdesk-snapshot.db"),
		ClubAPIBaseURL:               strings.TrimRight(clubAPIBaseURL, "/"),
		ClubAPITimeout:               clubAPITimeout,
		ClubAPIMaxRetries:            clubAPIMaxRetries,
		ClubAPICircuitEnabled:        clubAPICircuitEnabled,
		ClubAPICircuitFailureCount:   clubAPICircuitFailureCount,
		ClubAPICircuitOpenTimeout:    clubAPICircuitOpenTimeout,
		ClubAPICircuitHalfOpenMaxReq: clubAPICircuitHalfOpenMaxReq,
		SessionStartDate:             sessionStartDate,
		SessionWeekday:               sessionWeekday,
		Executives:                   executives,
		ScoreAttendance:              scoreAttendance,
		ScoreGoal:                    scoreGoal,
		ScoreAssist:                  scoreAssist,
		ScoreCleanSheet:              scoreCleanSheet,
		ScoreWin:                     scoreWin,
		ScoreDraw:                    scoreDraw,
		ScoreLose:                    scoreLose,
		ScoreMOM:                     scoreMOM,
		InternalJobToken:             strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		RefreshSessions:              refreshSessions,
		RefreshMaxWorkers:            refreshMaxWorkers,
		PprofEnabled:                 pprofEnabled,
		PprofAddr:                    pprofAddr,
		UptraceEnabled:               uptraceEnabled,
		UptraceDSN:                   uptraceDSN,
		PyroscopeEnabled:             pyroscopeEnabled,
		PyroscopeServerAddress:       pyroscopeServerAddress,
		PyroscopeAuthToken:           strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:       strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:   strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:          pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseWeekday(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return time.Sunday, fmt.Errorf("invalid weekday %q", v)
	}
}

func parseExecutives(raw string) ([]ExecutiveEntry, error) {
	parts := strings.Split(raw, ",")
	out := make([]ExecutiveEntry, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		segments := strings.SplitN(item, ":", 2)
		if len(segments) != 2 {
			return nil, fmt.Errorf("invalid item %q, expected role:name", item)
		}
		role := strings.TrimSpace(segments[0])
		name := strings.TrimSpace(segments[1])
		if role == "" || name == "" {
			return nil, fmt.Errorf("empty role or name in item %q", item)
		}
		out = append(out, ExecutiveEntry{Role: role, Name: name})
	}
	return out, nil
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

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
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
