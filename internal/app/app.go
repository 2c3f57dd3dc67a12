package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jochuk/clubdesk/external/clubapi"
	"github.com/jochuk/clubdesk/internal/config"
	"github.com/jochuk/clubdesk/internal/domain/member"
	"github.com/jochuk/clubdesk/internal/domain/scoring"
	"github.com/jochuk/clubdesk/internal/infrastructure/snapshot"
	"github.com/jochuk/clubdesk/internal/interfaces/httpapi"
	"github.com/jochuk/clubdesk/internal/platform/cache"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/platform/resilience"
	"github.com/jochuk/clubdesk/internal/usecase"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	Server *http.Server

	closers []func(context.Context) error
}

// Close releases everything New acquired, newest first.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	client := clubapi.NewClient(clubapi.ClientConfig{
		BaseURL:    cfg.ClubAPIBaseURL,
		Timeout:    cfg.ClubAPITimeout,
		MaxRetries: cfg.ClubAPIMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ClubAPICircuitEnabled,
			FailureThreshold: cfg.ClubAPICircuitFailureCount,
			OpenTimeout:      cfg.ClubAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ClubAPICircuitHalfOpenMaxReq,
		},
	})

	app := &App{}

	db, err := snapshot.OpenDB(cfg.SnapshotDBPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return db.Close() })
	if err := snapshot.Migrate(db); err != nil {
		_ = app.Close(context.Background())
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}

	sheetSnapshots := snapshot.NewSheetStore(db, logger)
	ledgerSnapshots := snapshot.NewLedgerStore(db, logger)

	var cacheStore *cache.Store
	if cfg.CacheEnabled {
		cacheStore = cache.NewStore(cfg.CacheTTL)
	}

	rules := scoring.Rules{
		Attendance: cfg.ScoreAttendance,
		Goal:       cfg.ScoreGoal,
		Assist:     cfg.ScoreAssist,
		CleanSheet: cfg.ScoreCleanSheet,
		Win:        cfg.ScoreWin,
		Draw:       cfg.ScoreDraw,
		Lose:       cfg.ScoreLose,
		MOM:        cfg.ScoreMOM,
	}

	executives := make([]member.Executive, 0, len(cfg.Executives))
	for _, entry := range cfg.Executives {
		executives = append(executives, member.Executive{Role: entry.Role, Name: entry.Name})
	}

	sessionSvc := usecase.NewSessionService(cfg.SessionStartDate, cfg.SessionWeekday, nil)
	attendanceSvc := usecase.NewAttendanceService(client, usecase.NewSheetStore(), sheetSnapshots, rules, logger)
	memberSvc := usecase.NewMemberService(client, cacheStore, executives, logger)
	matchSvc := usecase.NewMatchService(client, logger)
	feeSvc := usecase.NewFeeService(client, ledgerSnapshots, cacheStore, logger)
	overviewSvc := usecase.NewOverviewService(memberSvc, feeSvc, matchSvc, sessionSvc, logger)
	refreshSvc := usecase.NewRefreshService(attendanceSvc, feeSvc, sessionSvc, sheetSnapshots, cacheStore, usecase.RefreshConfig{
		Sessions:   cfg.RefreshSessions,
		MaxWorkers: cfg.RefreshMaxWorkers,
	}, logger)

	handler := httpapi.NewHandler(
		attendanceSvc,
		memberSvc,
		sessionSvc,
		matchSvc,
		feeSvc,
		overviewSvc,
		refreshSvc,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return app, nil
}
