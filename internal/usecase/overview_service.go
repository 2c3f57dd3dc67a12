package usecase

import (
	"context"

	"github.com/jochuk/clubdesk/internal/domain/match"
	"github.com/jochuk/clubdesk/internal/domain/session"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

// Overview is the landing-page payload. Values come from independent
// backend calls, so any of them can be a degraded zero value.
type Overview struct {
	MemberCount   int
	FeeBalance    int64
	LatestSession session.Session
	RecentMatches []match.Score
}

// OverviewService fans out to the member, fee, and match services and
// assembles the dashboard summary. A failing branch logs a warning and
// contributes its zero value; the page never fails as a whole.
type OverviewService struct {
	members  *MemberService
	fee      *FeeService
	matches  *MatchService
	sessions *SessionService
	logger   *logging.Logger
}

func NewOverviewService(
	members *MemberService,
	fee *FeeService,
	matches *MatchService,
	sessions *SessionService,
	logger *logging.Logger,
) *OverviewService {
	if logger == nil {
		logger = logging.Default()
	}
	return &OverviewService{
		members:  members,
		fee:      fee,
		matches:  matches,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *OverviewService) Overview(ctx context.Context) (Overview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OverviewService.Overview")
	defer span.End()

	var out Overview

	days := s.sessions.List(ctx)
	if len(days) > 0 {
		out.LatestSession = days[0]
	}

	// Each branch writes only its own field, so the join needs no lock.
	var wg conc.WaitGroup
	wg.Go(func() {
		members, err := s.members.List(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "overview member count degraded", "error", err)
			return
		}
		out.MemberCount = len(members)
	})
	wg.Go(func() {
		summary, err := s.fee.Summary(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "overview fee balance degraded", "error", err)
			return
		}
		out.FeeBalance = summary.Balance
	})
	wg.Go(func() {
		if out.LatestSession.ID == 0 {
			return
		}
		records, err := s.matches.Records(ctx, out.LatestSession.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "overview recent matches degraded",
				"date_id", out.LatestSession.ID,
				"error", err,
			)
			return
		}
		out.RecentMatches = records.Matches
	})
	wg.Wait()

	return out, nil
}
