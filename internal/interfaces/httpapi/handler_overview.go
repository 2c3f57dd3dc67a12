package httpapi

import (
	"net/http"
)

type overviewDTO struct {
	MemberCount   int             `json:"memberCount"`
	FeeBalance    int64           `json:"feeBalance"`
	LatestSession *sessionDTO     `json:"latestSession,omitempty"`
	RecentMatches []matchScoreDTO `json:"recentMatches"`
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOverview")
	defer span.End()

	overview, err := h.overviewService.Overview(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get overview failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := overviewDTO{
		MemberCount:   overview.MemberCount,
		FeeBalance:    overview.FeeBalance,
		RecentMatches: make([]matchScoreDTO, 0, len(overview.RecentMatches)),
	}
	if overview.LatestSession.ID != 0 {
		dto := sessionToDTO(overview.LatestSession)
		out.LatestSession = &dto
	}
	for _, score := range overview.RecentMatches {
		out.RecentMatches = append(out.RecentMatches, matchScoreToDTO(score))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}
