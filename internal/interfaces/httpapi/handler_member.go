package httpapi

import (
	"net/http"

	"github.com/jochuk/clubdesk/internal/domain/member"
)

type memberDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joinedAt,omitempty"`
}

type executiveDTO struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMembers")
	defer span.End()

	members, err := h.memberService.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list members failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]memberDTO, 0, len(members))
	for _, m := range members {
		items = append(items, memberToDTO(m))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListExecutives(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListExecutives")
	defer span.End()

	executives := h.memberService.Executives()
	items := make([]executiveDTO, 0, len(executives))
	for _, e := range executives {
		items = append(items, executiveDTO{Role: e.Role, Name: e.Name})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func memberToDTO(m member.Member) memberDTO {
	dto := memberDTO{
		ID:   m.ID,
		Name: m.Name,
	}
	if !m.CreatedAt.IsZero() {
		dto.JoinedAt = m.CreatedAt.Format("2006-01-02")
	}
	return dto
}
