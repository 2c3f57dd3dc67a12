package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jochuk/clubdesk/internal/platform/logging"
	"github.com/jochuk/clubdesk/internal/usecase"
)

type Handler struct {
	attendanceService *usecase.AttendanceService
	memberService     *usecase.MemberService
	sessionService    *usecase.SessionService
	matchService      *usecase.MatchService
	feeService        *usecase.FeeService
	overviewService   *usecase.OverviewService
	refreshService    *usecase.RefreshService
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	attendanceService *usecase.AttendanceService,
	memberService *usecase.MemberService,
	sessionService *usecase.SessionService,
	matchService *usecase.MatchService,
	feeService *usecase.FeeService,
	overviewService *usecase.OverviewService,
	refreshService *usecase.RefreshService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		attendanceService: attendanceService,
		memberService:     memberService,
		sessionService:    sessionService,
		matchService:      matchService,
		feeService:        feeService,
		overviewService:   overviewService,
		refreshService:    refreshService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", usecase.ErrInvalidInput, name, raw)
	}
	return value, nil
}
