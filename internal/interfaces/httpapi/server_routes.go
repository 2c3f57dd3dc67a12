package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerDashboardRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/overview", handler.GetOverview)

	mux.HandleFunc("GET /v1/sessions", handler.ListSessions)
	mux.HandleFunc("GET /v1/sessions/{dateID}/sheet", handler.GetSheet)
	mux.HandleFunc("POST /v1/sessions/{dateID}/sheet/attendance/{playerID}/toggle", handler.ToggleAttendance)
	mux.HandleFunc("POST /v1/sessions/{dateID}/sheet/attendance/toggle-all", handler.ToggleAllAttendance)
	mux.HandleFunc("PATCH /v1/sessions/{dateID}/sheet/players/{playerID}", handler.UpdateSheetPlayer)
	mux.HandleFunc("POST /v1/sessions/{dateID}/sheet/save", handler.SaveSheet)

	mux.HandleFunc("GET /v1/sessions/{dateID}/records", handler.GetSessionRecords)
	mux.HandleFunc("POST /v1/sessions/{dateID}/teams", handler.SetupSessionTeams)
	mux.HandleFunc("POST /v1/sessions/{dateID}/matches", handler.CreateMatch)
	mux.HandleFunc("PUT /v1/matches/{matchID}", handler.UpdateMatch)
	mux.HandleFunc("DELETE /v1/matches/{matchID}", handler.DeleteMatch)

	mux.HandleFunc("GET /v1/members", handler.ListMembers)
	mux.HandleFunc("GET /v1/executives", handler.ListExecutives)

	mux.HandleFunc("GET /v1/fees", handler.ListFees)
	mux.HandleFunc("GET /v1/fees/summary", handler.GetFeeSummary)
	mux.HandleFunc("GET /v1/expenses", handler.ListExpenses)
	mux.HandleFunc("POST /v1/expenses", handler.CreateExpense)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshJob)))
}
