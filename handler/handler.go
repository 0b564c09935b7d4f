package handler

import (
	"net/http"
	"sync"

	"broadcast-coach/config"
	"broadcast-coach/model"
	"broadcast-coach/tracker"

	"github.com/gorilla/mux"
)

// CoachHandler exposes the user tracker to the browser UI and the event
// poller. All state lives in the tracker; the handler only holds the
// broadcaster settings snapshot that travels inside export envelopes.
type CoachHandler struct {
	tracker *tracker.Tracker
	config  config.Config

	mu       sync.Mutex
	settings model.Settings
}

// NewCoachHandler creates a handler over the given tracker, seeding the
// broadcaster settings from configuration.
func NewCoachHandler(t *tracker.Tracker, cfg config.Config) *CoachHandler {
	return &CoachHandler{
		tracker: t,
		config:  cfg,
		settings: model.Settings{
			BroadcasterName: cfg.Coach.BroadcasterName,
			PromptLanguage:  cfg.Coach.PromptLanguage,
			PromptDelay:     cfg.Coach.PromptDelay,
			AIModel:         cfg.Coach.AIModel,
		},
	}
}

// Register wires every route onto the router.
func (h *CoachHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	r.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", h.AddUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.ClearAllUsers).Methods(http.MethodDelete)
	r.HandleFunc("/users/{username}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{username}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{username}/online", h.MarkOnline).Methods(http.MethodPost)
	r.HandleFunc("/users/{username}/offline", h.MarkOffline).Methods(http.MethodPost)
	r.HandleFunc("/users/{username}/messages", h.AddMessage).Methods(http.MethodPost)
	r.HandleFunc("/users/{username}/tips", h.RecordTip).Methods(http.MethodPost)
	r.HandleFunc("/users/{username}/media", h.RecordMedia).Methods(http.MethodPost)
	r.HandleFunc("/users/{username}/spend", h.SpendInPeriod).Methods(http.MethodGet)
	r.HandleFunc("/users/{username}/recalculate", h.Recalculate).Methods(http.MethodPost)

	r.HandleFunc("/events", h.AddEvent).Methods(http.MethodPost)

	r.HandleFunc("/data/token-history", h.ImportTokenHistory).Methods(http.MethodPost)
	r.HandleFunc("/data/export", h.ExportData).Methods(http.MethodPost)
	r.HandleFunc("/data/import", h.ImportData).Methods(http.MethodPost)
	r.HandleFunc("/data/restore", h.RestoreBackup).Methods(http.MethodPost)

	r.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPut)
}

// HealthCheck handles GET /health
func (h *CoachHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	SendJSONSuccess(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// GetSettings handles GET /settings
func (h *CoachHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	settings := h.settings
	h.mu.Unlock()
	SendJSONSuccess(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /settings
func (h *CoachHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := decodeBody(r, &settings); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	h.mu.Lock()
	h.settings = settings
	h.mu.Unlock()

	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: true})
}
