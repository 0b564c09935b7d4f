package handler

import (
	"errors"
	"io"
	"net/http"

	"broadcast-coach/tracker"

	"github.com/rs/zerolog/log"
)

// ImportTokenHistory handles POST /data/token-history. The body is the raw
// CSV text of a token history page.
func (h *CoachHandler) ImportTokenHistory(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	limit := int64(h.config.Tracker.MaxImportBytes)
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Failed to read request body")
		return
	}
	if int64(len(body)) > limit {
		SendJSONError(w, http.StatusRequestEntityTooLarge, errors.New("payload too large"), "")
		return
	}

	result := h.tracker.ImportTokenHistory(string(body))
	if !result.Success {
		SendJSONSuccess(w, http.StatusUnprocessableEntity, result)
		return
	}

	log.Info().
		Int("users", result.Stats.Users).
		Float64("tokens", result.Stats.Tokens).
		Msg("Token history imported")
	SendJSONSuccess(w, http.StatusOK, result)
}

// ExportData handles POST /data/export. The password is optional; when set
// the payload comes back encrypted.
func (h *CoachHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	// An empty body means an unencrypted export.
	if err := decodeBody(r, &input); err != nil && err != io.EOF {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	h.mu.Lock()
	settings := h.settings
	h.mu.Unlock()

	payload, err := h.tracker.ExportData(settings, input.Password)
	if err != nil {
		log.Error().Err(err).Msg("Export failed")
		SendJSONError(w, http.StatusInternalServerError, err, "Export failed")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      payload,
		"encrypted": tracker.IsSealed(payload),
	})
}

// ImportData handles POST /data/import
func (h *CoachHandler) ImportData(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Data     string `json:"data"`
		Merge    bool   `json:"merge"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if input.Data == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("data must not be empty"), "")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	result := h.tracker.ImportData(input.Data, &h.settings, input.Merge, input.Password)
	if !result.Success {
		SendJSONSuccess(w, http.StatusUnprocessableEntity, result)
		return
	}

	log.Info().Bool("merge", input.Merge).Msg("Data imported")
	SendJSONSuccess(w, http.StatusOK, result)
}

// RestoreBackup handles POST /data/restore
func (h *CoachHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := h.tracker.RestoreFromBackup(&h.settings)
	if !result.Success {
		SendJSONSuccess(w, http.StatusUnprocessableEntity, result)
		return
	}

	log.Info().Msg("Restored from pre-import backup")
	SendJSONSuccess(w, http.StatusOK, result)
}
