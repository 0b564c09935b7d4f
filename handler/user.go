package handler

import (
	"errors"
	"net/http"
	"strconv"

	"broadcast-coach/model"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

var errUnknownUser = errors.New("user not found")

// ListUsers handles GET /users
func (h *CoachHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	SendJSONSuccess(w, http.StatusOK, h.tracker.GetAllUsers())
}

// GetUser handles GET /users/{username}
func (h *CoachHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	user := h.tracker.GetUser(username)
	if user == nil {
		SendJSONError(w, http.StatusNotFound, errUnknownUser, "")
		return
	}
	SendJSONSuccess(w, http.StatusOK, user)
}

// AddUser handles POST /users
func (h *CoachHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if !h.tracker.AddUser(input.Username) {
		SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: false, Message: "User not created"})
		return
	}

	log.Info().Str("username", input.Username).Msg("User added")
	SendJSONSuccess(w, http.StatusCreated, StatusResponse{Success: true})
}

// UpdateUser handles PUT /users/{username}
func (h *CoachHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var updates model.UserUpdate
	if err := decodeBody(r, &updates); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	if !h.tracker.UpdateUser(username, updates) {
		SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: false, Message: "Invalid username"})
		return
	}
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: true})
}

// ClearAllUsers handles DELETE /users
func (h *CoachHandler) ClearAllUsers(w http.ResponseWriter, r *http.Request) {
	h.tracker.ClearAllUsers()
	log.Info().Msg("User directory cleared")
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: true})
}

// MarkOnline handles POST /users/{username}/online
func (h *CoachHandler) MarkOnline(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	ok := h.tracker.RecordUserEnter(username)
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: ok})
}

// MarkOffline handles POST /users/{username}/offline
func (h *CoachHandler) MarkOffline(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	ok := h.tracker.RecordUserLeave(username)
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: ok})
}

// SpendInPeriod handles GET /users/{username}/spend?days=7&category=tips.
// Without a days parameter the lifetime total is returned.
func (h *CoachHandler) SpendInPeriod(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	if h.tracker.GetUser(username) == nil {
		SendJSONError(w, http.StatusNotFound, errUnknownUser, "")
		return
	}

	daysParam := r.URL.Query().Get("days")
	category := r.URL.Query().Get("category")
	if category == "" {
		category = model.CategoryTips
	}

	if daysParam == "" {
		SendJSONSuccess(w, http.StatusOK, map[string]interface{}{
			"username": username,
			"total":    h.tracker.TotalSpent(username),
		})
		return
	}

	days, err := strconv.Atoi(daysParam)
	if err != nil || days <= 0 {
		SendJSONError(w, http.StatusBadRequest, errors.New("days must be a positive integer"), "")
		return
	}

	SendJSONSuccess(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"days":     days,
		"category": category,
		"amount":   h.tracker.SpentInPeriod(username, days, category),
	})
}

// Recalculate handles POST /users/{username}/recalculate, rebuilding the
// token statistics from the event history.
func (h *CoachHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	if !h.tracker.RecalculateTotals(username) {
		SendJSONError(w, http.StatusNotFound, errUnknownUser, "")
		return
	}
	SendJSONSuccess(w, http.StatusOK, h.tracker.GetUser(username))
}
