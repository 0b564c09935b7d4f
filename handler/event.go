package handler

import (
	"errors"
	"net/http"

	"broadcast-coach/model"

	"github.com/gorilla/mux"
)

// AddMessage handles POST /users/{username}/messages
func (h *CoachHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var input struct {
		Message   string `json:"message"`
		IsPrivate bool   `json:"isPrivate"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if input.Message == "" {
		SendJSONError(w, http.StatusBadRequest, errors.New("message must not be empty"), "")
		return
	}

	ok := h.tracker.AddUserMessage(username, input.Message, input.IsPrivate)
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: ok})
}

// RecordTip handles POST /users/{username}/tips
func (h *CoachHandler) RecordTip(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var input struct {
		Amount float64 `json:"amount"`
		Note   string  `json:"note"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if input.Amount <= 0 {
		SendJSONError(w, http.StatusBadRequest, errors.New("amount must be positive"), "")
		return
	}

	ok := h.tracker.RecordUserTip(username, input.Amount, input.Note)
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: ok})
}

// RecordMedia handles POST /users/{username}/media
func (h *CoachHandler) RecordMedia(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var input struct {
		Item   string  `json:"item"`
		Amount float64 `json:"amount"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if input.Amount <= 0 {
		SendJSONError(w, http.StatusBadRequest, errors.New("amount must be positive"), "")
		return
	}

	ok := h.tracker.RecordMediaPurchase(username, input.Item, input.Amount)
	SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: ok})
}

// AddEvent handles POST /events, the generic entry point the event poller
// uses for types without a dedicated route.
func (h *CoachHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string          `json:"username"`
		Type     model.EventType `json:"type"`
		Data     model.EventData `json:"data"`
	}
	if err := decodeBody(r, &input); err != nil {
		SendJSONError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if !input.Type.Valid() {
		SendJSONError(w, http.StatusBadRequest, errors.New("unknown event type"), "")
		return
	}

	if !h.tracker.AddEvent(input.Username, input.Type, input.Data) {
		SendJSONSuccess(w, http.StatusOK, StatusResponse{Success: false, Message: "Event not recorded"})
		return
	}
	SendJSONSuccess(w, http.StatusCreated, StatusResponse{Success: true})
}
