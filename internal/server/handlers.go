package server

import (
	"net/http"
	"strings"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/tutor"
)

type askRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type procedureRequest struct {
	Query     string `json:"query"`
	Category  string `json:"category"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type usageRequest struct {
	UserID string `json:"userId"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) simulation(w http.ResponseWriter, r *http.Request) {
	var req engine.TurnRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.sim.HandleTurn(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Payload())
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := tutor.CheckQuestion(req.Query); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.admit(r, req.UserID, req.UserEmail); err != nil {
		h.fail(w, r, err)
		return
	}
	answer, err := h.tutor.Ask(r.Context(), req.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *handler) procedure(w http.ResponseWriter, r *http.Request) {
	var req procedureRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.fail(w, r, tutor.ErrMissingQuery)
		return
	}
	if err := h.admit(r, req.UserID, req.UserEmail); err != nil {
		h.fail(w, r, err)
		return
	}
	answer, err := h.tutor.Procedure(r.Context(), req.Query, req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *handler) usage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.guard.Usage(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// admit checks the allow-list and counts the request against the quota.
func (h *handler) admit(r *http.Request, userID, email string) error {
	if err := h.guard.CheckAllowed(r.Context(), email); err != nil {
		return err
	}
	_, err := h.guard.Consume(r.Context(), userID)
	return err
}
