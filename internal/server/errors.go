package server

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/quota"
	"github.com/tatianab/clinical-sim/internal/store"
	"github.com/tatianab/clinical-sim/internal/tutor"
)

type errorBody struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

// classify maps an error to its status and response body. Messages of
// server-side failures are not exposed.
func classify(err error) (int, errorBody) {
	var (
		br badRequest
		fe *llm.FormatError
		te *llm.TransportError
	)
	switch {
	case errors.As(err, &br),
		errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, tutor.ErrMissingQuery),
		errors.Is(err, quota.ErrMissingUser):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, tutor.ErrForbiddenQuery):
		return http.StatusBadRequest, errorBody{Error: tutor.ErrForbiddenQuery.Error()}
	case errors.Is(err, quota.ErrNotAllowed):
		return http.StatusForbidden, errorBody{Error: err.Error()}
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	case errors.Is(err, engine.ErrGameOver):
		return http.StatusConflict, errorBody{Error: err.Error()}
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorBody{Error: err.Error()}
	case errors.As(err, &fe):
		return http.StatusBadGateway, errorBody{Error: "invalid model output", Raw: fe.Raw}
	case errors.As(err, &te):
		return http.StatusBadGateway, errorBody{Error: "model service unavailable"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	entry := h.log.WithError(err).WithFields(logrus.Fields{"path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, status, body)
}
