// Package server exposes the simulation, tutor and usage operations over
// HTTP with JSON bodies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/quota"
	"github.com/tatianab/clinical-sim/internal/tutor"
)

const maxBodyBytes = 1 << 20

// Simulator runs simulation turns.
type Simulator interface {
	HandleTurn(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error)
}

// Tutor answers definition and procedure requests.
type Tutor interface {
	Ask(ctx context.Context, query string) (tutor.Answer, error)
	Procedure(ctx context.Context, query, category string) (tutor.ProcedureAnswer, error)
}

// Guard applies the allow-list and the request quota.
type Guard interface {
	CheckAllowed(ctx context.Context, email string) error
	Consume(ctx context.Context, userID string) (quota.Usage, error)
	Usage(ctx context.Context, userID string) (quota.Usage, error)
}

type Config struct {
	Simulator Simulator
	Tutor     Tutor
	Guard     Guard
	Logger    logrus.FieldLogger
	// RateLimit is the sustained requests per second allowed per client;
	// zero disables limiting.
	RateLimit float64
	RateBurst int
}

type handler struct {
	sim   Simulator
	tutor Tutor
	guard Guard
	log   logrus.FieldLogger
}

// New returns the HTTP handler of the service.
func New(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &handler{sim: cfg.Simulator, tutor: cfg.Tutor, guard: cfg.Guard, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", only(http.MethodGet, h.health))
	mux.HandleFunc("/api/simulation", only(http.MethodPost, h.simulation))
	mux.HandleFunc("/api/ask", only(http.MethodPost, h.ask))
	mux.HandleFunc("/api/procedure", only(http.MethodPost, h.procedure))
	mux.HandleFunc("/api/usage", only(http.MethodPost, h.usage))

	var next http.Handler = mux
	if cfg.RateLimit > 0 {
		next = newLimiter(cfg.RateLimit, cfg.RateBurst, time.Now).middleware(next)
	}
	return h.logRequests(cors(next))
}

// only answers preflight requests and rejects methods other than method.
func only(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		case method:
			fn(w, r)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		}
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"client":   clientKey(r),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
