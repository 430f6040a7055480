// Package httpapi implements the HTTP+JSON transport for the KS and AIS
// RPC surfaces (spec §6.1, §6.2), grounded on server/server.go's
// gorilla/mux router wiring and access-log middleware idiom.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// accessLog wraps handler with an httpsnoop-captured access log entry per
// request, the same instrumentation shape server/server.go wires around
// every route (there via Prometheus; here via structured logging, since
// metrics exposition is out of scope). Each entry is decorated with a
// request id and the caller's remote address so a single request can be
// traced across log lines.
func accessLog(logger *slog.Logger, handlerName string, handler http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With("request_id", uuid.NewString(), "remote_addr", r.RemoteAddr)
		m := httpsnoop.CaptureMetrics(handler, w, r)
		reqLogger.Info("http request",
			"handler", handlerName,
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
			"bytes", m.Written,
		)
	}
}

// NewKSRouter builds the KS HTTP surface (spec §6.1).
func NewKSRouter(h *KSHandler, logger *slog.Logger) http.Handler {
	r := mux.NewRouter().SkipClean(true)

	handle := func(method, path, name string, f http.HandlerFunc) {
		r.Handle(path, accessLog(logger, name, f)).Methods(method)
	}

	handle(http.MethodPost, "/generate_key", "generate_key", h.GenerateKey)
	handle(http.MethodGet, "/get_secret_key/{key_id}", "get_secret_key", h.GetSecretKey)
	handle(http.MethodGet, "/get_public_key/{key_id}", "get_public_key", h.GetPublicKey)
	handle(http.MethodGet, "/health", "health", h.Health)

	return r
}

// NewAISRouter builds the AIS HTTP surface (spec §6.2): a single binary
// endpoint. When allowedOrigins is non-empty, /allocate is wrapped in CORS
// the same way server.go's handleWithCORS conditionally wraps routes.
func NewAISRouter(h *AISHandler, logger *slog.Logger, allowedOrigins ...string) http.Handler {
	r := mux.NewRouter().SkipClean(true)

	var allocate http.Handler = accessLog(logger, "allocate", h.Allocate)
	if len(allowedOrigins) > 0 {
		cors := handlers.CORS(handlers.AllowedOrigins(allowedOrigins))
		allocate = cors(allocate)
	}
	r.Handle("/allocate", allocate).Methods(http.MethodPost)
	return r
}

func pathKeyID(r *http.Request) (uint32, error) {
	v := mux.Vars(r)["key_id"]
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
