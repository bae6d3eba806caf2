package relay

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/argos97/signal-gateway/internal/metrics"
	"github.com/argos97/signal-gateway/internal/signal"
	"github.com/argos97/signal-gateway/internal/store"
)

// Server exposes the ingestion endpoint. The synchronous phase covers auth,
// identity assignment, and the "received" audit write; everything else runs
// on the Processor after the 202 is on the wire.
type Server struct {
	secret  string
	records store.RecordStore
	proc    *Processor
	log     zerolog.Logger
}

// NewServer wires the handler to its collaborators.
func NewServer(secret string, records store.RecordStore, proc *Processor, log zerolog.Logger) *Server {
	return &Server{secret: secret, records: records, proc: proc, log: log}
}

// Router builds the chi router for the relay.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("signal-gateway online — GET /healthz to probe, POST /tv-webhook to deliver signals"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/tv-webhook", s.handleWebhook)
	return r
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload signal.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "msg": "invalid json"})
		return
	}

	if !s.authorized(r, &payload) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("unauthorized request")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "msg": "unauthorized"})
		return
	}

	if payload.EventID == "" {
		payload.EventID = signal.EventID(&payload)
	}

	// Best-effort: a failed audit write never blocks the acknowledgment.
	entry := signal.LogEntry{
		EventID:  payload.EventID,
		Payload:  &payload,
		Source:   signal.SourceTradingView,
		Status:   signal.StatusReceived,
		Attempts: 0,
	}
	if err := s.records.CreateRecord(r.Context(), CollectionWebhookLog, entry); err != nil {
		s.log.Warn().Err(err).Str("event_id", payload.EventID).Msg("received audit write failed")
	}
	metrics.WebhookEvents.WithLabelValues(string(signal.StatusReceived)).Inc()

	s.proc.Enqueue(payload.EventID, &payload)

	// The 202 acknowledges receipt only; callers must not infer that
	// downstream processing succeeded.
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "event_id": payload.EventID})
}

// authorized accepts the shared secret from the x-webhook-key or x-secret
// header, with the body field as a lower-trust fallback. A request carrying
// no key material at all is rejected outright.
func (s *Server) authorized(r *http.Request, payload *signal.Payload) bool {
	key := r.Header.Get("x-webhook-key")
	if key == "" {
		key = r.Header.Get("x-secret")
	}
	if key == "" && payload.Secret == "" {
		return false
	}
	if equal(key, s.secret) {
		return true
	}
	return payload.Secret != "" && equal(payload.Secret, s.secret)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
