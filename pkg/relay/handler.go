package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gabrielmiguelok/fundingintake/pkg/logging"
	"github.com/gabrielmiguelok/fundingintake/pkg/metrics"
	"github.com/gabrielmiguelok/fundingintake/pkg/uploads"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// Handler is the relay HTTP endpoint.
type Handler struct {
	forwarder *Forwarder
	logger    logging.Logger
	uploads   *uploads.UploadConfig
	now       func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the fallback logger. A request-scoped logger in the
// request context takes precedence.
func WithLogger(l logging.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithUploadConfig checks every attachment against cfg.
func WithUploadConfig(cfg *uploads.UploadConfig) HandlerOption {
	return func(h *Handler) {
		h.uploads = cfg
	}
}

// WithClock sets the clock used for submitted_at.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates the relay endpoint around f.
func NewHandler(f *Forwarder, opts ...HandlerOption) *Handler {
	h := &Handler{
		forwarder: f,
		logger:    logging.NopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.forwarder.Config()
	observer := h.forwarder.observer
	logger := h.loggerFor(r)

	w.Header().Set("Access-Control-Allow-Origin", cfg.corsOrigin())
	w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		observer.RecordRelay(metrics.OutcomeMethod)
		w.Header().Set("Allow", "POST, OPTIONS")
		writeResult(w, http.StatusMethodNotAllowed, failure(MessageMethodNotAllowed))
		return
	}

	if cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
	}
	sub, err := DecodeRequest(r)
	if err != nil {
		logger.Warn("rejected submission body", logging.Err(err))
		observer.RecordRelay(metrics.OutcomeBadRequest)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeResult(w, status, failure(MessageBadRequest))
		return
	}

	if h.uploads != nil {
		for i, a := range sub.Attachments {
			entry, err := h.uploads.Check(a.FileName, 0, a.ContentType, a.Data)
			if err != nil {
				logger.Warn("rejected attachment", logging.String("field", a.Field), logging.Err(err))
				observer.RecordRelay(metrics.OutcomeBadRequest)
				writeResult(w, http.StatusBadRequest, failure(MessageBadRequest))
				return
			}
			sub.Attachments[i].FileName = entry.FileName
			sub.Attachments[i].ContentType = entry.ContentType
		}
	}

	sub.Stamp(h.now())

	if err := cfg.Validate(); err != nil {
		logger.Error("relay is misconfigured", logging.Err(err))
		observer.RecordRelay(metrics.OutcomeMisconfigured)
		writeResult(w, http.StatusInternalServerError, failure(MessageInternalError))
		return
	}

	logger.Info("forwarding submission",
		logging.Int("fields", len(sub.Fields)),
		logging.Int("attachments", len(sub.Attachments)),
	)

	status, body, err := h.forwarder.Forward(r.Context(), sub)
	if err != nil {
		logger.Error("webhook call failed", logging.Err(err))
		observer.RecordRelay(metrics.OutcomeTransportError)
		writeResult(w, http.StatusInternalServerError, failure(MessageInternalError))
		return
	}

	result, code := Normalize(status, body)
	if !result.OK {
		logger.Error("webhook rejected submission",
			logging.Int("upstream_status", status),
			logging.String("upstream_body", truncate(string(body), 512)),
		)
		observer.RecordRelay(metrics.OutcomeUpstreamError)
	} else {
		logger.Info("submission accepted",
			logging.Int("upstream_status", status),
			logging.String("correlation_id", result.Reference()),
		)
		observer.RecordRelay(metrics.OutcomeOK)
	}
	writeResult(w, code, result)
}

func (h *Handler) loggerFor(r *http.Request) logging.Logger {
	if l := logging.LoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger.WithContext(r.Context())
}

func writeResult(w http.ResponseWriter, status int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
