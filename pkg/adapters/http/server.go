package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/sanitize"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// DefaultChannel is used for activities that do not name a channel.
const DefaultChannel = "webchat"

// Bot is the turn boundary served over HTTP.
type Bot interface {
	OnTurn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Server adapts a Bot to HTTP and WebSocket clients.
type Server struct {
	bot      Bot
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	maxInput int
	maxBody  int64
	channel  string
	origins  []string
	timeout  time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the collectors of g under /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithMaxInputSize bounds the text of inbound activities in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// WithMaxBodySize bounds the encoded size of one inbound activity in bytes.
// The default leaves room for a maximal text fully escaped plus an event
// payload.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// WithDefaultChannel names the channel of activities that omit one.
func WithDefaultChannel(channel string) Option {
	return func(s *Server) {
		s.channel = channel
	}
}

// WithOriginPatterns sets the origins accepted by the WebSocket endpoint.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.origins = patterns
	}
}

// WithTurnTimeout bounds the duration of a single turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer creates a Server for bot.
func NewServer(bot Bot, opts ...Option) *Server {
	s := &Server{
		bot:      bot,
		logger:   logging.NewNop(),
		maxInput: sanitize.DefaultMaxInputSize,
		channel:  DefaultChannel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxBody <= 0 {
		s.maxBody = int64(s.maxInput)*6 + 64<<10
	}
	return s
}

// NewHandler creates the HTTP handler for bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	return NewServer(bot, opts...).Routes()
}

// Routes mounts the endpoints on a chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.PostMessage)
		r.Get("/stream", s.Stream)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /api/messages: one activity in, one turn result out.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var act domain.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			s.logger.Warn("PostMessage: request body too large", "limit", tooLarge.Limit)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "err", err)
		return
	}

	res, err := s.turn(r.Context(), act)
	if err != nil {
		status, code := StatusFor(err)
		writeError(w, status, code, err.Error())
		if status >= http.StatusInternalServerError {
			s.logger.Error("Turn failed", "conversation_id", act.ConversationID, "err", err)
		} else {
			s.logger.Debug("Turn rejected", "conversation_id", act.ConversationID, "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// turn normalizes and runs one activity.
func (s *Server) turn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error) {
	if act.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", errBadRequest)
	}
	if act.ChannelID == "" {
		act.ChannelID = s.channel
	}
	if act.ID == "" {
		act.ID = uuid.NewString()
	}
	clean, err := sanitize.Input(act.Text, s.maxInput)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	act.Text = clean

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.bot.OnTurn(ctx, act)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "botbuilder-http",
		"version": botbuilder.Version,
	})
}

var errBadRequest = errors.New("bad request")

// StatusFor maps a turn error to an HTTP status and a stable error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrStorageConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrRecognitionFailure):
		return http.StatusUnprocessableEntity, "unrecognized"
	case errors.Is(err, domain.ErrUnknownDialog):
		return http.StatusUnprocessableEntity, "unknown_dialog"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		// nginx's "client closed request".
		return 499, "canceled"
	case errors.Is(err, domain.ErrExpression):
		return http.StatusInternalServerError, "expression"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
