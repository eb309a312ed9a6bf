package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"ripple-social/internal/config"
	"ripple-social/internal/engine"
	"ripple-social/internal/media"
	"ripple-social/internal/middleware"
	"ripple-social/internal/presence"
	"ripple-social/internal/realtime"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/mux"
)

// Server holds all server dependencies: the actor system, the realtime hub,
// the presence registry and the collaborator interfaces.
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *realtime.Hub
	Presence       *presence.Registry
	Media          media.Store
	Metrics        *utils.MetricsCollector
	Log            *slog.Logger
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components.
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *realtime.Hub,
	registry *presence.Registry,
	mediaStore media.Store,
	metrics *utils.MetricsCollector,
	log *slog.Logger,
	requestTimeout time.Duration,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Presence:       registry,
		Media:          mediaStore,
		Metrics:        metrics,
		Log:            log,
		RequestTimeout: requestTimeout,
	}
}

// Routes builds the REST surface: the four conversation endpoints behind
// JWT auth, plus the websocket upgrade, health and metrics.
func (s *Server) Routes(cfg *config.Config) http.Handler {
	router := mux.NewRouter()

	var corsConfig *middleware.CORSConfig
	if cfg != nil {
		corsConfig = middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	}
	router.Use(middleware.CORSMiddleware(corsConfig))

	router.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	if s.Metrics != nil {
		router.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/ws", s.HandleWebSocket())

	api := router.NewRoute().Subrouter()
	api.Use(middleware.AuthMiddleware)
	api.HandleFunc("/conversations", s.HandleGetConversations()).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{counterpartId}/messages", s.HandleSendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{counterpartId}/messages", s.HandleGetMessages()).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{counterpartId}/read", s.HandleMarkRead()).Methods(http.MethodPut)

	return router
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondAppError(w http.ResponseWriter, appErr *utils.AppError) {
	if s.Metrics != nil {
		s.Metrics.ErrorsTotal.Inc()
	}
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", "code", appErr.Code, "error", appErr.Error())
	}
	s.respondJSON(w, status, errorResponse{Code: appErr.Code, Message: appErr.Message})
}

// request sends msg to the actor and waits for the reply, converting a
// timed-out or failed future into an AppError.
func (s *Server) request(pid *actor.PID, msg any) (any, *utils.AppError) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrActorTimeout, "engine did not respond", err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

func (s *Server) countRequest(operation string) {
	if s.Metrics != nil {
		s.Metrics.RequestsTotal.WithLabelValues(operation).Inc()
	}
}
