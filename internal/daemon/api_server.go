package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"svoextract/internal/api"
	"svoextract/internal/config"
	"svoextract/internal/logging"
	"svoextract/internal/queue"
	"svoextract/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	router *mux.Router

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	router := mux.NewRouter()
	router.Use(srv.requestIDMiddleware, srv.metricsMiddleware)
	if d.metrics != nil {
		router.Handle("/metrics", d.metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(authMiddleware(cfg.Paths.APIToken))
	apiRouter.HandleFunc("/status", srv.handleStatus).Methods(http.MethodGet)

	apiRouter.HandleFunc("/jobs", srv.handleListJobs).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs", srv.handleSubmitJob).Methods(http.MethodPost)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}", srv.handleGetJob).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}", srv.handleDeleteJob).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}/progress", srv.handleJobProgress).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}/artifacts", srv.handleJobArtifacts).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}/bundle", srv.handleJobBundle).Methods(http.MethodGet)
	apiRouter.HandleFunc("/jobs/{id:[0-9]+}/import", srv.handleImportJob).Methods(http.MethodPost)

	apiRouter.HandleFunc("/recordings", srv.handleListRecordings).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recordings", srv.handleAddRecording).Methods(http.MethodPost)
	apiRouter.HandleFunc("/recordings/{id:[0-9]+}", srv.handleGetRecording).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recordings/{id:[0-9]+}/info", srv.handlePreviewInfo).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recordings/{id:[0-9]+}/frame", srv.handlePreviewFrame).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recordings/{id:[0-9]+}/imu", srv.handlePreviewInertial).Methods(http.MethodGet)
	apiRouter.HandleFunc("/recordings/{id:[0-9]+}/thumbnail", srv.handlePreviewThumbnail).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	srv.router = router
	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) listen() error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	return nil
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// serve blocks until ctx is cancelled or the server fails.
func (s *apiServer) serve(ctx context.Context) error {
	if s.listener == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()
	s.logger.Info("api server listening", logging.String("address", s.address()))

	select {
	case <-ctx.Done():
		s.close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Error("api server error",
			logging.Error(err),
			logging.Event("api_server_failed"),
		)
		return fmt.Errorf("api serve: %w", err)
	}
}

func (s *apiServer) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
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

func (s *apiServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = r.Method + " " + tmpl
			}
		}
		s.daemon.metrics.APIRequest(route, rec.status)
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps classified errors onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, queue.ErrJobBusy):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnavailable):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("api request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.Event("api_request_failed"),
		)
	}
	resp := api.ErrorResponse{Error: err.Error()}
	if status != http.StatusInternalServerError {
		resp.Kind = string(services.KindOf(err))
	}
	s.writeJSON(w, status, resp)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
