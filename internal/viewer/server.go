// Package viewer provides the HTTP surface of the chart viewer.
package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/internal/engine"
	"github.com/grovetools/chartview/internal/render"
	"github.com/grovetools/chartview/pkg/chart"
	"github.com/grovetools/chartview/pkg/feed"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ExportFilename is the download name of the CSV export.
const ExportFilename = "exported-data.csv"

// Server serves the chart page, the JSON API, and the update stream.
type Server struct {
	logger   *logrus.Entry
	server   *http.Server
	engine   *engine.Engine
	renderer *render.Renderer
}

// New creates a new Server instance.
func New(eng *engine.Engine, renderer *render.Renderer, logger *logrus.Entry) *Server {
	return &Server{
		logger:   logger,
		engine:   eng,
		renderer: renderer,
	}
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/view", s.handleGetView)
	mux.HandleFunc("POST /api/variable", s.handleSetVariable)
	mux.HandleFunc("POST /api/kind", s.handleSetKind)
	mux.HandleFunc("POST /api/zoom", s.handleSetZoom)
	mux.HandleFunc("POST /api/pan", s.handlePan)
	mux.HandleFunc("POST /api/pan/start", s.handlePanStart)
	mux.HandleFunc("POST /api/pan/stop", s.handlePanStop)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/stream", s.handleStream)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe serves on addr until the server stops or fails.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", listener.Addr().String()).Info("Viewer listening")
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down viewer...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// viewResponse is the body of GET /api/view.
type viewResponse struct {
	Connected bool       `json:"connected"`
	Status    feed.State `json:"status"`
	Variables []string   `json:"variables"`
	View      chart.View `json:"view"`
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	store := s.engine.Store()
	variables := store.Variables()
	if variables == nil {
		variables = []string{}
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Connected: s.engine.Feed().IsOpen(),
		Status:    s.engine.Feed().Status(),
		Variables: variables,
		View:      store.CurrentView(),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, s.engine.Store().CurrentView()); err != nil {
		s.logger.WithError(err).Error("Failed to render page")
	}
}

func (s *Server) handleSetVariable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SetVariable(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	s.logger.WithField("variable", req.Name).Debug("Variable selected")
	writeJSON(w, http.StatusOK, s.engine.Store().CurrentView().State)
}

func (s *Server) handleSetKind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SetChartKind(r.Context(), chart.Kind(req.Kind)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Store().CurrentView().State)
}

func (s *Server) handleSetZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Factor *float64 `json:"factor"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Factor == nil {
		writeError(w, errors.InvalidInput("factor", nil))
		return
	}
	st, err := s.engine.SetZoom(r.Context(), *req.Factor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta *float64 `json:"delta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Delta == nil {
		writeError(w, errors.InvalidInput("delta", nil))
		return
	}
	st, err := s.engine.PanBy(r.Context(), *req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePanStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.StartPan(r.Context(), engine.Direction(req.Direction)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"panning": true})
}

func (s *Server) handlePanStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StopPan(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"panning": false})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	w.Write([]byte(s.engine.Store().ExportRows()))
}

// streamUpdate is one SSE event.
type streamUpdate struct {
	UpdateType string     `json:"update_type"`
	View       chart.View `json:"view"`
}

// handleStream provides Server-Sent Events (SSE) for view changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	store := s.engine.Store()
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	send := func(u streamUpdate) {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return
		}
		// SSE format: "data: {json}\n\n"
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(streamUpdate{UpdateType: "initial", View: store.CurrentView()})

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			send(streamUpdate{UpdateType: string(u.Type), View: u.View})
		}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders an error as a GroveError body with a matching status.
func writeError(w http.ResponseWriter, err error) {
	var body *errors.GroveError
	if ge, ok := err.(*errors.GroveError); ok {
		body = ge
	} else {
		body = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	writeJSON(w, statusFor(errors.GetCode(body)), body)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidVariable:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
