package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/analysis"
	"github.com/threadscope/threadscope/internal/store"
	"github.com/threadscope/threadscope/pkg/model"
)

const wsWriteTimeout = 5 * time.Second

// ProgressServer streams live analysis progress over WebSocket. It runs on
// its own net/http listener because the fiber app sits on fasthttp, which
// cannot hand its connection to the upgrader.
type ProgressServer struct {
	logger   *zap.Logger
	engine   *analysis.Engine
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewProgressServer builds the WebSocket server on the given address.
func NewProgressServer(addr string, logger *zap.Logger, engine *analysis.Engine) *ProgressServer {
	s := &ProgressServer{
		logger: logger,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/analyses/", s.handleProgress)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *ProgressServer) ListenAndServe() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener gracefully.
func (s *ProgressServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleProgress serves /ws/analyses/{id}/progress. It replays the run's
// current state on connect, then streams hub updates until the run reaches a
// terminal state or the client disconnects.
func (s *ProgressServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if _, err := s.engine.GetRun(r.Context(), runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, fmt.Sprintf("run %s not found", runID), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws.upgrade_failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := s.engine.Hub().Subscribe(runID)
	defer cancel()

	// Discard client frames but notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	// Re-read after subscribing; a run that finished in the window between
	// the lookup and the subscription would never publish again.
	run, err := s.engine.GetRun(context.Background(), runID)
	if err != nil {
		return
	}

	// Initial state so late subscribers see where the run stands.
	initial, _ := progressFrame(run)
	if err := s.write(conn, initial); err != nil {
		return
	}
	if run.Terminal() {
		return
	}

	for p := range updates {
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		if err := s.write(conn, data); err != nil {
			return
		}
		if p.Status == model.RunCompleted || p.Status == model.RunFailed {
			return
		}
	}

	// The hub closes the channel when the run finishes. If a full buffer
	// dropped the terminal update, replay it from the store.
	final, err := s.engine.GetRun(context.Background(), runID)
	if err != nil || !final.Terminal() {
		return
	}
	if data, err := progressFrame(final); err == nil {
		s.write(conn, data)
	}
}

// progressFrame renders a run's current state as a progress message.
func progressFrame(run *model.AnalysisRun) ([]byte, error) {
	percent := 0.0
	if run.Total > 0 {
		percent = float64(run.Done) / float64(run.Total) * 100
	}
	return json.Marshal(model.Progress{
		RunID:   run.ID,
		Done:    run.Done,
		Total:   run.Total,
		Percent: percent,
		Status:  run.Status,
	})
}

func (s *ProgressServer) write(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// runIDFromPath extracts the run ID from /ws/analyses/{id}/progress.
func runIDFromPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/ws/analyses/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/progress")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
