package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin surface sits behind the daemon's own access controls.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleStream upgrades to a websocket and forwards the job's progress
// updates until the job reaches a terminal status or the client leaves.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	updates, cancel, err := s.orch.Watch(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		s.logger.Warn("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages and pongs are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Replay the current state first so late subscribers see where the
	// job stands before live updates arrive.
	if report, err := s.orch.GetStatus(r.Context(), jobID); err == nil {
		snapshot := map[string]any{
			"job_id":    report.Job.ID,
			"status":    report.Job.Status.String(),
			"stage":     report.Job.CurrentStage.String(),
			"progress":  report.Job.Progress,
			"timestamp": time.Now().UTC(),
		}
		if err := writeFrame(conn, snapshot); err != nil {
			return
		}
		if report.Job.Status.IsTerminal() {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeTimeout))
				return
			}
			if err := writeFrame(conn, update); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}
