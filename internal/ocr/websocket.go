package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ProgressCallback is called when progress updates are received
type ProgressCallback func(current, total int)

// JobMonitor monitors a single OCR job via WebSocket
type JobMonitor struct {
	wsURL    string
	logger   *slog.Logger
	clientID string
}

// NewJobMonitor creates a new job monitor with a unique client ID
func NewJobMonitor(wsURL string, logger *slog.Logger) *JobMonitor {
	return &JobMonitor{
		wsURL:    wsURL,
		logger:   logger,
		clientID: uuid.New().String(),
	}
}

// ClientID returns the client ID for use in job submission
func (m *JobMonitor) ClientID() string {
	return m.clientID
}

// WaitForCompletion waits for a specific job to complete
// Returns nil on success, error on failure or context cancellation
func (m *JobMonitor) WaitForCompletion(ctx context.Context, jobID string, progressCb ProgressCallback) error {
	url := fmt.Sprintf("%s?clientId=%s", m.wsURL, m.clientID)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Set up read deadline management
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	// Start ping ticker
	pingTicker := time.NewTicker(10 * time.Second)
	defer pingTicker.Stop()

	// Channel for read results
	msgCh := make(chan WSMessage)
	errCh := make(chan error)

	// Read goroutine
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}

			var msg WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				m.logger.Debug("failed to unmarshal ws message", "error", err)
				continue
			}
			msgCh <- msg
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Send close frame before returning
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}

		case err := <-errCh:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return fmt.Errorf("websocket closed unexpectedly")
			}
			return fmt.Errorf("websocket read: %w", err)

		case msg := <-msgCh:
			// Reset read deadline on any message
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))

			switch msg.Type {
			case "completed":
				var data CompletedData
				if err := json.Unmarshal(msg.Data, &data); err != nil {
					continue
				}

				if data.JobID == jobID {
					m.logger.Debug("ocr job complete", "job_id", jobID)
					return nil
				}

			case "progress":
				var data ProgressData
				if err := json.Unmarshal(msg.Data, &data); err != nil {
					continue
				}

				if data.JobID == jobID && progressCb != nil {
					progressCb(data.Value, data.Max)
				}

			case "job_error":
				var data JobErrorData
				if err := json.Unmarshal(msg.Data, &data); err != nil {
					return fmt.Errorf("ocr job error: %s", string(msg.Data))
				}
				if data.JobID == jobID {
					return fmt.Errorf("ocr job error: %s", data.Message)
				}
			}
		}
	}
}
