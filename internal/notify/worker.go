package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/riverqueue/river"
)

// SendNotificationWorker delivers one notification to the external
// notification collaborator over HTTP. Delivery is best-effort; River
// retries transient failures with its default backoff.
type SendNotificationWorker struct {
	river.WorkerDefaults[SendNotificationArgs]
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSendNotificationWorker creates the worker. With an empty webhookURL
// deliveries are logged and dropped (local development).
func NewSendNotificationWorker(webhookURL string, logger *slog.Logger) *SendNotificationWorker {
	return &SendNotificationWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (w *SendNotificationWorker) Work(ctx context.Context, job *river.Job[SendNotificationArgs]) error {
	args := job.Args

	if w.webhookURL == "" {
		w.logger.Info("notification (no webhook configured)",
			"user_id", args.UserID, "type", args.Type)
		return nil
	}

	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification collaborator returned status %d", resp.StatusCode)
	}
	return nil
}
