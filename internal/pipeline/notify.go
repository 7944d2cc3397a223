package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"regiondiff/internal/retry"

	"golang.org/x/xerrors"
)

// Notify PATCHes payload as JSON to url, retrying gateway errors, conflicts and failed
// connections.
func Notify(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("failed to marshal payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	if client == nil {
		client = NewNotifyClient()
	}
	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return xerrors.Errorf("callback returned %d: %s", response.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}

func NewNotifyClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &retry.Transport{
			Base:       http.DefaultTransport,
			On:         retry.NewDefaultOn(),
			NewBackOff: retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 5),
		},
	}
}
