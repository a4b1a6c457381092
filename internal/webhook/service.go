package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	HeaderSignature = "X-Chamada-Signature"
	HeaderTimestamp = "X-Chamada-Timestamp"
	HeaderEvent     = "X-Chamada-Event"
	HeaderDelivery  = "X-Chamada-Delivery"
)

// Service performs single signed deliveries. Retries live in Worker.
type Service struct {
	endpoint Endpoint
	client   *http.Client
	now      func() time.Time
}

func NewService(endpoint Endpoint) *Service {
	return &Service{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

func (s *Service) Send(ctx context.Context, job Job) error {
	ts := s.now().Unix()
	signature := Sign(s.endpoint.Secret, ts, job.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderEvent, job.EventType)
	req.Header.Set(HeaderDelivery, job.ID.String())
	req.Header.Set("User-Agent", "Chamada-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deliver webhook: HTTP %d", resp.StatusCode)
	}

	return nil
}
