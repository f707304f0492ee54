// Package notify queues notification events for an external dispatcher.
// Delivery is fire-and-forget from the core's perspective: a failed publish or
// dispatch is logged and counted but never fails the mutation that caused it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

// Event is the payload handed to the external dispatcher.
type Event struct {
	TargetAudience string    `json:"target_audience"`
	EventKind      string    `json:"event_kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Tries          int       `json:"tries"`
	Created        time.Time `json:"created"`
}

// Dispatcher delivers an event to the outside world.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// HTTPDispatcher posts events as JSON to an external endpoint. An empty URL
// turns it into a logging no-op, which keeps local development quiet.
type HTTPDispatcher struct {
	URL    string
	Client *http.Client
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if d.URL == "" {
		logger.Debug("notification dispatch skipped, no DISPATCH_URL", "kind", ev.EventKind)
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatcher returned status %d", resp.StatusCode)
	}
	return nil
}

type Service struct {
	redis      *redis.Client
	dispatcher Dispatcher
}

func New(redisAddr string, dispatcher Dispatcher) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		dispatcher: dispatcher,
	}
}

// NewWithClient is used by tests to inject a mock redis client.
func NewWithClient(client *redis.Client, dispatcher Dispatcher) *Service {
	return &Service{redis: client, dispatcher: dispatcher}
}

// Publish queues an event. Callers treat errors as non-fatal.
func (s *Service) Publish(ctx context.Context, targetAudience, eventKind, title, message string) error {
	ev := Event{
		TargetAudience: targetAudience,
		EventKind:      eventKind,
		Title:          title,
		Message:        message,
		Created:        time.Now(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordNotification(eventKind, "error")
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue notification %s: %v", eventKind, err)
		metrics.RecordNotification(eventKind, "error")
		return err
	}

	logger.Infof("Notification queued: %s for %s", eventKind, targetAudience)
	metrics.RecordNotification(eventKind, "queued")
	return nil
}

// Start runs the delivery worker until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
			metrics.NotificationQueueLength.Set(float64(s.QueueLength(ctx)))
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	ev.Tries++
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		logger.Errorf("Failed to dispatch %s notification: %v", ev.EventKind, err)

		if ev.Tries < maxTries {
			data, _ := json.Marshal(ev)
			s.redis.LPush(context.Background(), queueKey, data)
			return
		}

		s.saveFailed(ev, err)
		metrics.RecordNotification(ev.EventKind, "failed")
		return
	}

	metrics.RecordNotification(ev.EventKind, "sent")
}

func (s *Service) saveFailed(ev Event, err error) {
	failed := map[string]interface{}{
		"event": ev,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: %s", ev.EventKind)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}
