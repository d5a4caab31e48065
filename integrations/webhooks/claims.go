package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the logical webhook topic.
type EventType string

const (
	// EventClaimCommitted is emitted after a claim's commit step settles.
	EventClaimCommitted EventType = "campaign.claim.committed"
	// EventRaffleDrawn is emitted when a raffle draw selects its winners.
	EventRaffleDrawn EventType = "campaign.raffle.drawn"
	// EventExportReady is emitted when a claims export file is available.
	EventExportReady EventType = "campaign.export.ready"

	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// ClaimCommittedPayload describes the webhook body for committed claims.
type ClaimCommittedPayload struct {
	Type       EventType `json:"type"`
	CampaignID string    `json:"campaignId"`
	Claimant   string    `json:"claimant"`
	RewardKind string    `json:"rewardKind"`
	Amount     string    `json:"amount,omitempty"`
	Fee        string    `json:"fee,omitempty"`
	TokenID    string    `json:"tokenId,omitempty"`
	ClaimedAt  time.Time `json:"claimedAt"`
	DeliveryID string    `json:"deliveryId"`
}

// RaffleDrawnPayload describes the webhook body for raffle draws.
type RaffleDrawnPayload struct {
	Type           EventType `json:"type"`
	CampaignID     string    `json:"campaignId"`
	Winners        []string  `json:"winners"`
	PrizePerWinner string    `json:"prizePerWinner"`
	DrawnAt        time.Time `json:"drawnAt"`
	DeliveryID     string    `json:"deliveryId"`
}

// ExportReadyPayload describes the webhook body for finished exports.
type ExportReadyPayload struct {
	Type        EventType `json:"type"`
	Format      string    `json:"format"`
	Count       int       `json:"count"`
	ExportURL   string    `json:"exportUrl,omitempty"`
	Checksum    string    `json:"checksum"`
	GeneratedAt time.Time `json:"generatedAt"`
	DeliveryID  string    `json:"deliveryId"`
}

// Dispatcher orchestrates webhook deliveries with retry and exponential backoff.
type Dispatcher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
}

type delivery struct {
	eventType EventType
	body      []byte
}

// Option mutates dispatcher configuration.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

// NewDispatcher constructs a dispatcher and spawns the worker goroutine.
func NewDispatcher(endpoint string, secret []byte, opts ...Option) (*Dispatcher, error) {
	endpoint = string(bytes.TrimSpace([]byte(endpoint)))
	if endpoint == "" {
		return nil, errors.New("webhook: endpoint required")
	}
	if len(secret) == 0 {
		return nil, errors.New("webhook: secret required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &Dispatcher{
		endpoint:    endpoint,
		secret:      append([]byte(nil), secret...),
		client:      &http.Client{Timeout: 15 * time.Second},
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan delivery, 32),
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	dispatcher.wg.Add(1)
	go dispatcher.worker()
	return dispatcher, nil
}

// Close stops the dispatcher and waits for inflight deliveries to complete.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// EnqueueClaim sends a committed-claim event asynchronously.
func (d *Dispatcher) EnqueueClaim(payload ClaimCommittedPayload) error {
	payload.Type = EventClaimCommitted
	if payload.ClaimedAt.IsZero() {
		payload.ClaimedAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = "claim-" + uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

// EnqueueRaffle sends a raffle-drawn event asynchronously.
func (d *Dispatcher) EnqueueRaffle(payload RaffleDrawnPayload) error {
	payload.Type = EventRaffleDrawn
	if payload.DrawnAt.IsZero() {
		payload.DrawnAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = "raffle-" + uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

// EnqueueExport sends an export-ready event asynchronously.
func (d *Dispatcher) EnqueueExport(payload ExportReadyPayload) error {
	payload.Type = EventExportReady
	if payload.GeneratedAt.IsZero() {
		payload.GeneratedAt = time.Now().UTC()
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = "export-" + uuid.NewString()
	}
	return d.enqueue(payload.Type, payload)
}

func (d *Dispatcher) enqueue(eventType EventType, body interface{}) error {
	if d == nil {
		return errors.New("webhook: dispatcher not initialised")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	select {
	case d.queue <- delivery{eventType: eventType, body: data}:
		return nil
	case <-d.ctx.Done():
		return errors.New("webhook: dispatcher closed")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.process(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job delivery) {
	attempt := 0
	backoff := d.minBackoff
	for {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.client.Timeout)
		err := d.send(ctx, job)
		cancel()
		if err == nil {
			return
		}
		if attempt >= d.maxAttempts {
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Claimgate-Event", string(job.eventType))
	req.Header.Set("X-Claimgate-Signature", d.sign(job.body))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: delivery failed with status %d", resp.StatusCode)
}

func (d *Dispatcher) sign(body []byte) string {
	mac := hmac.New(sha256.New, d.secret)
	_, _ = mac.Write(body)
	sum := mac.Sum(nil)
	return "sha256=" + hex.EncodeToString(sum)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	if next < current {
		return max
	}
	return next
}
