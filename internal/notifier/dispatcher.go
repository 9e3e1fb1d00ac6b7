package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/SAP-F-2025/submission-service/internal/events"
	"github.com/SAP-F-2025/submission-service/internal/export"
	"github.com/SAP-F-2025/submission-service/internal/models"
	"github.com/SAP-F-2025/submission-service/internal/repositories"
	"github.com/SAP-F-2025/submission-service/internal/storage"
)

// Outcome classifies one delivery attempt. None of these outcomes ever roll
// back or retry the state transition that triggered the event.
type Outcome string

const (
	OutcomeSent                         Outcome = "Sent"
	OutcomeSkippedNoTransportConfigured Outcome = "SkippedNoTransportConfigured"
	OutcomeFailed                       Outcome = "Failed"
)

type DeliveryResult struct {
	Outcome Outcome
	Reason  string
}

// Config tunes the background delivery machinery.
type Config struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration

	// FallbackReviewerAddress receives creation notices when no reviewer has
	// a usable address on file.
	FallbackReviewerAddress string
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher consumes transition events and delivers notifications on
// background workers, fully decoupled from the workflow engine's callers.
// Events are sharded by submission id, so per-submission delivery order
// matches transition order; cross-submission ordering is not guaranteed.
type Dispatcher struct {
	bus      *events.Bus
	repo     repositories.Repository
	store    storage.AttachmentStore
	mailer   Mailer
	renderer *export.ReportRenderer
	logger   *slog.Logger
	config   Config

	queues []chan *events.Event
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// onResult, when set, observes every delivery outcome (used by tests).
	onResult func(*events.Event, DeliveryResult)
}

func NewDispatcher(
	bus *events.Bus,
	repo repositories.Repository,
	store storage.AttachmentStore,
	mailer Mailer,
	logger *slog.Logger,
	config Config,
) *Dispatcher {
	return &Dispatcher{
		bus:      bus,
		repo:     repo,
		store:    store,
		mailer:   mailer,
		renderer: export.NewReportRenderer(),
		logger:   logger,
		config:   config.withDefaults(),
	}
}

// SetResultObserver registers a callback invoked after every delivery attempt.
func (d *Dispatcher) SetResultObserver(fn func(*events.Event, DeliveryResult)) {
	d.onResult = fn
}

// Start subscribes to the event bus and launches the worker shards.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	messages, err := d.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	d.queues = make([]chan *events.Event, d.config.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan *events.Event, d.config.QueueSize)
	}

	for i := range d.queues {
		d.wg.Add(1)
		go d.worker(ctx, d.queues[i])
	}

	d.wg.Add(1)
	go d.readLoop(ctx, messages)

	d.logger.Info("Notification dispatcher started", "workers", d.config.Workers, "transport_configured", d.mailer.IsConfigured())
	return nil
}

// Stop drains the subscription and waits for in-flight deliveries.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) readLoop(ctx context.Context, messages <-chan *message.Message) {
	defer d.wg.Done()
	defer func() {
		for _, q := range d.queues {
			close(q)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event events.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				d.logger.Error("Failed to decode event payload", "message_uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			transition, err := event.Transition()
			if err != nil {
				d.logger.Error("Failed to decode transition", "event_id", event.ID, "error", err)
				msg.Ack()
				continue
			}

			// Same submission always lands on the same shard: per-submission
			// FIFO follows from per-topic publish order.
			shard := int(transition.SubmissionID) % len(d.queues)
			select {
			case d.queues[shard] <- &event:
			case <-ctx.Done():
				msg.Ack()
				return
			}
			msg.Ack()
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, queue <-chan *events.Event) {
	defer d.wg.Done()

	for event := range queue {
		result := d.Dispatch(ctx, event)
		switch result.Outcome {
		case OutcomeSent:
			d.logger.Info("Notification delivered", "event_id", event.ID, "event_type", event.Type)
		case OutcomeSkippedNoTransportConfigured:
			d.logger.Info("Notification skipped", "event_id", event.ID, "reason", result.Reason)
		case OutcomeFailed:
			d.logger.Error("Notification delivery failed", "event_id", event.ID, "reason", result.Reason)
		}
		if d.onResult != nil {
			d.onResult(event, result)
		}
	}
}

// Dispatch performs a single delivery attempt for one event. Exactly one
// attempt is made; failures are reported in the result, never retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, event *events.Event) DeliveryResult {
	transition, err := event.Transition()
	if err != nil {
		return DeliveryResult{Outcome: OutcomeFailed, Reason: fmt.Sprintf("bad payload: %v", err)}
	}

	submission, err := d.repo.Submission().GetByID(ctx, nil, transition.SubmissionID)
	if err != nil {
		// The record may have been deleted between transition and dispatch.
		return DeliveryResult{Outcome: OutcomeFailed, Reason: fmt.Sprintf("submission lookup: %v", err)}
	}

	recipients, err := d.resolveRecipients(ctx, event.Type, submission)
	if err != nil {
		return DeliveryResult{Outcome: OutcomeFailed, Reason: fmt.Sprintf("recipient lookup: %v", err)}
	}
	if len(recipients) == 0 {
		return DeliveryResult{Outcome: OutcomeSkippedNoTransportConfigured, Reason: "no recipients"}
	}

	if !d.mailer.IsConfigured() {
		return DeliveryResult{Outcome: OutcomeSkippedNoTransportConfigured, Reason: "transport credentials absent"}
	}

	var subject, body string
	switch event.Type {
	case events.EventSubmissionCreated:
		subject, body, err = renderNewSubmission(submission)
	case events.EventStatusChanged:
		subject, body, err = renderStatusChange(submission, transition.OldStatus, transition.NewStatus)
	default:
		return DeliveryResult{Outcome: OutcomeFailed, Reason: fmt.Sprintf("unknown event type %q", event.Type)}
	}
	if err != nil {
		return DeliveryResult{Outcome: OutcomeFailed, Reason: err.Error()}
	}

	attachmentPath, cleanup := d.pickArtifact(event.Type, submission)
	defer cleanup()

	return d.sendWithTimeout(ctx, recipients, subject, body, attachmentPath)
}

// resolveRecipients applies the routing rules: creation notices go to every
// reviewer (falling back to one configured address); status changes go to
// the owner and every reviewer. Unusable addresses are dropped silently.
func (d *Dispatcher) resolveRecipients(ctx context.Context, eventType string, submission *models.Submission) ([]string, error) {
	reviewers, err := d.repo.User().ListByRole(ctx, nil, models.RoleReviewer)
	if err != nil {
		return nil, err
	}

	var recipients []string
	seen := make(map[string]bool)
	add := func(addr string) {
		if addr != "" && !seen[addr] {
			seen[addr] = true
			recipients = append(recipients, addr)
		}
	}

	if eventType == events.EventStatusChanged {
		owner, err := d.repo.User().GetByUsername(ctx, nil, submission.OwnerUsername)
		if err == nil {
			add(owner.ContactAddress())
		} else if !repositories.IsNotFoundError(err) {
			return nil, err
		}
	}

	reviewerCount := 0
	for _, reviewer := range reviewers {
		if addr := reviewer.ContactAddress(); addr != "" {
			add(addr)
			reviewerCount++
		}
	}
	if reviewerCount == 0 && eventType == events.EventSubmissionCreated {
		add(d.config.FallbackReviewerAddress)
	}

	return recipients, nil
}

// pickArtifact chooses the transport attachment: the submission's stored
// file when it still exists, otherwise (for status changes) a freshly
// rendered single-record report. Both are best-effort; delivery proceeds
// without an artifact on any failure.
func (d *Dispatcher) pickArtifact(eventType string, submission *models.Submission) (string, func()) {
	noop := func() {}

	if submission.HasAttachment() && d.store.Exists(*submission.AttachmentPath) {
		return *submission.AttachmentPath, noop
	}

	if eventType != events.EventStatusChanged {
		return "", noop
	}

	reportPath, err := d.renderer.RenderToTempFile(submission)
	if err != nil {
		d.logger.Warn("Failed to render report artifact", "submission_id", submission.ID, "error", err)
		return "", noop
	}
	return reportPath, func() {
		if err := os.Remove(reportPath); err != nil && !os.IsNotExist(err) {
			d.logger.Warn("Failed to remove temp report", "path", reportPath, "error", err)
		}
	}
}

// sendWithTimeout bounds the single delivery attempt. A timeout is reported
// as Failed("timeout") and the attempt is not retried.
func (d *Dispatcher) sendWithTimeout(ctx context.Context, recipients []string, subject, body, attachmentPath string) DeliveryResult {
	done := make(chan error, 1)
	go func() {
		done <- d.mailer.Send(recipients, subject, body, attachmentPath)
	}()

	select {
	case err := <-done:
		if err != nil {
			return DeliveryResult{Outcome: OutcomeFailed, Reason: err.Error()}
		}
		return DeliveryResult{Outcome: OutcomeSent}
	case <-time.After(d.config.SendTimeout):
		return DeliveryResult{Outcome: OutcomeFailed, Reason: "timeout"}
	case <-ctx.Done():
		return DeliveryResult{Outcome: OutcomeFailed, Reason: ctx.Err().Error()}
	}
}
