package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindRegistrationPending   Kind = "registration_pending"
	KindRegistrationConfirmed Kind = "registration_confirmed"
	KindPaymentVerified       Kind = "payment_verified"
	KindPaymentRejected       Kind = "payment_rejected"
)

type Member struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsLeader bool   `json:"is_leader"`
}

// Message is everything a mail template needs. It travels over the broker as JSON.
type Message struct {
	Kind                 Kind      `json:"kind"`
	To                   string    `json:"to"`
	RecipientName        string    `json:"recipient_name"`
	EventID              int64     `json:"event_id"`
	EventTitle           string    `json:"event_title"`
	EventStart           time.Time `json:"event_start"`
	Venue                string    `json:"venue,omitempty"`
	TeamID               int64     `json:"team_id"`
	TeamName             string    `json:"team_name"`
	Members              []Member  `json:"members,omitempty"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	Amount               int64     `json:"amount,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	ManagerName          string    `json:"manager_name,omitempty"`
	ManagerEmail         string    `json:"manager_email,omitempty"`
	ManagerPhone         string    `json:"manager_phone,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier accepts messages without blocking the caller.
type Notifier interface {
	Enqueue(msg Message) bool
}

// Dispatcher hands messages to a Sender from a fixed pool of workers.
// Send failures are logged and dropped.
type Dispatcher struct {
	sender  Sender
	log     *zerolog.Logger
	queue   chan Message
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, log *zerolog.Logger, workers, buffer int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan Message, buffer),
		workers: workers,
		timeout: timeout,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
	d.log.Info().Int("workers", d.workers).Int("buffer", cap(d.queue)).Msg("notification dispatcher started")
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			d.log.Warn().Err(err).
				Int("worker", worker).
				Str("kind", string(msg.Kind)).
				Int64("team_id", msg.TeamID).
				Msg("notification not delivered")
			continue
		}
		d.log.Debug().Str("kind", string(msg.Kind)).Int64("team_id", msg.TeamID).Msg("notification delivered")
	}
}

// Enqueue never blocks. It reports false when the message was dropped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn().Str("kind", string(msg.Kind)).Msg("dispatcher stopped, notification dropped")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn().Str("kind", string(msg.Kind)).Int64("team_id", msg.TeamID).Msg("notification queue full, message dropped")
		return false
	}
}

// Stop closes the queue and waits for queued messages to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info().Msg("notification dispatcher stopped")
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Enqueue(Message) bool { return false }
