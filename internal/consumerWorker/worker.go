package consumerWorker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hackhub/internal/notify"
)

type consumer interface {
	Consume(ctx context.Context, handler func([]byte) error) error
}

// Reader drains the notification queue and hands each message to the mail sender.
type Reader struct {
	rmq     consumer
	sender  notify.Sender
	log     *zerolog.Logger
	timeout time.Duration
	done    chan struct{}
	cancel  context.CancelFunc
}

func NewReader(rmq consumer, sender notify.Sender, log *zerolog.Logger, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reader{
		rmq:     rmq,
		sender:  sender,
		log:     log,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg notify.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		// A malformed payload will never decode; ack it so it does not loop.
		r.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal notification")
		return nil
	}

	r.log.Info().
		Str("kind", string(msg.Kind)).
		Int64("event_id", msg.EventID).
		Int64("team_id", msg.TeamID).
		Msg("received notification")

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.sender.Send(sendCtx, msg); err != nil {
		return fmt.Errorf("deliver %s for team %d: %w", msg.Kind, msg.TeamID, err)
	}
	return nil
}

func (r *Reader) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if err := r.rmq.Consume(cctx, func(body []byte) error { return r.handle(cctx, body) }); err != nil {
		cancel()
		close(r.done)
		return err
	}

	r.log.Info().Msg("notification reader started")
	go func() {
		defer close(r.done)
		<-cctx.Done()
		r.log.Info().Msg("notification reader stopped")
	}()
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
