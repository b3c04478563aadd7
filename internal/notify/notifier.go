package notify

import (
	"context"
	"sync"
	"time"

	"github.com/vistaforge/waitlist-api/internal/log"
	"github.com/vistaforge/waitlist-api/internal/models"
	"github.com/vistaforge/waitlist-api/pkg/circuitbreaker"
	"github.com/vistaforge/waitlist-api/pkg/retry"
)

// Channel is one downstream consumer of a signup event. Channels are
// independent: one failing never affects another, or the signup response.
type Channel interface {
	Name() string
	Send(ctx context.Context, entry *models.WaitlistEntry) error
}

// Notifier dispatches a signup event to downstream channels.
type Notifier interface {
	Notify(entry *models.WaitlistEntry)
}

const channelTimeout = 10 * time.Second

type guardedChannel struct {
	channel Channel
	breaker circuitbreaker.CircuitBreaker
	policy  retry.RetryPolicy
}

// Fanout sends each event to every configured channel in its own goroutine,
// behind a catch-log-drop boundary. Delivery is best effort; the caller's
// transaction never waits on it.
type Fanout struct {
	logger   *log.Logger
	channels []guardedChannel
	wg       sync.WaitGroup
}

func NewFanout(logger *log.Logger, channels ...Channel) *Fanout {
	f := &Fanout{logger: logger}

	for _, ch := range channels {
		if ch == nil {
			continue
		}
		f.channels = append(f.channels, guardedChannel{
			channel: ch,
			breaker: circuitbreaker.NewCircuitBreaker(nil),
			policy:  retry.NewExponentialBackoff(nil),
		})
	}

	return f
}

func (f *Fanout) Notify(entry *models.WaitlistEntry) {
	if entry == nil {
		return
	}

	for _, gc := range f.channels {
		gc := gc
		f.wg.Add(1)

		go func() {
			defer f.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("Notification channel panicked", "channel", gc.channel.Name(), "panic", r)
				}
			}()

			err := gc.breaker.Call(func() error {
				return gc.policy.Execute(func() error {
					ctx, cancel := context.WithTimeout(context.Background(), channelTimeout)
					defer cancel()
					return gc.channel.Send(ctx, entry)
				})
			})

			if err != nil {
				f.logger.Error("Notification delivery failed", "channel", gc.channel.Name(), "error", err)
				return
			}

			f.logger.Info("Notification delivered", "channel", gc.channel.Name())
		}()
	}
}

// Wait blocks until in-flight deliveries finish. Used by graceful shutdown
// and tests; never called on the request path.
func (f *Fanout) Wait() {
	f.wg.Wait()
}

// NopNotifier is used when no channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(*models.WaitlistEntry) {}

// BuildChannels assembles the channels whose credentials are present.
// Either, both, or neither may be active; the result may be empty.
func BuildChannels(mailchimp *MailchimpConfig, slack *SlackConfig) []Channel {
	var channels []Channel

	if mailchimp.IsConfigured() {
		channels = append(channels, NewMailchimpChannel(mailchimp))
	}
	if slack.IsConfigured() {
		channels = append(channels, NewSlackChannel(slack))
	}

	return channels
}
