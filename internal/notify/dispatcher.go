package notify

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ChainMilestones are the chain counts announced to EventChain subscribers
var ChainMilestones = []int64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// CrossedMilestone returns the highest milestone m with previous < m <= current
func CrossedMilestone(previous, current int64) (int64, bool) {
	var crossed int64
	for _, m := range ChainMilestones {
		if previous < m && m <= current {
			crossed = m
		}
	}
	return crossed, crossed > 0
}

// Sender delivers a direct message to a chat user
type Sender interface {
	SendDirect(ctx context.Context, userID, message string) error
}

// Persister saves preferences after last_notified stamps change
type Persister func(ctx context.Context, prefs map[string]UserPreferences) error

// Result summarizes one dispatch
type Result struct {
	Event     EventType
	Delivered []string
	Failed    []string
}

// Dispatcher fans events out to opted-in users, one global rate limited
// send at a time
type Dispatcher struct {
	prefs   *Preferences
	sender  Sender
	limiter *rate.Limiter
	persist Persister
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. sendsPerSecond bounds direct messages
// across all users.
func NewDispatcher(prefs *Preferences, sender Sender, sendsPerSecond float64, persist Persister) *Dispatcher {
	if sendsPerSecond <= 0 {
		sendsPerSecond = 1
	}
	return &Dispatcher{
		prefs:   prefs,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(sendsPerSecond), 1),
		persist: persist,
		now:     time.Now,
	}
}

// Dispatch sends message to every eligible user. Failed deliveries do not
// consume the user's quiet period.
func (d *Dispatcher) Dispatch(ctx context.Context, event EventType, message string) Result {
	result := Result{Event: event}
	if d.sender == nil {
		return result
	}

	reserved := d.prefs.Reserve(event, d.now())
	if len(reserved) == 0 {
		return result
	}

	users := make([]string, 0, len(reserved))
	for id := range reserved {
		users = append(users, id)
	}
	sort.Strings(users)

	for _, userID := range users {
		if err := d.limiter.Wait(ctx); err != nil {
			d.prefs.Release(userID, reserved[userID])
			result.Failed = append(result.Failed, userID)
			continue
		}
		if err := d.sender.SendDirect(ctx, userID, message); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("event", string(event)).
				Msg("Failed to deliver notification")
			d.prefs.Release(userID, reserved[userID])
			result.Failed = append(result.Failed, userID)
			continue
		}
		result.Delivered = append(result.Delivered, userID)
	}

	log.Info().
		Str("event", string(event)).
		Int("delivered", len(result.Delivered)).
		Int("failed", len(result.Failed)).
		Msg("Dispatched notification")

	if d.persist != nil {
		if err := d.persist(ctx, d.prefs.Snapshot()); err != nil {
			log.Error().Err(err).Msg("Failed to save notification preferences")
		}
	}

	return result
}
