package alert

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Event is one notification-worthy alert transition, addressed to the
// contacts of the escalation level that is being engaged.
type Event struct {
	Record   Record   `json:"record"`
	To       State    `json:"to"`
	Contacts []string `json:"contacts"`
	Message  string   `json:"message"`
}

// Notifier delivers one event over one channel ("email", "slack", ...).
// Implementations wrap real transports; the dispatcher isolates their
// failures so a broken channel never stalls escalation.
type Notifier interface {
	Notify(ctx context.Context, channel string, event Event) error
}

// LogNotifier writes notifications to the log. It is the default sink when
// no transport is wired in, and keeps the dispatch path exercised end to
// end.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs the event at warn level so alert traffic stands out.
func (n *LogNotifier) Notify(ctx context.Context, channel string, event Event) error {
	n.log.Warnw("ALERT "+event.Message,
		"channel", channel,
		"alert_id", event.Record.ID,
		"identity", event.Record.Identity.String(),
		"severity", string(event.Record.Severity),
		"state", string(event.To),
		"level", event.Record.Level,
		"contacts", event.Contacts,
	)
	return nil
}

// Dispatcher fans an event out to a set of channels, applying a per-channel
// rate limit. Delivery failures and throttled sends are logged and dropped;
// they never propagate to the caller.
type Dispatcher struct {
	notifier     Notifier
	maxPerMinute int
	log          *zap.SugaredLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher creates a dispatcher sending through notifier, allowing at
// most maxPerMinute sends per channel. A non-positive limit disables
// throttling.
func NewDispatcher(notifier Notifier, maxPerMinute int, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		notifier:     notifier,
		maxPerMinute: maxPerMinute,
		log:          log,
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Dispatch sends event to every channel. Returns the number of channels the
// event actually went out on.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []string, event Event) int {
	sent := 0
	for _, channel := range channels {
		if !d.allow(channel) {
			if d.log != nil {
				d.log.Debugw("Notification rate limited",
					"channel", channel,
					"alert_id", event.Record.ID)
			}
			continue
		}
		if err := d.notifier.Notify(ctx, channel, event); err != nil {
			if d.log != nil {
				d.log.Warnw("Notification delivery failed",
					"channel", channel,
					"alert_id", event.Record.ID,
					"error", err)
			}
			continue
		}
		sent++
	}
	return sent
}

func (d *Dispatcher) allow(channel string) bool {
	if d.maxPerMinute <= 0 {
		return true
	}
	d.mu.Lock()
	limiter, ok := d.limiters[channel]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(d.maxPerMinute)/60.0), d.maxPerMinute)
		d.limiters[channel] = limiter
	}
	d.mu.Unlock()
	return limiter.Allow()
}

// eventMessage builds the human-readable line carried by notifications.
func eventMessage(rec *Record, to State) string {
	switch to {
	case StateOpen:
		return fmt.Sprintf("%s alert opened for %s", rec.Severity, rec.Identity)
	case StateEscalated:
		return fmt.Sprintf("%s alert for %s escalated to level %d", rec.Severity, rec.Identity, rec.Level)
	default:
		return fmt.Sprintf("alert for %s resolved", rec.Identity)
	}
}
