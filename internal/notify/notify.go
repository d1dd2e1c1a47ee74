// Package notify delivers finalization outcomes to interested listeners —
// the live dashboard feed, and eventually any digest/email integration.
// It deliberately carries no webhook-delivery or retry machinery: that
// belongs to the systems downstream of this engine, not to the engine
// itself.
package notify

import "log"

const (
	KindFinalized = "FINALIZED"
	KindRejected  = "REJECTED"
)

// Event is one notification-worthy outcome from the finalization pipeline.
type Event struct {
	Kind     string
	RecordID string
	Detail   string
}

// Notifier receives finalization events.
type Notifier interface {
	Notify(Event)
}

// LogNotifier is the default Notifier: it logs every event and forwards
// it to an optional callback, which the API layer uses to push onto the
// live dashboard websocket feed.
type LogNotifier struct {
	callback func(Event)
}

func NewLogNotifier(callback func(Event)) *LogNotifier {
	return &LogNotifier{callback: callback}
}

func (n *LogNotifier) Notify(ev Event) {
	log.Printf("[Notify] %s record=%s detail=%s", ev.Kind, ev.RecordID, ev.Detail)
	if n.callback != nil {
		n.callback(ev)
	}
}
