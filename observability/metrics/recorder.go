package metrics

import (
	"datacoin/core/events"
	"datacoin/native/factory"
	"datacoin/native/market"
)

// Recorder is an event emitter that feeds engine events into prometheus.
// Attach it to any engine with SetEmitter; events it does not recognise are
// dropped.
type Recorder struct {
	metrics *EngineMetrics
	next    events.Emitter
}

// NewRecorder builds a recorder that optionally forwards every event to
// next after counting it.
func NewRecorder(next events.Emitter) *Recorder {
	return &Recorder{metrics: Engine(), next: next}
}

// Emit satisfies events.Emitter.
func (r *Recorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case factory.EventTypeCoinCreated:
		r.metrics.ObserveCoinCreated()
	case factory.EventTypeLPWithdrawn:
		r.metrics.ObserveLPWithdrawal()
	case market.EventTypeBuy:
		r.metrics.ObserveSwap("buy")
	case market.EventTypeSell:
		r.metrics.ObserveSwap("sell")
	}
	if r.next != nil {
		r.next.Emit(evt)
	}
}
