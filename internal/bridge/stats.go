package bridge

import "sync/atomic"

// Stats is a point-in-time snapshot of the bridge counters. All counters
// are monotonically non-decreasing for the life of the bridge.
type Stats struct {
	// Pushed is the number of events accepted by the queue.
	Pushed int64
	// Dropped is the number of events rejected because the queue was
	// full at push time.
	Dropped int64
	// Delivered is the number of forwarding calls made by the dispatch
	// loop, including calls whose handler returned an error.
	Delivered int64
	// HandlerErrors is the number of forwarding calls that failed.
	HandlerErrors int64
	// SubscriberDrops is the number of fan-out sends skipped because a
	// subscriber channel was full.
	SubscriberDrops int64
}

type stats struct {
	pushed          atomic.Int64
	dropped         atomic.Int64
	delivered       atomic.Int64
	handlerErrors   atomic.Int64
	subscriberDrops atomic.Int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Pushed:          s.pushed.Load(),
		Dropped:         s.dropped.Load(),
		Delivered:       s.delivered.Load(),
		HandlerErrors:   s.handlerErrors.Load(),
		SubscriberDrops: s.subscriberDrops.Load(),
	}
}
