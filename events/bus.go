package events

import "io"

// SubscriptionOpt represents a subscriber option. Use the options exposed by the implementation of choice.
type SubscriptionOpt = func(interface{}) error

// Subscription represents a subscription to one or multiple event types.
type Subscription interface {
	io.Closer

	// Out returns the channel from which to consume events.
	Out() <-chan interface{}
}

// Bus is an interface for a type-based event delivery system. The agent
// publishes its notifications here and the host consumes them.
type Bus interface {
	// Subscribe creates a new Subscription.
	//
	// eventType can be either a pointer to a single event type, or a slice of pointers to
	// subscribe to multiple event types at once, under a single subscription (and channel).
	//
	// Failing to drain the channel may cause publishers to block.
	//
	// Simple example
	//
	//  sub, err := bus.Subscribe(&events.TradeCompleted{})
	//  defer sub.Close()
	//  for e := range sub.Out() {
	//    done := e.(*events.TradeCompleted) // guaranteed safe
	//    [...]
	//  }
	//
	// Multi-type example
	//
	//  sub, err := bus.Subscribe([]interface{}{&events.ProposalAccepted{}, &events.ProposalFailed{}})
	//  defer sub.Close()
	//  for e := range sub.Out() {
	//    switch e.(type) {
	//      case *events.ProposalAccepted:
	//        [...]
	//      case *events.ProposalFailed:
	//        [...]
	//    }
	//  }
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emit emits an event onto the bus. If any channel subscribed to the topic is blocked,
	// calls to Emit will block.
	Emit(evt interface{})
}
