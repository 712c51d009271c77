package events

import (
	"errors"
	"reflect"
	"sync"
)

// ErrNonPointerSubscription is returned when Subscribe is passed a value
// rather than a pointer to the event type.
var ErrNonPointerSubscription = errors.New("subscribe called with non-pointer type")

// basicBus is a type-based event delivery system
type basicBus struct {
	lk   sync.Mutex
	subs map[reflect.Type][]*sub
}

var _ Bus = (*basicBus)(nil)

// NewBus returns a basic event bus.
func NewBus() Bus {
	return &basicBus{
		subs: make(map[reflect.Type][]*sub),
	}
}

func (b *basicBus) Emit(event interface{}) {
	b.lk.Lock()
	defer b.lk.Unlock()

	sinks, ok := b.subs[reflect.TypeOf(event)]
	if !ok {
		return
	}

	for _, s := range sinks {
		if !s.matches(event) {
			continue
		}
		s.ch <- event
	}
}

func (b *basicBus) dropSubscriber(typ reflect.Type, s *sub) {
	b.lk.Lock()
	defer b.lk.Unlock()

	subs, ok := b.subs[typ]
	if !ok {
		return
	}
	for i, existing := range subs {
		if existing == s {
			b.subs[typ] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Subscribe creates new subscription. Failing to drain the channel will cause
// publishers to get blocked.
func (b *basicBus) Subscribe(evtTypes interface{}, opts ...SubscriptionOpt) (Subscription, error) {
	settings := subSettingsDefault
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, err
		}
	}

	types, ok := evtTypes.([]interface{})
	if !ok {
		types = []interface{}{evtTypes}
	}
	for _, etyp := range types {
		if reflect.TypeOf(etyp).Kind() != reflect.Ptr {
			return nil, ErrNonPointerSubscription
		}
	}

	b.lk.Lock()
	defer b.lk.Unlock()

	out := &sub{
		ch:    make(chan interface{}, settings.buffer),
		drop:  b.dropSubscriber,
		match: settings.matchFieldValues,
	}
	for _, etyp := range types {
		typ := reflect.TypeOf(etyp)
		b.subs[typ] = append(b.subs[typ], out)
		out.typs = append(out.typs, typ)
	}
	return out, nil
}

type sub struct {
	ch    chan interface{}
	typs  []reflect.Type
	drop  func(typ reflect.Type, s *sub)
	match map[string]string
}

var _ Subscription = (*sub)(nil)

func (s *sub) Out() <-chan interface{} {
	return s.ch
}

func (s *sub) Close() error {
	go func() {
		// drain the event channel, will return when closed and drained.
		// this is necessary to unblock publishes to this channel.
		for range s.ch {
		}
	}()

	for _, typ := range s.typs {
		s.drop(typ, s)
	}
	close(s.ch)
	return nil
}

func (s *sub) matches(event interface{}) bool {
	if len(s.match) == 0 {
		return true
	}
	val := reflect.Indirect(reflect.ValueOf(event))
	for field, want := range s.match {
		f := val.FieldByName(field)
		if !f.IsValid() || f.Kind() != reflect.String || f.String() != want {
			return false
		}
	}
	return true
}
