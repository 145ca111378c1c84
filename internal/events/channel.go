package events

import "github.com/kelindar/event"

// SubscribeToChannel delivers every event of type T to ch until the returned
// function is called. Sends never block; when ch is full the event is dropped.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return SubscribeToChannelFunc[T](bus, ch, nil)
}

// SubscribeToChannelFunc is SubscribeToChannel with a filter. Events for
// which keep returns false are not sent. A nil keep sends everything.
func SubscribeToChannelFunc[T Event](bus *Bus, ch chan<- any, keep func(T) bool) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		if keep != nil && !keep(e) {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
}
