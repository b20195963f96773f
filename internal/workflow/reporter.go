package workflow

import (
	"log"
)

// Reporter forwards run events to a presentation callback. It is a
// pure observer: it has no way to mutate the run, and a panicking or
// misbehaving callback is contained here so a broken display can never
// abort an orchestration run.
type Reporter struct {
	done chan struct{}
}

// Observe starts forwarding events to fn until the channel closes.
func Observe(events <-chan Event, fn func(Event)) *Reporter {
	r := &Reporter{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		for event := range events {
			forward(fn, event)
		}
	}()
	return r
}

// Wait blocks until the event channel has closed and all events have
// been forwarded.
func (r *Reporter) Wait() {
	<-r.done
}

func forward(fn func(Event), event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[reporter] observer panicked on %s event, continuing: %v", event.Type, rec)
		}
	}()
	fn(event)
}
