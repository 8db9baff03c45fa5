package processor

import "github.com/nooploop/piejam-sub003/audio/event"

// SingleEventHandler is implemented by processors whose behavior is driven
// by one event input. ProcessSingleEventInput slices the block at every
// event offset and calls the hooks so implementations never branch per
// sample on event arrival.
type SingleEventHandler[T event.Value] interface {
	// ProcessWithoutEvents handles a block in which no event arrived.
	ProcessWithoutEvents(ctx *Context)
	// ProcessWithStartingEvent handles the common case of exactly one
	// event at offset 0.
	ProcessWithStartingEvent(ctx *Context, ev event.Event[T])
	// ProcessEventSlice renders frames [from, ev.Offset) with the current
	// state and then applies ev.
	ProcessEventSlice(ctx *Context, from int, ev event.Event[T])
	// ProcessFinalSlice renders frames [from, ctx.BufferSize) and publishes
	// the results.
	ProcessFinalSlice(ctx *Context, from int)
}

// ProcessSingleEventInput dispatches one block of events to h.
func ProcessSingleEventInput[T event.Value](ctx *Context, events *event.Buffer[T], h SingleEventHandler[T]) {
	switch {
	case events.Empty():
		h.ProcessWithoutEvents(ctx)
	case events.Len() == 1 && events.At(0).Offset == 0:
		h.ProcessWithStartingEvent(ctx, events.At(0))
	default:
		from := 0
		for _, ev := range events.Events() {
			h.ProcessEventSlice(ctx, from, ev)
			from = ev.Offset
		}

		h.ProcessFinalSlice(ctx, from)
	}
}
