package fx

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/stream"
)

// tap passes audio through unchanged and copies it into a stream for
// scope and spectrum views.
type tap struct {
	component.Ports

	through []*processor.Identity
	sink    *stream.Processor
}

func buildTap(bc BuildContext) (component.Component, error) {
	if bc.Stream.Channels() != bc.Channels {
		return nil, fmt.Errorf("stream has %d channels, module has %d", bc.Stream.Channels(), bc.Channels)
	}

	t := &tap{sink: stream.NewProcessor(bc.Name, bc.Stream)}

	for ch := range bc.Channels {
		id := processor.NewIdentity(fmt.Sprintf("%s %d", bc.Name, ch))
		t.through = append(t.through, id)
		t.In = append(t.In, graph.Endpoint{Proc: id, Port: 0})
		t.Out = append(t.Out, graph.Endpoint{Proc: id, Port: 0})
	}

	return t, nil
}

func (t *tap) Connect(g *graph.Graph) {
	g.Add(t.sink)

	for ch, id := range t.through {
		g.Connect(graph.Endpoint{Proc: id, Port: 0}, graph.Endpoint{Proc: t.sink, Port: ch})
	}
}
