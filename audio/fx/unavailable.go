package fx

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// UnavailableModule stands in for a module that could not be built, such as
// a plugin that failed to load. It passes audio through unchanged and
// ignores its parameters, so a session referencing it still plays.
type UnavailableModule struct {
	component.Ports

	through []*processor.Identity
	err     error
}

// Unavailable returns a pass-through placeholder for channels channels.
func Unavailable(name string, channels int, err error) *UnavailableModule {
	u := &UnavailableModule{err: err}

	for ch := range channels {
		id := processor.NewIdentity(fmt.Sprintf("%s unavailable %d", name, ch))
		u.through = append(u.through, id)
		u.In = append(u.In, graph.Endpoint{Proc: id, Port: 0})
		u.Out = append(u.Out, graph.Endpoint{Proc: id, Port: 0})
	}

	return u
}

// Err returns why the module is unavailable.
func (u *UnavailableModule) Err() error { return u.err }

func (u *UnavailableModule) Connect(g *graph.Graph) {
	for _, id := range u.through {
		g.Add(id)
	}
}
