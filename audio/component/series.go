package component

import "github.com/nooploop/piejam-sub003/audio/graph"

// Series chains components so the outputs of each feed the inputs of the
// next. Mismatched channel counts are adapted by graph.ConnectAll.
type Series struct {
	parts []Component
}

// NewSeries returns the chain of parts. An empty chain has no ports.
func NewSeries(parts ...Component) *Series {
	return &Series{parts: parts}
}

// Len returns the number of chained components.
func (s *Series) Len() int { return len(s.parts) }

func (s *Series) Inputs() []graph.Endpoint {
	if len(s.parts) == 0 {
		return nil
	}

	return s.parts[0].Inputs()
}

func (s *Series) Outputs() []graph.Endpoint {
	if len(s.parts) == 0 {
		return nil
	}

	return s.parts[len(s.parts)-1].Outputs()
}

func (s *Series) EventInputs() []graph.Endpoint {
	var eps []graph.Endpoint
	for _, p := range s.parts {
		eps = append(eps, p.EventInputs()...)
	}

	return eps
}

func (s *Series) EventOutputs() []graph.Endpoint {
	var eps []graph.Endpoint
	for _, p := range s.parts {
		eps = append(eps, p.EventOutputs()...)
	}

	return eps
}

func (s *Series) Connect(g *graph.Graph) {
	for i, p := range s.parts {
		p.Connect(g)

		if i > 0 {
			g.ConnectAll(s.parts[i-1].Outputs(), p.Inputs())
		}
	}
}
