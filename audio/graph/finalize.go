package graph

import (
	"fmt"
	"slices"

	"github.com/nooploop/piejam-sub003/audio/processor"
)

// RemoveIdentityProcessors elides every audio identity processor by wiring
// its sources straight to its consumers. A consumer that also had other
// sources keeps summing them. It returns the number of processors removed.
func RemoveIdentityProcessors(g *Graph) int {
	removed := 0

	for _, p := range g.Processors() {
		id, ok := p.(*processor.Identity)
		if !ok {
			continue
		}

		out := Endpoint{Proc: id, Port: 0}
		srcs := g.audio[Endpoint{Proc: id, Port: 0}]

		for dst, dstSrcs := range g.audio {
			i := slices.Index(dstSrcs, out)
			if i < 0 {
				continue
			}

			next := slices.Delete(slices.Clone(dstSrcs), i, i+1)
			for _, s := range srcs {
				if !slices.Contains(next, s) {
					next = append(next, s)
				}
			}

			if len(next) == 0 {
				delete(g.audio, dst)
			} else {
				g.audio[dst] = next
			}
		}

		g.RemoveProcessor(id)
		removed++
	}

	return removed
}

// RemoveEventIdentityProcessors elides every event identity processor by
// wiring its source straight to its consumers. Consumers of an unconnected
// identity become unconnected. It returns the number of processors removed.
func RemoveEventIdentityProcessors(g *Graph) int {
	removed := 0

	for _, p := range g.Processors() {
		id, ok := p.(*processor.EventIdentity)
		if !ok {
			continue
		}

		out := Endpoint{Proc: id, Port: 0}
		src, connected := g.events[Endpoint{Proc: id, Port: 0}]

		for dst, s := range g.events {
			if s != out {
				continue
			}

			if connected {
				g.events[dst] = src
			} else {
				delete(g.events, dst)
			}
		}

		g.RemoveProcessor(id)
		removed++
	}

	return removed
}

// InsertMixers replaces every summing point with an explicit Mix processor
// and returns the mixers it created.
func InsertMixers(g *Graph) []*processor.Mix {
	var dsts []Endpoint

	for dst, srcs := range g.audio {
		if len(srcs) > 1 {
			dsts = append(dsts, dst)
		}
	}

	slices.SortFunc(dsts, g.Compare)

	mixers := make([]*processor.Mix, 0, len(dsts))

	for _, dst := range dsts {
		srcs := g.audio[dst]
		slices.SortFunc(srcs, g.Compare)

		mix := processor.NewMix(fmt.Sprintf("%s:%d mix", dst.Proc.Name(), dst.Port), len(srcs))
		for i, src := range srcs {
			g.Connect(src, Endpoint{Proc: mix, Port: i})
		}

		g.Connect(Endpoint{Proc: mix, Port: 0}, dst)

		mixers = append(mixers, mix)
	}

	return mixers
}

// Finalize returns a copy of g without identity processors and with every
// summing point materialized as a Mix processor, together with the mixers
// it inserted. The result is the only form accepted by the DAG compiler.
// Finalizing a finalized graph changes nothing.
func Finalize(g *Graph) (*Graph, []*processor.Mix) {
	out := g.Clone()

	RemoveIdentityProcessors(out)
	RemoveEventIdentityProcessors(out)

	return out, InsertMixers(out)
}

// IsFinal reports whether g has neither identity processors nor summing
// points.
func IsFinal(g *Graph) bool {
	for _, p := range g.procs {
		switch p.(type) {
		case *processor.Identity, *processor.EventIdentity:
			return false
		}
	}

	for _, srcs := range g.audio {
		if len(srcs) > 1 {
			return false
		}
	}

	return true
}
