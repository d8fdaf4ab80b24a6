package pathfind

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/vgpb"
)

// startNodeIndex maps the handle of each source segment's first mapping to
// the path visits a search may be seeded from. The visits keep the index
// order and multiplicity.
type startNodeIndex map[pathsindex.Handle][]pathsindex.PathPos

// startNodeIndex builds the start index. Source segments whose first mapping
// starts deeper than Opts.MaxStartNodeOffset into its node are left out.
func (f *Finder) startNodeIndex(subpaths []vgpb.Subpath, starts []int) startNodeIndex {
	idx := startNodeIndex{}
	for _, s := range starts {
		pos := subpaths[s].Path.Mappings[0].Pos()
		if f.opts.MaxStartNodeOffset > 0 && pos.Offset > f.opts.MaxStartNodeOffset {
			continue
		}
		h := handleOf(pos)
		if _, ok := idx[h]; ok {
			continue
		}
		if visits := f.index.NodePaths(h); len(visits) > 0 {
			idx[h] = visits
		}
	}
	return idx
}

// searchState is a worklist entry: a search path about to enter a segment.
type searchState struct {
	path    *AlignmentSearchPath
	subpath int
}

// seedSearchPaths creates one search path per source segment found in the
// start index.
func (f *Finder) seedSearchPaths(subpaths []vgpb.Subpath, starts []int, idx startNodeIndex) []searchState {
	seeds := make([]searchState, 0, len(starts))
	for _, s := range starts {
		pos := subpaths[s].Path.Mappings[0].Pos()
		visits, ok := idx[handleOf(pos)]
		if !ok {
			continue
		}
		sp := &AlignmentSearchPath{positions: make([]pathPos, 0, len(visits))}
		for _, v := range visits {
			start := v.Offset + pos.Offset
			sp.positions = append(sp.positions, pathPos{pathID: v.PathID, reverse: v.Reverse, start: start, end: start})
		}
		seeds = append(seeds, searchState{path: sp, subpath: s})
	}
	return seeds
}

// extendSearchPaths runs the bounded backtracking search. Each worklist entry
// is extended through all mappings of its segment; a search path that dies is
// dropped, one that reaches a sink is complete, and one that reaches a branch
// point is cloned per successor. Work is bounded by the number of path visits
// per node, since every step can only shrink a search path.
func (f *Finder) extendSearchPaths(subpaths []vgpb.Subpath, seeds []searchState) []*AlignmentSearchPath {
	work := make([]searchState, 0, len(seeds))
	for i := len(seeds) - 1; i >= 0; i-- {
		work = append(work, seeds[i])
	}
	var done []*AlignmentSearchPath
	for len(work) > 0 {
		st := work[len(work)-1]
		work = work[:len(work)-1]

		sp := &subpaths[st.subpath]
		p := st.path
		p.scoreSum += sp.Score
		for i := range sp.Path.Mappings {
			m := &sp.Path.Mappings[i]
			pos := m.Pos()
			p.extend(f.index, handleOf(pos), pos.Offset, m.FromLength())
			if p.IsEmpty() {
				break
			}
		}
		if p.IsEmpty() {
			continue
		}
		if len(sp.Next) == 0 {
			p.complete = true
			done = append(done, p)
			continue
		}
		// Push in reverse so that the first successor is explored first. The
		// first successor reuses p; the others get clones taken before p is
		// modified.
		for i := len(sp.Next) - 1; i >= 0; i-- {
			child := p
			if i > 0 {
				child = p.clone()
			}
			work = append(work, searchState{path: child, subpath: int(sp.Next[i])})
		}
	}
	return done
}

// isAlignmentDisconnected reports whether any two consecutive mappings, within
// a segment or across a segment transition, are not adjacent in the graph.
// Long-range connections and empty segments also count as disconnected.
func (f *Finder) isAlignmentDisconnected(subpaths []vgpb.Subpath) bool {
	for i := range subpaths {
		sp := &subpaths[i]
		if len(sp.Connections) > 0 {
			return true
		}
		mappings := sp.Path.Mappings
		if len(mappings) == 0 {
			return true
		}
		for j := 1; j < len(mappings); j++ {
			if !f.mappingsConnected(&mappings[j-1], &mappings[j]) {
				return true
			}
		}
		for _, n := range sp.Next {
			if int(n) >= len(subpaths) {
				log.Panicf("subpath %d: next subpath %d out of range [0,%d)", i, n, len(subpaths))
			}
			next := subpaths[n].Path.Mappings
			if len(next) == 0 {
				return true
			}
			if !f.mappingsConnected(&mappings[len(mappings)-1], &next[0]) {
				return true
			}
		}
	}
	return false
}

// mappingsConnected reports whether mapping next can follow mapping prev: it
// either continues on the same node where prev stopped, or prev runs to the end
// of its node and next starts at the beginning of a node joined by an edge.
func (f *Finder) mappingsConnected(prev, next *vgpb.Mapping) bool {
	pp, np := prev.Pos(), next.Pos()
	prevEnd := pp.Offset + prev.FromLength()
	if pp.NodeID == np.NodeID && pp.IsReverse == np.IsReverse && prevEnd == np.Offset {
		return true
	}
	if np.Offset != 0 || prevEnd != f.index.NodeLength(pp.NodeID) {
		return false
	}
	return f.index.HasEdge(handleOf(pp), handleOf(np))
}
