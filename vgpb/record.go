package vgpb

import "github.com/grailbio/base/log"

// Record is the view of an alignment that the path search needs. Linear
// alignments present themselves as a single subpath without successors, so the
// search and extension logic is written once against this interface.
type Record interface {
	// ReadName returns the name of the read.
	ReadName() string
	// HasPath reports whether the read aligned to the graph at all.
	HasPath() bool
	// Traversal returns the segments of the alignment. The slice must not be
	// modified.
	Traversal() []Subpath
	// Starts returns the indices of the source segments in Traversal.
	Starts() []int
	// IsBranching reports whether the record is a multipath alignment.
	IsBranching() bool
	// PerBaseQuality returns the phred base qualities of the read.
	PerBaseQuality() []byte
	// CombinedMapQ returns the phred-scaled mapping quality.
	CombinedMapQ() uint32
	// AlignmentScore returns the score of the best walk through the alignment.
	AlignmentScore() int32
	// ReadLength returns the number of read bases.
	ReadLength() uint32
	// Softclip returns the number of soft-clipped bases at both ends.
	Softclip() uint32
}

var (
	_ Record = (*Alignment)(nil)
	_ Record = (*MultipathAlignment)(nil)
)

// ReadName implements Record.
func (a *Alignment) ReadName() string { return a.Name }

// HasPath implements Record.
func (a *Alignment) HasPath() bool { return a.Path != nil && len(a.Path.Mappings) > 0 }

// Traversal implements Record.
func (a *Alignment) Traversal() []Subpath {
	if a.Path == nil {
		return nil
	}
	return []Subpath{{Path: *a.Path, Score: a.Score}}
}

// Starts implements Record.
func (a *Alignment) Starts() []int {
	if a.Path == nil {
		return nil
	}
	return []int{0}
}

// IsBranching implements Record.
func (a *Alignment) IsBranching() bool { return false }

// PerBaseQuality implements Record.
func (a *Alignment) PerBaseQuality() []byte { return a.Quality }

// CombinedMapQ implements Record.
func (a *Alignment) CombinedMapQ() uint32 { return a.MappingQuality }

// AlignmentScore implements Record.
func (a *Alignment) AlignmentScore() int32 { return a.Score }

// ReadLength implements Record.
func (a *Alignment) ReadLength() uint32 {
	if len(a.Sequence) > 0 {
		return uint32(len(a.Sequence))
	}
	if len(a.Quality) > 0 || a.Path == nil {
		return uint32(len(a.Quality))
	}
	return a.Path.ToLength()
}

// Softclip implements Record.
func (a *Alignment) Softclip() uint32 {
	if a.Path == nil {
		return 0
	}
	return a.Path.LeadingSoftclip() + a.Path.TrailingSoftclip()
}

// ReadName implements Record.
func (m *MultipathAlignment) ReadName() string { return m.Name }

// HasPath implements Record.
func (m *MultipathAlignment) HasPath() bool {
	for i := range m.Subpaths {
		if len(m.Subpaths[i].Path.Mappings) > 0 {
			return true
		}
	}
	return false
}

// Traversal implements Record.
func (m *MultipathAlignment) Traversal() []Subpath { return m.Subpaths }

// Starts implements Record.
func (m *MultipathAlignment) Starts() []int {
	if len(m.Start) > 0 {
		starts := make([]int, len(m.Start))
		for i, s := range m.Start {
			m.checkIndex(s)
			starts[i] = int(s)
		}
		return starts
	}
	hasPred := make([]bool, len(m.Subpaths))
	for i := range m.Subpaths {
		for _, n := range m.Subpaths[i].Next {
			m.checkIndex(n)
			hasPred[n] = true
		}
		for _, c := range m.Subpaths[i].Connections {
			m.checkIndex(c.Next)
			hasPred[c.Next] = true
		}
	}
	var starts []int
	for i, p := range hasPred {
		if !p {
			starts = append(starts, i)
		}
	}
	return starts
}

func (m *MultipathAlignment) checkIndex(i uint32) {
	if int(i) >= len(m.Subpaths) {
		log.Panicf("%s: subpath index %d out of range [0,%d)", m.Name, i, len(m.Subpaths))
	}
}

// IsBranching implements Record.
func (m *MultipathAlignment) IsBranching() bool { return true }

// PerBaseQuality implements Record.
func (m *MultipathAlignment) PerBaseQuality() []byte { return m.Quality }

// CombinedMapQ implements Record.
func (m *MultipathAlignment) CombinedMapQ() uint32 { return m.MappingQuality }

// AlignmentScore implements Record. It is the score of the highest scoring
// source-to-sink walk, connections included.
func (m *MultipathAlignment) AlignmentScore() int32 {
	best := m.bestWalks()
	var score int32
	for i, s := range m.Starts() {
		if i == 0 || best[s].score > score {
			score = best[s].score
		}
	}
	return score
}

// ReadLength implements Record. Without a sequence or qualities, it is the
// read length covered by the highest scoring walk.
func (m *MultipathAlignment) ReadLength() uint32 {
	if len(m.Sequence) > 0 {
		return uint32(len(m.Sequence))
	}
	if len(m.Quality) > 0 {
		return uint32(len(m.Quality))
	}
	best := m.bestWalks()
	var (
		score  int32
		length uint32
	)
	for i, s := range m.Starts() {
		if i == 0 || best[s].score > score {
			score, length = best[s].score, best[s].toLength
		}
	}
	return length
}

// Softclip implements Record. A multipath alignment may start and end in
// several subpaths; the smallest clip on each side is used.
func (m *MultipathAlignment) Softclip() uint32 {
	var (
		leading, trailing uint32
		first             = true
	)
	for _, s := range m.Starts() {
		c := m.Subpaths[s].Path.LeadingSoftclip()
		if first || c < leading {
			leading = c
		}
		first = false
	}
	first = true
	for i := range m.Subpaths {
		if len(m.Subpaths[i].Next) > 0 || len(m.Subpaths[i].Connections) > 0 {
			continue
		}
		c := m.Subpaths[i].Path.TrailingSoftclip()
		if first || c < trailing {
			trailing = c
		}
		first = false
	}
	return leading + trailing
}

type walkSummary struct {
	score    int32
	toLength uint32
	done     bool
	visiting bool
}

// bestWalks computes, for every subpath, the best score of a walk that starts
// there and ends at a sink. Subpaths are topologically ordered in vg output,
// but the memoized recursion does not rely on it. A cycle is a malformed
// record.
func (m *MultipathAlignment) bestWalks() []walkSummary {
	best := make([]walkSummary, len(m.Subpaths))
	var visit func(i int) walkSummary
	visit = func(i int) walkSummary {
		if best[i].done {
			return best[i]
		}
		if best[i].visiting {
			log.Panicf("%s: subpath %d is on a cycle", m.Name, i)
		}
		best[i].visiting = true
		sp := &m.Subpaths[i]
		var (
			tail  walkSummary
			found bool
		)
		for _, n := range sp.Next {
			m.checkIndex(n)
			if w := visit(int(n)); !found || w.score > tail.score {
				tail, found = w, true
			}
		}
		for _, c := range sp.Connections {
			m.checkIndex(c.Next)
			w := visit(int(c.Next))
			w.score += c.Score
			if !found || w.score > tail.score {
				tail, found = w, true
			}
		}
		best[i] = walkSummary{
			score:    sp.Score + tail.score,
			toLength: sp.Path.ToLength() + tail.toLength,
			done:     true,
		}
		return best[i]
	}
	for i := range m.Subpaths {
		visit(i)
	}
	return best
}
