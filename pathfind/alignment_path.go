package pathfind

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/graphquant/pathsindex"
)

// pathPos is the span [start, end) of a partial walk along one reference path,
// in the strand coordinates of pathsindex.PathPos.
type pathPos struct {
	pathID     uint32
	reverse    bool
	start, end uint32
}

// AlignmentSearchPath is the state of a partial walk through the reference
// paths that are consistent with the alignment processed so far.
//
// INVARIANT: once positions becomes empty the search path is dead; it is
// dropped and never extended again.
type AlignmentSearchPath struct {
	positions []pathPos
	scoreSum  int32
	seqLength uint32
	complete  bool
}

// IDs returns the sorted, deduplicated ids of the paths the walk is still
// consistent with.
func (p *AlignmentSearchPath) IDs() []uint32 {
	ids := make([]uint32, 0, len(p.positions))
	for _, pos := range p.positions {
		ids = append(ids, pos.pathID)
	}
	return sortUnique(ids)
}

// IsEmpty reports whether the search path is dead.
func (p *AlignmentSearchPath) IsEmpty() bool { return len(p.positions) == 0 }

// IsComplete reports whether the search path consumed the whole alignment.
func (p *AlignmentSearchPath) IsComplete() bool { return p.complete }

// ScoreSum returns the cumulative alignment score.
func (p *AlignmentSearchPath) ScoreSum() int32 { return p.scoreSum }

// SeqLength returns the cumulative length of graph sequence traversed.
func (p *AlignmentSearchPath) SeqLength() uint32 { return p.seqLength }

func (p *AlignmentSearchPath) clone() *AlignmentSearchPath {
	c := *p
	c.positions = append([]pathPos(nil), p.positions...)
	return &c
}

// extend advances the walk over one mapping that starts at the given handle
// and node offset and consumes fromLength node bases. Positions whose path
// does not visit the handle at the expected offset are dropped.
func (p *AlignmentSearchPath) extend(index pathsindex.Index, h pathsindex.Handle, offset, fromLength uint32) {
	visits := index.NodePaths(h)
	kept := p.positions[:0]
	for _, pos := range p.positions {
		if pos.end < offset {
			continue
		}
		want := pos.end - offset
		for _, v := range visits {
			if v.PathID == pos.pathID && v.Reverse == pos.reverse && v.Offset == want {
				pos.end += fromLength
				kept = append(kept, pos)
				break
			}
		}
	}
	p.positions = kept
	p.seqLength += fromLength
}

func (p *AlignmentSearchPath) String() string {
	buf := strings.Builder{}
	fmt.Fprintf(&buf, "{score:%d len:%d complete:%v", p.scoreSum, p.seqLength, p.complete)
	for _, pos := range p.positions {
		strand := '+'
		if pos.reverse {
			strand = '-'
		}
		fmt.Fprintf(&buf, " %d%c[%d,%d)", pos.pathID, strand, pos.start, pos.end)
	}
	buf.WriteByte('}')
	return buf.String()
}

// AlignmentPath is a finalized candidate placement of a read or read pair:
// the set of paths it cannot distinguish among, with the combined score and
// mapping quality. SeqLength is the fragment length for pairs, and the length
// of graph sequence traversed for single reads. Read only.
type AlignmentPath struct {
	IDs       []uint32
	ScoreSum  int32
	MapqComb  uint32
	SeqLength uint32
}

// Equal compares all fields.
func (a AlignmentPath) Equal(b AlignmentPath) bool {
	if a.ScoreSum != b.ScoreSum || a.MapqComb != b.MapqComb || a.SeqLength != b.SeqLength || len(a.IDs) != len(b.IDs) {
		return false
	}
	for i := range a.IDs {
		if a.IDs[i] != b.IDs[i] {
			return false
		}
	}
	return true
}

func (a AlignmentPath) String() string {
	return fmt.Sprintf("{ids:%v score:%d mapq:%d len:%d}", a.IDs, a.ScoreSum, a.MapqComb, a.SeqLength)
}

// candidateKey groups candidates that differ only in the paths they lie on.
type candidateKey struct {
	score     int32
	seqLength uint32
}

// candidateGroups accumulates path ids per candidateKey.
type candidateGroups map[candidateKey][]uint32

func (g candidateGroups) add(score int32, seqLength uint32, ids ...uint32) {
	k := candidateKey{score, seqLength}
	g[k] = append(g[k], ids...)
}

// alignmentPaths converts the groups to AlignmentPaths, sorted by descending
// score, then ascending length, then ids.
func (g candidateGroups) alignmentPaths(mapq uint32) []AlignmentPath {
	if len(g) == 0 {
		return nil
	}
	paths := make([]AlignmentPath, 0, len(g))
	for k, ids := range g {
		paths = append(paths, AlignmentPath{
			IDs:       sortUnique(ids),
			ScoreSum:  k.score,
			MapqComb:  mapq,
			SeqLength: k.seqLength,
		})
	}
	sort.Slice(paths, func(i, j int) bool {
		pi, pj := &paths[i], &paths[j]
		if pi.ScoreSum != pj.ScoreSum {
			return pi.ScoreSum > pj.ScoreSum
		}
		if pi.SeqLength != pj.SeqLength {
			return pi.SeqLength < pj.SeqLength
		}
		return lessIDs(pi.IDs, pj.IDs)
	})
	return paths
}

// searchPathsToAlignmentPaths converts the alive, complete search paths.
func searchPathsToAlignmentPaths(searchPaths []*AlignmentSearchPath, mapq uint32) []AlignmentPath {
	groups := candidateGroups{}
	for _, sp := range searchPaths {
		if sp.IsEmpty() || !sp.IsComplete() {
			continue
		}
		groups.add(sp.scoreSum, sp.seqLength, sp.IDs()...)
	}
	return groups.alignmentPaths(mapq)
}

func sortUnique(ids []uint32) []uint32 {
	if len(ids) == 0 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	n := 1
	for i := 1; i < len(ids); i++ {
		if ids[n-1] != ids[i] {
			ids[n] = ids[i]
			n++
		}
	}
	return ids[:n]
}

func lessIDs(a, b []uint32) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// intersects reports whether two sorted id lists share an element.
func intersects(a, b []uint32) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}
