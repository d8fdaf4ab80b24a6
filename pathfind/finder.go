// Package pathfind finds the reference paths an alignment to the graph is
// consistent with.
//
// A Finder seeds one AlignmentSearchPath per source segment of the alignment
// with every path visit to the segment's first node, then extends it one
// mapping at a time, keeping only the visits that continue at the right
// offset. Branching (multipath) alignments are explored with an explicit
// worklist: at a branch point the search path is cloned once per successor.
// Search paths that die or do not consume the whole alignment are dropped; the
// rest become AlignmentPaths.
package pathfind

import (
	"math"

	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/vgpb"
)

// Outcome tells why a search produced the result it did.
type Outcome uint8

const (
	// Found means at least one AlignmentPath was produced.
	Found Outcome = iota
	// NoPath means the read did not align to the graph.
	NoPath
	// LowMapq means the mapping quality was below Opts.MinMapqFilter.
	LowMapq
	// LowScore means the score ratio was below Opts.MinBestScoreFilter.
	LowScore
	// Softclipped means the soft-clipped fraction exceeded
	// Opts.MaxSoftclipFilter.
	Softclipped
	// Unanchored means the alignment does not start on a node of the graph.
	Unanchored
	// Disconnected means consecutive segments are not adjacent in the graph.
	Disconnected
	// NoCompatiblePath means no reference path is consistent with the walk.
	NoCompatiblePath
	// Unpaired means both mates have paths, but no path and orientation
	// satisfies the pairing constraints.
	Unpaired

	// NumOutcomes is the number of Outcome values.
	NumOutcomes = int(Unpaired) + 1
)

var outcomeNames = [NumOutcomes]string{
	"found", "no_path", "low_mapq", "low_score", "softclipped",
	"unanchored", "disconnected", "no_compatible_path", "unpaired",
}

func (o Outcome) String() string { return outcomeNames[o] }

// Finder finds AlignmentPaths. It only reads from the index, so one Finder may
// be shared by many goroutines.
type Finder struct {
	index pathsindex.Index
	opts  Opts
}

// NewFinder creates a Finder.
func NewFinder(index pathsindex.Index, opts Opts) (*Finder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Finder{index: index, opts: opts}, nil
}

// Opts returns the options the finder was created with.
func (f *Finder) Opts() Opts { return f.opts }

// FindAlignmentPaths returns the candidate placements of a single read. An
// empty result means the read was filtered or no path is consistent with it.
func (f *Finder) FindAlignmentPaths(rec vgpb.Record) []AlignmentPath {
	paths, _ := f.FindAlignmentPathsWithOutcome(rec)
	return paths
}

// FindAlignmentPathsWithOutcome is FindAlignmentPaths that also reports why
// the result is empty.
func (f *Finder) FindAlignmentPathsWithOutcome(rec vgpb.Record) ([]AlignmentPath, Outcome) {
	searchPaths, outcome := f.findSearchPaths(rec)
	if outcome != Found {
		return nil, outcome
	}
	return searchPathsToAlignmentPaths(searchPaths, rec.CombinedMapQ()), Found
}

// FindPairedAlignmentPaths returns the candidate placements of a read pair.
// Both mates must pass the filters and have compatible paths, and the pair
// must lie on a shared path in a valid orientation with a fragment no longer
// than Opts.MaxPairFragLength.
func (f *Finder) FindPairedAlignmentPaths(rec1, rec2 vgpb.Record) []AlignmentPath {
	paths, _ := f.FindPairedAlignmentPathsWithOutcome(rec1, rec2)
	return paths
}

// FindPairedAlignmentPathsWithOutcome is FindPairedAlignmentPaths that also
// reports why the result is empty.
func (f *Finder) FindPairedAlignmentPathsWithOutcome(rec1, rec2 vgpb.Record) ([]AlignmentPath, Outcome) {
	searchPaths1, outcome := f.findSearchPaths(rec1)
	if outcome != Found {
		return nil, outcome
	}
	searchPaths2, outcome := f.findSearchPaths(rec2)
	if outcome != Found {
		return nil, outcome
	}
	groups := f.pairAlignmentPaths(searchPaths1, searchPaths2)
	if len(groups) == 0 {
		return nil, Unpaired
	}
	return groups.alignmentPaths(combineMapQ(rec1.CombinedMapQ(), rec2.CombinedMapQ())), Found
}

// findSearchPaths runs the filters and the search, and returns the search
// paths that stayed alive through the whole alignment.
func (f *Finder) findSearchPaths(rec vgpb.Record) ([]*AlignmentSearchPath, Outcome) {
	if outcome := f.filter(rec); outcome != Found {
		return nil, outcome
	}
	subpaths := rec.Traversal()
	if f.isAlignmentDisconnected(subpaths) {
		return nil, Disconnected
	}
	starts := rec.Starts()
	seeds := f.seedSearchPaths(subpaths, starts, f.startNodeIndex(subpaths, starts))
	if searchPaths := f.extendSearchPaths(subpaths, seeds); len(searchPaths) > 0 {
		return searchPaths, Found
	}
	return nil, NoCompatiblePath
}

// filter applies the pre-filters in order.
func (f *Finder) filter(rec vgpb.Record) Outcome {
	if !rec.HasPath() {
		return NoPath
	}
	if rec.CombinedMapQ() < f.opts.MinMapqFilter {
		return LowMapq
	}
	readLength := rec.ReadLength()
	// Always computed: for multipath records this also rejects cyclic inputs.
	score := rec.AlignmentScore()
	if f.opts.MinBestScoreFilter > 0 {
		optimal := float64(f.opts.MatchScore)*float64(readLength) + 2*float64(f.opts.FullLengthBonus)
		if optimal <= 0 || float64(score)/optimal < f.opts.MinBestScoreFilter {
			return LowScore
		}
	}
	if readLength > 0 && float64(rec.Softclip())/float64(readLength) > f.opts.MaxSoftclipFilter {
		return Softclipped
	}
	if !f.alignmentStartInGraph(rec) {
		return Unanchored
	}
	return Found
}

// alignmentStartInGraph reports whether the first mapping that consumes graph
// sequence in some source segment lies on a node of the graph.
func (f *Finder) alignmentStartInGraph(rec vgpb.Record) bool {
	subpaths := rec.Traversal()
	for _, s := range rec.Starts() {
		mappings := subpaths[s].Path.Mappings
		for i := range mappings {
			if mappings[i].FromLength() == 0 {
				continue
			}
			if f.index.HasNode(mappings[i].Pos().NodeID) {
				return true
			}
			break
		}
	}
	return false
}

func handleOf(pos *vgpb.Position) pathsindex.Handle {
	return pathsindex.NewHandle(pos.NodeID, pos.IsReverse)
}

// combineMapQ returns the phred quality of both mates being placed correctly.
func combineMapQ(q1, q2 uint32) uint32 {
	e1 := math.Pow(10, -float64(q1)/10)
	e2 := math.Pow(10, -float64(q2)/10)
	e := e1 + e2 - e1*e2
	if e >= 1 {
		return 0
	}
	return uint32(math.Round(-10 * math.Log10(e)))
}
