// Package pathsindex answers which reference paths pass through a graph node,
// and at which offsets. The path finder only reads from an Index; building
// one (MemIndex, LoadTSV) is supporting infrastructure.
package pathsindex

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Handle is a node id together with an orientation: id<<1 | reverse.
type Handle uint64

// NewHandle creates a handle.
func NewHandle(nodeID uint64, reverse bool) Handle {
	h := Handle(nodeID << 1)
	if reverse {
		h |= 1
	}
	return h
}

// NodeID returns the node id.
func (h Handle) NodeID() uint64 { return uint64(h >> 1) }

// IsReverse returns the orientation.
func (h Handle) IsReverse() bool { return h&1 == 1 }

// Flip returns the handle for the opposite orientation of the same node.
func (h Handle) Flip() Handle { return h ^ 1 }

// String renders the handle as "<id>+" or "<id>-".
func (h Handle) String() string {
	if h.IsReverse() {
		return fmt.Sprintf("%d-", h.NodeID())
	}
	return fmt.Sprintf("%d+", h.NodeID())
}

// PathPos is one visit of a reference path to a node handle.
//
// Reverse is set when the handle is traversed against the direction of the
// path. Offset is the position of the first base of the handle along the
// path, counted from the path start when Reverse is false and from the path
// end when it is true. A walk that follows the handles in read order therefore
// always moves towards increasing offsets.
type PathPos struct {
	PathID  uint32
	Reverse bool
	Offset  uint32
}

// Index is the read-only query interface used by the path finder and the
// probability model. Implementations must be safe for concurrent reads.
type Index interface {
	// NodePaths lists all path visits to the handle, in a stable order.
	NodePaths(h Handle) []PathPos
	// HasNode reports whether the node exists in the graph.
	HasNode(nodeID uint64) bool
	// NodeLength returns the node sequence length, or 0 if the node is unknown.
	NodeLength(nodeID uint64) uint32
	// HasEdge reports whether the graph has an edge from one handle to another.
	HasEdge(from, to Handle) bool
	// NumPaths returns the number of paths. Path ids are 0..NumPaths()-1.
	NumPaths() int
	// PathLength returns the sequence length of the path.
	PathLength(pathID uint32) uint32
	// PathName returns the name of the path.
	PathName(pathID uint32) string
}

type edge struct{ from, to Handle }

type pathInfo struct {
	name   string
	length uint32
	steps  []Handle
}

// MemIndex is an in-memory Index. It is thread compatible while being built
// and threadsafe once building is done.
type MemIndex struct {
	nodeLengths map[uint64]uint32
	paths       []pathInfo
	pathIDs     map[string]uint32
	nodePaths   map[Handle][]PathPos
	edges       map[edge]struct{}
}

var _ Index = (*MemIndex)(nil)

// NewMemIndex creates an empty index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		nodeLengths: map[uint64]uint32{},
		pathIDs:     map[string]uint32{},
		nodePaths:   map[Handle][]PathPos{},
		edges:       map[edge]struct{}{},
	}
}

// AddNode registers a node and its sequence length.
func (x *MemIndex) AddNode(nodeID uint64, length uint32) error {
	if length == 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("node %d: zero length", nodeID))
	}
	if old, ok := x.nodeLengths[nodeID]; ok && old != length {
		return errors.E(errors.Invalid, fmt.Sprintf("node %d: conflicting lengths %d and %d", nodeID, old, length))
	}
	x.nodeLengths[nodeID] = length
	return nil
}

// AddEdge registers an edge and its reverse complement.
func (x *MemIndex) AddEdge(from, to Handle) {
	x.edges[edge{from, to}] = struct{}{}
	x.edges[edge{to.Flip(), from.Flip()}] = struct{}{}
}

// AddPath registers a reference path as an ordered list of handles and
// returns its id. The edges between consecutive steps are added to the graph.
// All nodes must have been added beforehand.
func (x *MemIndex) AddPath(name string, steps []Handle) (uint32, error) {
	if _, ok := x.pathIDs[name]; ok {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("path %s: duplicate name", name))
	}
	if len(steps) == 0 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("path %s: no steps", name))
	}
	var length uint32
	starts := make([]uint32, len(steps))
	for i, h := range steps {
		nodeLen, ok := x.nodeLengths[h.NodeID()]
		if !ok {
			return 0, errors.E(errors.NotExist, fmt.Sprintf("path %s: unknown node %d", name, h.NodeID()))
		}
		starts[i] = length
		length += nodeLen
	}
	id := uint32(len(x.paths))
	for i, h := range steps {
		nodeLen := x.nodeLengths[h.NodeID()]
		x.nodePaths[h] = append(x.nodePaths[h], PathPos{PathID: id, Offset: starts[i]})
		x.nodePaths[h.Flip()] = append(x.nodePaths[h.Flip()],
			PathPos{PathID: id, Reverse: true, Offset: length - starts[i] - nodeLen})
		if i > 0 {
			x.AddEdge(steps[i-1], h)
		}
	}
	x.paths = append(x.paths, pathInfo{name: name, length: length, steps: steps})
	x.pathIDs[name] = id
	return id, nil
}

// NodePaths implements Index.
func (x *MemIndex) NodePaths(h Handle) []PathPos { return x.nodePaths[h] }

// HasNode implements Index.
func (x *MemIndex) HasNode(nodeID uint64) bool {
	_, ok := x.nodeLengths[nodeID]
	return ok
}

// NodeLength implements Index.
func (x *MemIndex) NodeLength(nodeID uint64) uint32 { return x.nodeLengths[nodeID] }

// HasEdge implements Index.
func (x *MemIndex) HasEdge(from, to Handle) bool {
	_, ok := x.edges[edge{from, to}]
	return ok
}

// NumPaths implements Index.
func (x *MemIndex) NumPaths() int { return len(x.paths) }

// PathLength implements Index.
func (x *MemIndex) PathLength(pathID uint32) uint32 { return x.paths[pathID].length }

// PathName implements Index.
func (x *MemIndex) PathName(pathID uint32) string { return x.paths[pathID].name }

// PathID looks up a path by name.
func (x *MemIndex) PathID(name string) (uint32, bool) {
	id, ok := x.pathIDs[name]
	return id, ok
}

// PathSteps returns the handles of the path. The slice must not be modified.
func (x *MemIndex) PathSteps(pathID uint32) []Handle { return x.paths[pathID].steps }

// PathLengths returns the lengths of all paths, indexed by path id.
func PathLengths(idx Index) []uint32 {
	lengths := make([]uint32, idx.NumPaths())
	for i := range lengths {
		lengths[i] = idx.PathLength(uint32(i))
	}
	return lengths
}
