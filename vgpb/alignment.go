// Package vgpb defines the graph alignment records consumed by pathfind and
// readprob. The field layout follows the vg Alignment and
// MultipathAlignment messages, and the JSON tags match vg's JSON rendering, so
// "vg view -aj" and "vg view -K -j" output can be decoded directly.
package vgpb

import "github.com/grailbio/base/log"

// Position is a location on a graph node. Offset is counted from the start of
// the node in the orientation given by IsReverse.
type Position struct {
	NodeID    uint64 `json:"node_id,string"`
	Offset    uint32 `json:"offset,omitempty"`
	IsReverse bool   `json:"is_reverse,omitempty"`
}

// Edit describes how a stretch of the read relates to a stretch of the
// node. A match has equal lengths and no sequence; a mismatch has equal
// lengths and the read sequence; an insertion has FromLength == 0; a deletion
// has ToLength == 0.
type Edit struct {
	FromLength uint32 `json:"from_length,omitempty"`
	ToLength   uint32 `json:"to_length,omitempty"`
	Sequence   string `json:"sequence,omitempty"`
}

// IsMatch reports whether the edit is an exact match.
func (e Edit) IsMatch() bool { return e.FromLength == e.ToLength && e.Sequence == "" }

// IsMismatch reports whether the edit is a substitution.
func (e Edit) IsMismatch() bool { return e.FromLength == e.ToLength && e.Sequence != "" }

// IsInsertion reports whether the edit adds read bases absent from the
// node. Soft clips are encoded as insertions at either end of the path.
func (e Edit) IsInsertion() bool { return e.FromLength == 0 && e.ToLength > 0 }

// IsDeletion reports whether the edit skips node bases.
func (e Edit) IsDeletion() bool { return e.FromLength > 0 && e.ToLength == 0 }

// Mapping is the part of an alignment that lies on a single node.
type Mapping struct {
	Position *Position `json:"position,omitempty"`
	Edits    []Edit    `json:"edit,omitempty"`
	Rank     int64     `json:"rank,string,omitempty"`
}

// FromLength returns the number of node bases the mapping consumes.
func (m *Mapping) FromLength() uint32 {
	var n uint32
	for _, e := range m.Edits {
		n += e.FromLength
	}
	return n
}

// ToLength returns the number of read bases the mapping consumes.
func (m *Mapping) ToLength() uint32 {
	var n uint32
	for _, e := range m.Edits {
		n += e.ToLength
	}
	return n
}

// Pos returns the mapping position.
//
// REQUIRES: the position is set. A mapping without a position is a malformed
// record, not a negative outcome.
func (m *Mapping) Pos() *Position {
	if m.Position == nil {
		log.Panicf("mapping without position: %+v", *m)
	}
	return m.Position
}

// Path is an ordered list of mappings.
type Path struct {
	Name     string    `json:"name,omitempty"`
	Mappings []Mapping `json:"mapping,omitempty"`
}

// ToLength returns the number of read bases the path consumes.
func (p *Path) ToLength() uint32 {
	var n uint32
	for i := range p.Mappings {
		n += p.Mappings[i].ToLength()
	}
	return n
}

// LeadingSoftclip returns the number of inserted read bases before the first
// base that consumes graph sequence.
func (p *Path) LeadingSoftclip() uint32 {
	if len(p.Mappings) == 0 {
		return 0
	}
	var n uint32
	for _, e := range p.Mappings[0].Edits {
		if !e.IsInsertion() {
			break
		}
		n += e.ToLength
	}
	return n
}

// TrailingSoftclip returns the number of inserted read bases after the last
// base that consumes graph sequence.
func (p *Path) TrailingSoftclip() uint32 {
	if len(p.Mappings) == 0 {
		return 0
	}
	edits := p.Mappings[len(p.Mappings)-1].Edits
	var n uint32
	for i := len(edits) - 1; i >= 0; i-- {
		if !edits[i].IsInsertion() {
			break
		}
		n += edits[i].ToLength
	}
	return n
}

// Alignment is a linear alignment of one read against the graph.
type Alignment struct {
	Name           string `json:"name,omitempty"`
	Sequence       string `json:"sequence,omitempty"`
	Quality        []byte `json:"quality,omitempty"`
	Path           *Path  `json:"path,omitempty"`
	Score          int32  `json:"score,omitempty"`
	MappingQuality uint32 `json:"mapping_quality,omitempty"`
}

// Connection is a long-range jump between two subpaths that is not backed by
// an edge of the graph.
type Connection struct {
	Next  uint32 `json:"next"`
	Score int32  `json:"score,omitempty"`
}

// Subpath is one segment of a multipath alignment. Next lists the subpaths
// that may follow this one; an empty Next marks a sink.
type Subpath struct {
	Path        Path         `json:"path"`
	Next        []uint32     `json:"next,omitempty"`
	Score       int32        `json:"score,omitempty"`
	Connections []Connection `json:"connection,omitempty"`
}

// MultipathAlignment is a branching alignment of one read: a DAG of subpaths.
// Start lists the source subpaths. If Start is empty, every subpath without a
// predecessor is a source.
type MultipathAlignment struct {
	Name           string    `json:"name,omitempty"`
	Sequence       string    `json:"sequence,omitempty"`
	Quality        []byte    `json:"quality,omitempty"`
	Subpaths       []Subpath `json:"subpath,omitempty"`
	MappingQuality uint32    `json:"mapping_quality,omitempty"`
	Start          []uint32  `json:"start,omitempty"`
}
