package vgpb

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func match(node uint64, offset, length uint32) Mapping {
	return Mapping{
		Position: &Position{NodeID: node, Offset: offset},
		Edits:    []Edit{{FromLength: length, ToLength: length}},
	}
}

func TestEditKinds(t *testing.T) {
	tests := []struct {
		e                                 Edit
		match, mismatch, insert, deletion bool
	}{
		{Edit{FromLength: 3, ToLength: 3}, true, false, false, false},
		{Edit{FromLength: 1, ToLength: 1, Sequence: "A"}, false, true, false, false},
		{Edit{ToLength: 2, Sequence: "AC"}, false, false, true, false},
		{Edit{FromLength: 2}, false, false, false, true},
	}
	for _, test := range tests {
		expect.EQ(t, test.e.IsMatch(), test.match, "%+v", test.e)
		expect.EQ(t, test.e.IsMismatch(), test.mismatch, "%+v", test.e)
		expect.EQ(t, test.e.IsInsertion(), test.insert, "%+v", test.e)
		expect.EQ(t, test.e.IsDeletion(), test.deletion, "%+v", test.e)
	}
}

func TestPathLengths(t *testing.T) {
	p := Path{Mappings: []Mapping{
		{
			Position: &Position{NodeID: 1},
			Edits:    []Edit{{ToLength: 2, Sequence: "GG"}, {FromLength: 3, ToLength: 3}, {FromLength: 1}},
		},
		{
			Position: &Position{NodeID: 2},
			Edits:    []Edit{{FromLength: 2, ToLength: 2}, {ToLength: 1, Sequence: "T"}, {ToLength: 3, Sequence: "TTT"}},
		},
	}}
	expect.EQ(t, p.Mappings[0].FromLength(), uint32(4))
	expect.EQ(t, p.Mappings[0].ToLength(), uint32(5))
	expect.EQ(t, p.ToLength(), uint32(11))
	expect.EQ(t, p.LeadingSoftclip(), uint32(2))
	expect.EQ(t, p.TrailingSoftclip(), uint32(4))
	expect.EQ(t, (&Path{}).LeadingSoftclip(), uint32(0))
}

func TestAlignmentRecord(t *testing.T) {
	a := &Alignment{
		Name:           "r",
		Quality:        []byte{30, 30, 30, 30, 30},
		Score:          11,
		MappingQuality: 42,
		Path: &Path{Mappings: []Mapping{{
			Position: &Position{NodeID: 5},
			Edits:    []Edit{{FromLength: 4, ToLength: 4}, {ToLength: 1, Sequence: "A"}},
		}}},
	}
	var rec Record = a
	expect.True(t, rec.HasPath())
	expect.False(t, rec.IsBranching())
	expect.EQ(t, rec.Starts(), []int{0})
	expect.EQ(t, len(rec.Traversal()), 1)
	expect.EQ(t, rec.Traversal()[0].Score, int32(11))
	expect.EQ(t, rec.CombinedMapQ(), uint32(42))
	expect.EQ(t, rec.AlignmentScore(), int32(11))
	// Without a sequence the length comes from the qualities.
	expect.EQ(t, rec.ReadLength(), uint32(5))
	expect.EQ(t, rec.Softclip(), uint32(1))
	expect.EQ(t, rec.PerBaseQuality(), a.Quality)

	empty := &Alignment{Name: "u", Sequence: "ACGT"}
	expect.False(t, empty.HasPath())
	expect.EQ(t, len(empty.Traversal()), 0)
	expect.EQ(t, len(empty.Starts()), 0)
	expect.EQ(t, empty.ReadLength(), uint32(4))
	expect.EQ(t, empty.Softclip(), uint32(0))
}

func TestMultipathRecord(t *testing.T) {
	m := &MultipathAlignment{
		Name:           "m",
		MappingQuality: 7,
		Subpaths: []Subpath{
			{Path: Path{Mappings: []Mapping{{
				Position: &Position{NodeID: 1},
				Edits:    []Edit{{ToLength: 1, Sequence: "A"}, {FromLength: 4, ToLength: 4}},
			}}}, Next: []uint32{2}, Score: 3},
			{Path: Path{Mappings: []Mapping{match(3, 0, 4)}}, Next: []uint32{2}, Score: 4},
			{Path: Path{Mappings: []Mapping{{
				Position: &Position{NodeID: 2},
				Edits:    []Edit{{FromLength: 3, ToLength: 3}, {ToLength: 2, Sequence: "CC"}},
			}}}, Score: 2},
		},
	}
	expect.True(t, m.HasPath())
	expect.True(t, m.IsBranching())
	expect.EQ(t, m.Starts(), []int{0, 1})
	expect.EQ(t, m.AlignmentScore(), int32(6))
	// The best walk is 1 -> 2.
	expect.EQ(t, m.ReadLength(), uint32(9))
	// Leading clips are 1 and 0, the trailing clip of the only sink is 2.
	expect.EQ(t, m.Softclip(), uint32(2))
	expect.EQ(t, m.CombinedMapQ(), uint32(7))

	m.Start = []uint32{0}
	expect.EQ(t, m.Starts(), []int{0})
	expect.EQ(t, m.AlignmentScore(), int32(5))
	expect.EQ(t, m.Softclip(), uint32(3))

	m.Sequence = "ACGTACGTACGT"
	expect.EQ(t, m.ReadLength(), uint32(12))
}

func TestMultipathConnections(t *testing.T) {
	m := &MultipathAlignment{
		Name: "m",
		Subpaths: []Subpath{
			{Path: Path{Mappings: []Mapping{match(1, 0, 2)}}, Next: []uint32{1}, Score: 2,
				Connections: []Connection{{Next: 2, Score: 5}}},
			{Path: Path{Mappings: []Mapping{match(2, 0, 2)}}, Score: 2},
			{Path: Path{Mappings: []Mapping{match(7, 0, 3)}}, Score: 3},
		},
	}
	expect.EQ(t, m.Starts(), []int{0})
	expect.EQ(t, m.AlignmentScore(), int32(10))
	expect.EQ(t, m.ReadLength(), uint32(5))
}

func TestMultipathMalformed(t *testing.T) {
	empty := &MultipathAlignment{Name: "e", Subpaths: []Subpath{{}}}
	expect.False(t, empty.HasPath())

	cyclic := &MultipathAlignment{
		Name: "c",
		Subpaths: []Subpath{
			{Path: Path{Mappings: []Mapping{match(1, 0, 2)}}, Next: []uint32{1}},
			{Path: Path{Mappings: []Mapping{match(2, 0, 2)}}, Next: []uint32{0}},
		},
	}
	assert.Panics(t, func() { cyclic.AlignmentScore() })

	badStart := &MultipathAlignment{
		Name:     "s",
		Start:    []uint32{3},
		Subpaths: []Subpath{{Path: Path{Mappings: []Mapping{match(1, 0, 2)}}}},
	}
	assert.Panics(t, func() { badStart.Starts() })

	noPos := Mapping{Edits: []Edit{{FromLength: 1, ToLength: 1}}}
	assert.Panics(t, func() { noPos.Pos() })
}
