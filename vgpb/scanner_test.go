package vgpb

import (
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const linearJSON = `{"name": "r1", "sequence": "ACGTA", "quality": "Hh4eHh4=", "score": 5, "mapping_quality": 60,
 "path": {"mapping": [{"position": {"node_id": "12", "offset": 1}, "edit": [{"from_length": 3, "to_length": 3}], "rank": "1"},
                      {"position": {"node_id": "13", "is_reverse": true}, "edit": [{"from_length": 1, "to_length": 1, "sequence": "A"}, {"to_length": 1, "sequence": "C"}], "rank": "2"}]}}
{"name": "r2", "sequence": "AC"}
`

const multipathJSON = `{"name": "m1", "sequence": "ACGTACG", "mapping_quality": 30, "start": [0],
 "subpath": [{"path": {"mapping": [{"position": {"node_id": "1"}, "edit": [{"from_length": 4, "to_length": 4}]}]}, "next": [1, 2], "score": 4},
             {"path": {"mapping": [{"position": {"node_id": "2"}, "edit": [{"from_length": 3, "to_length": 3}]}]}, "score": 3},
             {"path": {"mapping": [{"position": {"node_id": "3"}, "edit": [{"from_length": 3, "to_length": 3}]}]}, "score": 1,
              "connection": [{"next": 1, "score": -2}]}]}
`

func TestScanLinear(t *testing.T) {
	s := NewScanner(strings.NewReader(linearJSON), false)
	require.True(t, s.Scan())
	a := s.Record().(*Alignment)
	expect.EQ(t, a.Name, "r1")
	expect.EQ(t, a.Quality, []byte{30, 30, 30, 30, 30})
	expect.EQ(t, a.Score, int32(5))
	expect.EQ(t, a.MappingQuality, uint32(60))
	assert.EQ(t, len(a.Path.Mappings), 2)
	expect.EQ(t, *a.Path.Mappings[0].Position, Position{NodeID: 12, Offset: 1})
	expect.EQ(t, a.Path.Mappings[0].Rank, int64(1))
	expect.EQ(t, *a.Path.Mappings[1].Position, Position{NodeID: 13, IsReverse: true})
	expect.True(t, a.Path.Mappings[1].Edits[0].IsMismatch())
	expect.True(t, a.Path.Mappings[1].Edits[1].IsInsertion())
	expect.EQ(t, a.Softclip(), uint32(1))

	require.True(t, s.Scan())
	expect.False(t, s.Record().HasPath())
	expect.EQ(t, s.Record().ReadLength(), uint32(2))

	expect.False(t, s.Scan())
	expect.NoError(t, s.Err())
	expect.False(t, s.Scan())
}

func TestScanMultipath(t *testing.T) {
	s := NewScanner(strings.NewReader(multipathJSON), true)
	require.True(t, s.Scan())
	m := s.Record().(*MultipathAlignment)
	expect.EQ(t, m.Name, "m1")
	expect.EQ(t, m.Start, []uint32{0})
	assert.EQ(t, len(m.Subpaths), 3)
	expect.EQ(t, m.Subpaths[0].Next, []uint32{1, 2})
	expect.EQ(t, m.Subpaths[2].Connections, []Connection{{Next: 1, Score: -2}})
	expect.EQ(t, m.AlignmentScore(), int32(7))
	expect.False(t, s.Scan())
	expect.NoError(t, s.Err())
}

func TestScanError(t *testing.T) {
	s := NewScanner(strings.NewReader(`{"name": "r1"} {"name": 3}`), false)
	require.True(t, s.Scan())
	expect.False(t, s.Scan())
	err := s.Err()
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), "record 1")
	expect.Nil(t, s.Record())
}
