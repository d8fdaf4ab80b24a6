package quant

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/graphquant/fraglen"
	"github.com/grailbio/graphquant/pathfind"
	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/readprob"
	"github.com/grailbio/graphquant/vgpb"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// testIndex builds
//
//	A = 1+,2+,4+
//	B = 1+,3+,4+
//	C = 1+,2+
//	D = 5+
//
// with node lengths 1:4, 2:3, 3:3, 4:5, 5:2.
func testIndex(t *testing.T) *pathsindex.MemIndex {
	idx := pathsindex.NewMemIndex()
	for _, n := range []struct {
		id     uint64
		length uint32
	}{{1, 4}, {2, 3}, {3, 3}, {4, 5}, {5, 2}} {
		require.NoError(t, idx.AddNode(n.id, n.length))
	}
	for _, p := range []struct{ name, steps string }{
		{"A", "1+,2+,4+"}, {"B", "1+,3+,4+"}, {"C", "1+,2+"}, {"D", "5+"},
	} {
		steps, err := pathsindex.ParseSteps(p.steps)
		require.NoError(t, err)
		_, err = idx.AddPath(p.name, steps)
		require.NoError(t, err)
	}
	return idx
}

// nodeRead is a read that matches length bases of one node from offset.
func nodeRead(name string, node uint64, reverse bool, offset, length uint32) *vgpb.Alignment {
	return &vgpb.Alignment{
		Name:           name,
		Sequence:       strings.Repeat("A", int(length)),
		MappingQuality: 60,
		Score:          int32(length),
		Path: &vgpb.Path{Mappings: []vgpb.Mapping{{
			Position: &vgpb.Position{NodeID: node, Offset: offset, IsReverse: reverse},
			Edits:    []vgpb.Edit{{FromLength: length, ToLength: length}},
		}}},
	}
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Finder.MinBestScoreFilter = 0
	opts.Parallelism = 2
	return opts
}

func TestPathClusters(t *testing.T) {
	c := NewPathClusters(6)
	c.Union([]uint32{4, 1})
	c.Union([]uint32{2})
	c.Union([]uint32{5, 4})
	c.Union(nil)
	c.Finish()

	expect.EQ(t, c.NumClusters(), 4)
	expect.EQ(t, c.ClusterOf(0), 0)
	expect.EQ(t, c.ClusterOf(1), 1)
	expect.EQ(t, c.ClusterOf(5), 1)
	expect.EQ(t, c.ClusterOf(2), 2)
	expect.EQ(t, c.ClusterOf(3), 3)
	expect.EQ(t, c.Members(1), []uint32{1, 4, 5})
	expect.EQ(t, c.LocalIndex(1), map[uint32]int{1: 0, 4: 1, 5: 2})

	require.Panics(t, func() { c.Union([]uint32{0, 1}) })
	require.Panics(t, func() { NewPathClusters(2).Union([]uint32{2}) })
}

func TestRunSingleEnd(t *testing.T) {
	idx := testIndex(t)
	reads := []Read{
		{Name: "r1", Mate1: nodeRead("r1", 2, false, 0, 3)}, // A, C
		{Name: "r2", Mate1: nodeRead("r2", 3, false, 0, 3)}, // B
		{Name: "r3", Mate1: nodeRead("r3", 4, false, 0, 5)}, // A, B
		{Name: "r4", Mate1: nodeRead("r4", 2, false, 0, 3)}, // A, C
		{Name: "r5", Mate1: &vgpb.Alignment{Name: "r5"}},
		{Name: "r6", Mate1: nodeRead("r6", 5, false, 0, 2)}, // D
	}
	res, err := Run(context.Background(), idx, nil, reads, testOpts())
	assert.NoError(t, err)

	expect.EQ(t, res.Stats.Reads, 6)
	expect.EQ(t, res.Stats.Paired, 0)
	expect.EQ(t, res.Stats.Outcomes[pathfind.Found], 5)
	expect.EQ(t, res.Stats.Outcomes[pathfind.NoPath], 1)
	expect.EQ(t, res.Stats.CandidateSets, 4)
	expect.EQ(t, res.Stats.Clusters, 2)
	expect.EQ(t, res.Stats.Profiles, 4)

	assert.EQ(t, len(res.Clusters), 2)
	abc := res.Clusters[0]
	expect.EQ(t, abc.ID, 0)
	expect.EQ(t, abc.PathIDs, []uint32{0, 1, 2})
	expect.EQ(t, abc.Profiles.Len(), 3)
	expect.EQ(t, abc.Profiles.NumReads(), uint32(4))

	const noise = 1e-6
	for _, p := range []struct {
		probs []float64
		count uint32
	}{
		{[]float64{0.5, 0, 0.5}, 2},
		{[]float64{0, 1, 0}, 1},
		{[]float64{0.5, 0.5, 0}, 1},
	} {
		for i := range p.probs {
			p.probs[i] *= 1 - noise
		}
		key := &readprob.ReadPathProbabilities{Probs: p.probs, NoiseProb: noise, Precision: 1e-8}
		found := false
		abc.Profiles.Do(func(got *readprob.ReadPathProbabilities, count uint32) {
			if got.Equal(key) {
				found = true
				expect.EQ(t, count, p.count, "profile %v", key)
			}
		})
		expect.True(t, found, "missing profile %v", key)
	}

	d := res.Clusters[1]
	expect.EQ(t, d.PathIDs, []uint32{3})
	expect.EQ(t, d.Profiles.Len(), 1)
}

func TestRunPaired(t *testing.T) {
	idx := testIndex(t)
	dist, err := fraglen.New(9, 2)
	require.NoError(t, err)
	// Mate 1 on node 1, mate 2 on the reverse strand of the end of node 2 and
	// the start of node 4: only A holds both, with a fragment of 9.
	mate2 := &vgpb.Alignment{
		Name:           "p1",
		Sequence:       "AAAAA",
		MappingQuality: 60,
		Score:          5,
		Path: &vgpb.Path{Mappings: []vgpb.Mapping{
			{Position: &vgpb.Position{NodeID: 4, Offset: 3, IsReverse: true}, Edits: []vgpb.Edit{{FromLength: 2, ToLength: 2}}},
			{Position: &vgpb.Position{NodeID: 2, Offset: 0, IsReverse: true}, Edits: []vgpb.Edit{{FromLength: 3, ToLength: 3}}},
		}},
	}
	reads := []Read{{Name: "p1", Mate1: nodeRead("p1", 1, false, 0, 4), Mate2: mate2}}

	res, err := Run(context.Background(), idx, dist, reads, testOpts())
	assert.NoError(t, err)
	expect.EQ(t, res.Stats.Paired, 1)
	expect.EQ(t, res.Stats.Outcomes[pathfind.Found], 1)
	assert.EQ(t, len(res.Clusters), 1)
	expect.EQ(t, res.Clusters[0].PathIDs, []uint32{0})

	opts := testOpts()
	opts.Finder.MaxPairFragLength = 8
	res, err = Run(context.Background(), idx, dist, reads, opts)
	assert.NoError(t, err)
	expect.EQ(t, res.Stats.Outcomes[pathfind.Unpaired], 1)
	expect.EQ(t, len(res.Clusters), 0)

	_, err = Run(context.Background(), idx, nil, reads, testOpts())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fragment length distribution")
}

func TestRunInvalidOpts(t *testing.T) {
	idx := testIndex(t)
	opts := testOpts()
	opts.Precision = 0
	_, err := Run(context.Background(), idx, nil, nil, opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "precision")

	opts = testOpts()
	opts.Finder.LibraryType = "xx"
	_, err = Run(context.Background(), idx, nil, nil, opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "library type")
}

func TestRunPositional(t *testing.T) {
	idx := testIndex(t)
	opts := testOpts()
	opts.PositionalProbs = true
	// Node 1 is on A, B (length 12) and C (length 7).
	reads := []Read{{Name: "r1", Mate1: nodeRead("r1", 1, false, 0, 4)}}
	res, err := Run(context.Background(), idx, nil, reads, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(res.Clusters), 1)
	res.Clusters[0].Profiles.Do(func(p *readprob.ReadPathProbabilities, count uint32) {
		expect.EQ(t, count, uint32(1))
		expect.True(t, p.Probs[2] > p.Probs[0])
		expect.True(t, p.Probs[0] == p.Probs[1])
	})
}

func TestWriteProfiles(t *testing.T) {
	idx := testIndex(t)
	reads := []Read{
		{Name: "r2", Mate1: nodeRead("r2", 3, false, 0, 3)},
		{Name: "r6", Mate1: nodeRead("r6", 5, false, 0, 2)},
		{Name: "r7", Mate1: nodeRead("r7", 5, false, 0, 2)},
	}
	res, err := Run(context.Background(), idx, nil, reads, testOpts())
	assert.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(t, WriteProfiles(&buf, res, idx))
	expect.EQ(t, buf.String(), `#CLUSTER	PATHS	COUNT	NOISE	PROBS
1	B	1	1e-06	0.999999
3	D	2	1e-06	0.999999
`)
}

func TestLoadOpts(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpDir, "opts.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
finder:
  library_type: rf
  max_pair_frag_length: 500
positional_probs: true
`), 0644))

	opts, err := LoadOpts(context.Background(), path, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, opts.Finder.LibraryType, pathfind.RF)
	expect.EQ(t, opts.Finder.MaxPairFragLength, uint32(500))
	expect.EQ(t, opts.Finder.MinBestScoreFilter, DefaultOpts.Finder.MinBestScoreFilter)
	expect.True(t, opts.PositionalProbs)
	expect.EQ(t, opts.ScoreLogBase, DefaultOpts.ScoreLogBase)

	_, err = LoadOpts(context.Background(), filepath.Join(tmpDir, "missing.yaml"), DefaultOpts)
	require.Error(t, err)
}
