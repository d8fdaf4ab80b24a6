// Package quant runs the path finder and the probability model over a batch of
// reads and groups the resulting probability profiles by path cluster.
package quant

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync/atomic"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/graphquant/fraglen"
	"github.com/grailbio/graphquant/pathfind"
	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/readprob"
	"github.com/grailbio/graphquant/vgpb"
	"gopkg.in/yaml.v3"
)

// Opts controls Run.
type Opts struct {
	// Finder are the path search options.
	Finder pathfind.Opts `yaml:"finder"`
	// ScoreLogBase converts alignment scores to log likelihoods.
	ScoreLogBase float64 `yaml:"score_log_base"`
	// Precision is the tolerance used to tell probability profiles apart.
	Precision float64 `yaml:"precision"`
	// PositionalProbs enables the path length correction.
	PositionalProbs bool `yaml:"positional_probs"`
	// Parallelism is the number of workers. Zero means runtime.NumCPU().
	Parallelism int `yaml:"parallelism"`
}

// DefaultOpts are the default options.
var DefaultOpts = Opts{
	Finder:          pathfind.DefaultOpts,
	ScoreLogBase:    1,
	Precision:       readprob.DefaultPrecision,
	PositionalProbs: false,
	Parallelism:     0,
}

// LoadOpts reads options from a YAML file. Fields missing from the file keep
// the values in base.
func LoadOpts(ctx context.Context, path string, base Opts) (opts Opts, err error) {
	opts = base
	in, err := file.Open(ctx, path)
	if err != nil {
		return opts, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if err = yaml.NewDecoder(in.Reader(ctx)).Decode(&opts); err != nil && err != io.EOF {
		return opts, errors.E(err, fmt.Sprintf("quant: parse options %s", path))
	}
	return opts, nil
}

// Read is one input unit: a single-end read, or a read pair when Mate2 is set.
type Read struct {
	Name  string
	Mate1 vgpb.Record
	Mate2 vgpb.Record
}

// Cluster holds the probability profiles of the reads whose candidates lie in
// one path cluster.
type Cluster struct {
	// ID is the cluster id in PathClusters.
	ID int
	// PathIDs are the paths of the cluster, in profile order.
	PathIDs []uint32
	// Profiles are the distinct profiles with their read counts.
	Profiles readprob.ProfileSet
}

// Result is the output of Run.
type Result struct {
	// Clusters are the clusters with at least one read, by increasing ID.
	Clusters []*Cluster
	Stats    Stats
}

// candidateSet is a distinct candidate list and the number of reads that
// produced it.
type candidateSet struct {
	paths       []pathfind.AlignmentPath
	isSingleEnd bool
	count       uint32
}

// Run computes the probability profiles of reads. fragDist may be nil if all
// reads are single-end.
func Run(ctx context.Context, index pathsindex.Index, fragDist fraglen.LogProber, reads []Read, opts Opts) (*Result, error) {
	finder, err := pathfind.NewFinder(index, opts.Finder)
	if err != nil {
		return nil, err
	}
	if !(opts.Precision > 0) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("quant: precision %v must be positive", opts.Precision))
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(reads) {
		parallelism = len(reads)
	}
	res := &Result{}
	for _, r := range reads {
		if r.Mate1 == nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("quant: read %s has no alignment", r.Name))
		}
		if r.Mate2 != nil {
			res.Stats.Paired++
			if fragDist == nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("quant: read pair %s needs a fragment length distribution", r.Name))
			}
		}
	}
	res.Stats.Reads = len(reads)

	// Pass 1: candidates of every read.
	log.Printf("quant: finding alignment paths for %d reads (%d jobs)", len(reads), parallelism)
	candidates := make([][]pathfind.AlignmentPath, len(reads))
	jobStats := make([]Stats, parallelism)
	var done int64
	err = traverse.Each(parallelism, func(jobIdx int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := (jobIdx * len(reads)) / parallelism
		end := ((jobIdx + 1) * len(reads)) / parallelism
		stats := &jobStats[jobIdx]
		for i := start; i < end; i++ {
			var outcome pathfind.Outcome
			if reads[i].Mate2 == nil {
				candidates[i], outcome = finder.FindAlignmentPathsWithOutcome(reads[i].Mate1)
			} else {
				candidates[i], outcome = finder.FindPairedAlignmentPathsWithOutcome(reads[i].Mate1, reads[i].Mate2)
			}
			stats.Outcomes[outcome]++
		}
		atomic.AddInt64(&done, int64(end-start))
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, s := range jobStats {
		res.Stats = res.Stats.Merge(s)
	}
	log.Debug.Printf("quant: searched %d reads", done)

	// Pass 2: collapse identical candidate lists and build the clusters.
	sets := groupCandidates(reads, candidates)
	res.Stats.CandidateSets = len(sets)
	clusters := NewPathClusters(index.NumPaths())
	var ids []uint32
	for _, set := range sets {
		ids = ids[:0]
		for _, ap := range set.paths {
			ids = append(ids, ap.IDs...)
		}
		clusters.Union(ids)
	}
	clusters.Finish()

	// Pass 3: probability profiles.
	profiles := make([]*readprob.ReadPathProbabilities, len(sets))
	setCluster := make([]int, len(sets))
	nJobs := parallelism
	if nJobs > len(sets) {
		nJobs = len(sets)
	}
	err = traverse.Each(nJobs, func(jobIdx int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := (jobIdx * len(sets)) / nJobs
		end := ((jobIdx + 1) * len(sets)) / nJobs
		for i := start; i < end; i++ {
			set := sets[i]
			cl := clusters.ClusterOf(set.paths[0].IDs[0])
			members := clusters.Members(cl)
			p := readprob.New(len(members), opts.ScoreLogBase, opts.Precision)
			p.CalcReadPathProbabilities(set.paths, clusters.LocalIndex(cl), fragDist, set.isSingleEnd)
			if opts.PositionalProbs {
				lengths := make([]float64, len(members))
				for j, id := range members {
					lengths[j] = float64(index.PathLength(id))
				}
				p.AddPositionalProbabilities(lengths)
			}
			profiles[i], setCluster[i] = p, cl
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*Cluster)
	for i, set := range sets {
		cl := setCluster[i]
		c, ok := byID[cl]
		if !ok {
			c = &Cluster{ID: cl, PathIDs: clusters.Members(cl)}
			byID[cl] = c
			res.Clusters = append(res.Clusters, c)
		}
		c.Profiles.Add(profiles[i], set.count)
	}
	sort.Slice(res.Clusters, func(i, j int) bool { return res.Clusters[i].ID < res.Clusters[j].ID })
	res.Stats.Clusters = len(res.Clusters)
	for _, c := range res.Clusters {
		res.Stats.Profiles += c.Profiles.Len()
	}
	log.Printf("quant: %v", res.Stats)
	return res, nil
}

// groupCandidates collapses reads with identical candidate lists, in order of
// first occurrence. Reads without candidates are skipped.
func groupCandidates(reads []Read, candidates [][]pathfind.AlignmentPath) []*candidateSet {
	var (
		sets   []*candidateSet
		byHash = make(map[uint64][]*candidateSet)
		buf    []byte
	)
	for i, paths := range candidates {
		if len(paths) == 0 {
			continue
		}
		isSingleEnd := reads[i].Mate2 == nil
		buf = encodeCandidates(buf[:0], paths, isSingleEnd)
		h := farm.Fingerprint64(buf)
		var match *candidateSet
		for _, s := range byHash[h] {
			if s.isSingleEnd == isSingleEnd && equalCandidates(s.paths, paths) {
				match = s
				break
			}
		}
		if match == nil {
			match = &candidateSet{paths: paths, isSingleEnd: isSingleEnd}
			byHash[h] = append(byHash[h], match)
			sets = append(sets, match)
		}
		match.count++
	}
	return sets
}

func encodeCandidates(buf []byte, paths []pathfind.AlignmentPath, isSingleEnd bool) []byte {
	var tmp [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	if isSingleEnd {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, ap := range paths {
		put(uint32(ap.ScoreSum))
		put(ap.MapqComb)
		put(ap.SeqLength)
		put(uint32(len(ap.IDs)))
		for _, id := range ap.IDs {
			put(id)
		}
	}
	return buf
}

func equalCandidates(a, b []pathfind.AlignmentPath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
