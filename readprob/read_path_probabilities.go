// Package readprob turns the candidate placements of a read into a
// probability distribution over the paths of its cluster.
package readprob

import (
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/graphquant/fraglen"
	"github.com/grailbio/graphquant/pathfind"
	"gonum.org/v1/gonum/floats"
)

// DefaultPrecision is the default tolerance used to compare probabilities.
const DefaultPrecision = 1e-8

// ReadPathProbabilities is the probability profile of one read or read pair.
// Probs is indexed by clustered path index. NoiseProb is the mass attributed to
// the read being mismapped.
//
// INVARIANT: after a call that produces probabilities, the entries are
// non-negative and sum to 1-NoiseProb.
type ReadPathProbabilities struct {
	Probs     []float64
	NoiseProb float64

	// ScoreLogBase converts alignment scores to natural log likelihoods.
	ScoreLogBase float64
	// Precision is the tolerance used by Equal and Compare.
	Precision float64
}

// New creates an all-zero profile over numPaths clustered paths with
// NoiseProb=1.
func New(numPaths int, scoreLogBase, precision float64) *ReadPathProbabilities {
	return &ReadPathProbabilities{
		Probs:        make([]float64, numPaths),
		NoiseProb:    1,
		ScoreLogBase: scoreLogBase,
		Precision:    precision,
	}
}

// CalcReadPathProbabilities fills the profile from the candidate placements of
// a read.
//
// If the first candidate has mapping quality 0, only NoiseProb is set (to 1)
// and the vector stays all-zero. Otherwise each candidate gets the log weight
// ScoreLogBase*ScoreSum, plus the fragment length log probability for pairs,
// the weights are normalized with log-sum-exp, and each candidate's
// probability is written to the slot of every path it is tied to. A later
// candidate overwrites the slot of an earlier one. Finally the vector is
// rescaled to sum to 1-NoiseProb.
//
// REQUIRES: alignPaths is non-empty, every id is in clusteredPathIndex and
// len(clusteredPathIndex) == len(Probs). fragDist may be nil if isSingleEnd.
func (r *ReadPathProbabilities) CalcReadPathProbabilities(alignPaths []pathfind.AlignmentPath, clusteredPathIndex map[uint32]int, fragDist fraglen.LogProber, isSingleEnd bool) {
	if len(alignPaths) == 0 {
		log.Panicf("CalcReadPathProbabilities: no alignment paths")
	}
	if len(clusteredPathIndex) != len(r.Probs) {
		log.Panicf("CalcReadPathProbabilities: index has %d paths, vector has %d", len(clusteredPathIndex), len(r.Probs))
	}
	mapq := alignPaths[0].MapqComb
	r.NoiseProb = PhredToProb(float64(mapq))
	if mapq == 0 {
		return
	}
	if r.NoiseProb >= 1 {
		log.Panicf("CalcReadPathProbabilities: noise probability %v for mapq %d", r.NoiseProb, mapq)
	}

	logProbs := make([]float64, len(alignPaths))
	for i := range alignPaths {
		logProbs[i] = r.ScoreLogBase * float64(alignPaths[i].ScoreSum)
		if !isSingleEnd {
			logProbs[i] += fragDist.LogProb(alignPaths[i].SeqLength)
		}
	}
	logSum := floats.LogSumExp(logProbs)
	for i := range alignPaths {
		prob := math.Exp(logProbs[i] - logSum)
		for _, id := range alignPaths[i].IDs {
			idx, ok := clusteredPathIndex[id]
			if !ok {
				log.Panicf("CalcReadPathProbabilities: path %d not in cluster index", id)
			}
			r.Probs[idx] = prob
		}
	}
	r.rescale()
}

// AddPositionalProbabilities divides the probability of every path by its
// length, so that long paths are not favored only for offering more start
// positions, and renormalizes to 1-NoiseProb. Zero-length paths get
// probability 0. A profile with NoiseProb=1 is left unchanged.
//
// REQUIRES: len(pathLengths) == len(Probs).
func (r *ReadPathProbabilities) AddPositionalProbabilities(pathLengths []float64) {
	if len(pathLengths) != len(r.Probs) {
		log.Panicf("AddPositionalProbabilities: %d lengths for %d paths", len(pathLengths), len(r.Probs))
	}
	if r.NoiseProb >= 1 {
		return
	}
	for i, length := range pathLengths {
		if math.Abs(length) < r.Precision {
			r.Probs[i] = 0
		} else {
			r.Probs[i] /= length
		}
	}
	r.rescale()
}

// rescale makes the vector sum to 1-NoiseProb.
func (r *ReadPathProbabilities) rescale() {
	sum := floats.Sum(r.Probs)
	if !(sum > 0) || math.IsInf(sum, 0) {
		log.Panicf("rescale: probability sum %v", sum)
	}
	floats.Scale((1-r.NoiseProb)/sum, r.Probs)
}

// Equal reports whether NoiseProb and every entry differ by less than the
// receiver's Precision.
func (r *ReadPathProbabilities) Equal(other *ReadPathProbabilities) bool {
	return r.Compare(other) == 0 && len(r.Probs) == len(other.Probs)
}

// Compare orders profiles by NoiseProb, then by entries, treating values that
// differ by less than the receiver's Precision as equal. It returns -1, 0 or
// +1. Profiles of different lengths compare by length after their common
// prefix.
func (r *ReadPathProbabilities) Compare(other *ReadPathProbabilities) int {
	if c := r.compareValue(r.NoiseProb, other.NoiseProb); c != 0 {
		return c
	}
	for i := 0; i < len(r.Probs) && i < len(other.Probs); i++ {
		if c := r.compareValue(r.Probs[i], other.Probs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(r.Probs) < len(other.Probs):
		return -1
	case len(r.Probs) > len(other.Probs):
		return 1
	}
	return 0
}

func (r *ReadPathProbabilities) compareValue(a, b float64) int {
	if math.Abs(a-b) < r.Precision {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

// String returns "noise p0 p1 ...".
func (r *ReadPathProbabilities) String() string {
	buf := strings.Builder{}
	buf.WriteString(strconv.FormatFloat(r.NoiseProb, 'g', -1, 64))
	for _, p := range r.Probs {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
	}
	return buf.String()
}
