package readprob

import (
	"math"

	"github.com/grailbio/base/log"
	"github.com/grailbio/graphquant/vgpb"
)

// maxErrorProb caps the base error rate used for quality tables. Beyond it a
// mismatch would be more likely than a match.
const maxErrorProb = 0.75

// PhredToProb converts a phred score to an error probability.
func PhredToProb(phred float64) float64 {
	return math.Pow(10, -phred/10)
}

// ProbToPhred converts an error probability to a phred score. prob must be
// positive.
func ProbToPhred(prob float64) float64 {
	return -10 * math.Log10(prob)
}

// QualityProbs holds natural log probabilities indexed by phred base quality.
type QualityProbs struct {
	Match    []float64
	Mismatch []float64
}

// NewQualityProbs builds the match and mismatch tables for qualities
// [0,maxQual]. A base with error rate e matches with probability 1-e and
// becomes each of the three other bases with probability e/3.
func NewQualityProbs(maxQual int) QualityProbs {
	if maxQual < 0 {
		log.Panicf("NewQualityProbs: negative max quality %d", maxQual)
	}
	q := QualityProbs{
		Match:    make([]float64, maxQual+1),
		Mismatch: make([]float64, maxQual+1),
	}
	for i := range q.Match {
		e := math.Min(PhredToProb(float64(i)), maxErrorProb)
		q.Match[i] = math.Log1p(-e)
		q.Mismatch[i] = math.Log(e / 3)
	}
	return q
}

// CalcReadMappingProbabilities returns the log probability of the edit
// pattern of aln given its base qualities. Matched and mismatched bases
// contribute the match and mismatch entries for their quality; every inserted
// or deleted base contributes indelLogProb. The receiver is not modified.
//
// REQUIRES: aln.Quality covers every read base consumed by a match or a
// mismatch, and every quality indexes match and mismatch.
func (r *ReadPathProbabilities) CalcReadMappingProbabilities(aln *vgpb.Alignment, match, mismatch []float64, indelLogProb float64) float64 {
	if aln.Path == nil {
		return 0
	}
	var (
		logProb float64
		readPos uint32
	)
	qual := func(i uint32) int {
		if int(i) >= len(aln.Quality) {
			log.Panicf("%s: read position %d beyond %d base qualities", aln.Name, i, len(aln.Quality))
		}
		return int(aln.Quality[i])
	}
	for i := range aln.Path.Mappings {
		for _, e := range aln.Path.Mappings[i].Edits {
			switch {
			case e.IsMatch():
				for j := readPos; j < readPos+e.FromLength; j++ {
					logProb += match[qual(j)]
				}
			case e.IsMismatch():
				for j := readPos; j < readPos+e.FromLength; j++ {
					logProb += mismatch[qual(j)]
				}
			case e.IsInsertion():
				logProb += float64(e.ToLength) * indelLogProb
			case e.IsDeletion():
				logProb += float64(e.FromLength) * indelLogProb
			}
			readPos += e.ToLength
		}
	}
	return logProb
}
