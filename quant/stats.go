package quant

import (
	"fmt"
	"strings"

	"github.com/grailbio/graphquant/pathfind"
)

// Stats summarizes a Run.
type Stats struct {
	// Reads is the number of reads or read pairs processed.
	Reads int
	// Paired is the number of read pairs among Reads.
	Paired int
	// Outcomes[o] counts the reads whose search ended with pathfind.Outcome o.
	Outcomes [pathfind.NumOutcomes]int
	// CandidateSets is the number of distinct candidate lists among the reads
	// with an outcome of pathfind.Found.
	CandidateSets int
	// Clusters is the number of path clusters with at least one read.
	Clusters int
	// Profiles is the number of distinct probability profiles over all clusters.
	Profiles int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	s.Paired += o.Paired
	for i, n := range o.Outcomes {
		s.Outcomes[i] += n
	}
	s.CandidateSets += o.CandidateSets
	s.Clusters += o.Clusters
	s.Profiles += o.Profiles
	return s
}

// String renders the stats on one line, for logging.
func (s Stats) String() string {
	buf := strings.Builder{}
	fmt.Fprintf(&buf, "reads:%d paired:%d", s.Reads, s.Paired)
	for i, n := range s.Outcomes {
		if n > 0 {
			fmt.Fprintf(&buf, " %v:%d", pathfind.Outcome(i), n)
		}
	}
	fmt.Fprintf(&buf, " candidate_sets:%d clusters:%d profiles:%d", s.CandidateSets, s.Clusters, s.Profiles)
	return buf.String()
}
