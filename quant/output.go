package quant

import (
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/graphquant/pathsindex"
	"github.com/grailbio/graphquant/readprob"
)

// WriteProfiles writes the profiles of res as a TSV, one line per distinct
// profile:
//
//	CLUSTER	PATHS	COUNT	NOISE	PROBS
//
// PATHS lists the path names of the cluster and PROBS the probability of each
// of them, both comma separated and in the same order.
func WriteProfiles(w io.Writer, res *Result, index pathsindex.Index) (err error) {
	out := tsv.NewWriter(w)
	out.WriteString("#CLUSTER\tPATHS\tCOUNT\tNOISE\tPROBS")
	if err = out.EndLine(); err != nil {
		return
	}
	var buf strings.Builder
	for _, c := range res.Clusters {
		buf.Reset()
		for i, id := range c.PathIDs {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(index.PathName(id))
		}
		names := buf.String()
		c.Profiles.Do(func(p *readprob.ReadPathProbabilities, count uint32) {
			if err != nil {
				return
			}
			out.WriteUint32(uint32(c.ID))
			out.WriteString(names)
			out.WriteUint32(count)
			out.WriteString(formatProb(p.NoiseProb))
			buf.Reset()
			for i, prob := range p.Probs {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(formatProb(prob))
			}
			out.WriteString(buf.String())
			err = out.EndLine()
		})
		if err != nil {
			return
		}
	}
	return out.Flush()
}

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'g', 6, 64)
}
