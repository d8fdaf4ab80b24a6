package pathfind

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// LibraryType describes the strandedness of a paired-end library relative to
// the reference paths.
type LibraryType string

const (
	// Unstranded libraries allow either mate on the forward strand of a path.
	Unstranded LibraryType = "unstranded"
	// FR libraries have mate 1 on the forward strand of the path.
	FR LibraryType = "fr"
	// RF libraries have mate 1 on the reverse strand of the path.
	RF LibraryType = "rf"
)

// Opts controls the alignment pre-filters and pairing.
type Opts struct {
	// LibraryType restricts the mate orientations accepted by pairing.
	LibraryType LibraryType `yaml:"library_type"`
	// MaxPairFragLength is the longest fragment accepted by pairing.
	MaxPairFragLength uint32 `yaml:"max_pair_frag_length"`

	// MinMapqFilter drops alignments with a lower mapping quality.
	MinMapqFilter uint32 `yaml:"min_mapq_filter"`
	// MinBestScoreFilter drops alignments whose score is below this fraction of
	// the optimal score.
	MinBestScoreFilter float64 `yaml:"min_best_score_filter"`
	// MaxSoftclipFilter drops alignments with a larger fraction of
	// soft-clipped bases.
	MaxSoftclipFilter float64 `yaml:"max_softclip_filter"`

	// MaxStartNodeOffset caps how deep into its first node an alignment may
	// start and still seed a search. Zero disables the cap.
	MaxStartNodeOffset uint32 `yaml:"max_start_node_offset"`

	// MatchScore and FullLengthBonus are the aligner's scoring parameters. The
	// optimal score of a read of length n is MatchScore*n + 2*FullLengthBonus.
	MatchScore      int32 `yaml:"match_score"`
	FullLengthBonus int32 `yaml:"full_length_bonus"`
}

// DefaultOpts are the default options. The scoring parameters match vg's
// defaults.
var DefaultOpts = Opts{
	LibraryType:        FR,
	MaxPairFragLength:  1000,
	MinMapqFilter:      0,
	MinBestScoreFilter: 0.9,
	MaxSoftclipFilter:  1,
	MaxStartNodeOffset: 0,
	MatchScore:         1,
	FullLengthBonus:    5,
}

// Validate checks the options.
func (o *Opts) Validate() error {
	switch o.LibraryType {
	case Unstranded, FR, RF:
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("pathfind: unknown library type '%s'", o.LibraryType))
	}
	if o.MinBestScoreFilter < 0 || o.MinBestScoreFilter > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("pathfind: min best score filter %v not in [0,1]", o.MinBestScoreFilter))
	}
	if o.MaxSoftclipFilter < 0 || o.MaxSoftclipFilter > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("pathfind: max softclip filter %v not in [0,1]", o.MaxSoftclipFilter))
	}
	if o.MatchScore <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("pathfind: match score %d must be positive", o.MatchScore))
	}
	if o.FullLengthBonus < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("pathfind: negative full length bonus %d", o.FullLengthBonus))
	}
	return nil
}
