// Package fraglen models the distribution of fragment lengths of a paired-end
// library. Estimating the distribution is not done here.
package fraglen

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxSDs bounds the fragment lengths considered plausible: MaxLength is the
// mean plus MaxSDs standard deviations.
const MaxSDs = 10

// LogProber is the query interface the probability model uses.
type LogProber interface {
	// LogProb returns the natural log probability of a fragment length.
	LogProb(length uint32) float64
}

// Dist is a normal fragment-length distribution. Thread safe.
type Dist struct {
	normal distuv.Normal
}

var _ LogProber = (*Dist)(nil)

// New creates a distribution with the given mean and standard deviation.
func New(mean, sd float64) (*Dist, error) {
	if !(mean > 0) || !(sd > 0) || math.IsInf(mean, 0) || math.IsInf(sd, 0) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("fraglen: invalid mean %v, sd %v", mean, sd))
	}
	return &Dist{normal: distuv.Normal{Mu: mean, Sigma: sd}}, nil
}

// Mean returns the mean fragment length.
func (d *Dist) Mean() float64 { return d.normal.Mu }

// SD returns the standard deviation.
func (d *Dist) SD() float64 { return d.normal.Sigma }

// MaxLength returns the longest fragment considered plausible.
func (d *Dist) MaxLength() uint32 {
	return uint32(math.Ceil(d.normal.Mu + MaxSDs*d.normal.Sigma))
}

// LogProb implements LogProber.
func (d *Dist) LogProb(length uint32) float64 {
	return d.normal.LogProb(float64(length))
}

// String returns "mean:sd".
func (d *Dist) String() string {
	return fmt.Sprintf("%g:%g", d.normal.Mu, d.normal.Sigma)
}
