package vgpb

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Scanner reads a stream of JSON encoded alignments, one object per record,
// as written by "vg view -aj" (linear) or "vg view -K -j" (multipath).
// Scanners are not threadsafe.
type Scanner struct {
	dec       *json.Decoder
	multipath bool
	rec       Record
	n         int
	err       error
}

// NewScanner creates a Scanner. If multipath is set, each object is decoded
// as a MultipathAlignment, otherwise as an Alignment.
func NewScanner(r io.Reader, multipath bool) *Scanner {
	return &Scanner{dec: json.NewDecoder(r), multipath: multipath}
}

// Scan reads the next record. It returns false at the end of the stream or on
// error; Err distinguishes the two. Once Scan returns false, it never returns
// true again.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	var err error
	if s.multipath {
		m := &MultipathAlignment{}
		err = s.dec.Decode(m)
		s.rec = m
	} else {
		a := &Alignment{}
		err = s.dec.Decode(a)
		s.rec = a
	}
	if err != nil {
		s.rec = nil
		if err == io.EOF {
			s.err = io.EOF
		} else {
			s.err = errors.Wrapf(err, "decode alignment record %d", s.n)
		}
		return false
	}
	s.n++
	return true
}

// Record returns the record read by the last successful Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the error that stopped the scan, or nil at a clean end of
// stream.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
