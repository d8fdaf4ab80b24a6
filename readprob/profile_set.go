package readprob

import "github.com/biogo/store/llrb"

// profileEntry is a ProfileSet tree node.
type profileEntry struct {
	profile *ReadPathProbabilities
	count   uint32
}

// Compare implements llrb.Comparable.
func (e *profileEntry) Compare(c llrb.Comparable) int {
	return e.profile.Compare(c.(*profileEntry).profile)
}

// ProfileSet groups equal profiles of one cluster and counts them. Profiles
// are visited in Compare order.
type ProfileSet struct {
	tree  llrb.Tree
	total uint32
}

// Add adds count reads with profile p. The set keeps p if it is new; the caller
// must not modify it afterwards.
func (s *ProfileSet) Add(p *ReadPathProbabilities, count uint32) {
	s.total += count
	key := &profileEntry{profile: p}
	if e := s.tree.Get(key); e != nil {
		e.(*profileEntry).count += count
		return
	}
	key.count = count
	s.tree.Insert(key)
}

// Len returns the number of distinct profiles.
func (s *ProfileSet) Len() int { return s.tree.Len() }

// NumReads returns the number of reads added.
func (s *ProfileSet) NumReads() uint32 { return s.total }

// Do calls fn for each distinct profile and its count in order.
func (s *ProfileSet) Do(fn func(p *ReadPathProbabilities, count uint32)) {
	s.tree.Do(func(c llrb.Comparable) bool {
		e := c.(*profileEntry)
		fn(e.profile, e.count)
		return false
	})
}
