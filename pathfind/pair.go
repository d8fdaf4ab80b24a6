package pathfind

// pairAlignmentPaths combines every surviving search path of mate 1 with every
// surviving search path of mate 2. A combination is kept for a path when both
// mates lie on it in an orientation allowed by the library type and the
// implied fragment is no longer than Opts.MaxPairFragLength. The paths are
// grouped by combined score and fragment length.
func (f *Finder) pairAlignmentPaths(searchPaths1, searchPaths2 []*AlignmentSearchPath) candidateGroups {
	ids2 := make([][]uint32, len(searchPaths2))
	for i, b := range searchPaths2 {
		ids2[i] = b.IDs()
	}
	groups := candidateGroups{}
	for _, a := range searchPaths1 {
		ids1 := a.IDs()
		for i, b := range searchPaths2 {
			if !intersects(ids1, ids2[i]) {
				continue
			}
			score := a.scoreSum + b.scoreSum
			for _, p1 := range a.positions {
				for _, p2 := range b.positions {
					if p1.pathID != p2.pathID {
						continue
					}
					fragLength, ok := f.fragmentLength(p1, p2)
					if !ok || fragLength > f.opts.MaxPairFragLength {
						continue
					}
					groups.add(score, fragLength, p1.pathID)
				}
			}
		}
	}
	return groups
}

// fragmentLength computes the fragment length implied by mate 1 at p1 and mate
// 2 at p2 on the same path. The mates must be on opposite strands, the forward
// mate must not start after the reverse mate, and the reverse mate must not end
// before the forward mate.
//
// REQUIRES: p1.pathID == p2.pathID
func (f *Finder) fragmentLength(p1, p2 pathPos) (uint32, bool) {
	if p1.reverse == p2.reverse {
		return 0, false
	}
	switch f.opts.LibraryType {
	case FR:
		if p1.reverse {
			return 0, false
		}
	case RF:
		if !p1.reverse {
			return 0, false
		}
	}
	up, down := p1, p2
	if up.reverse {
		up, down = p2, p1
	}
	// Convert the reverse mate to forward path coordinates.
	pathLength := f.index.PathLength(down.pathID)
	downStart, downEnd := pathLength-down.end, pathLength-down.start
	if downStart < up.start || downEnd < up.end {
		return 0, false
	}
	return downEnd - up.start, true
}
