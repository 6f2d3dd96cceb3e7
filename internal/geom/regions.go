package geom

import "sort"

// Region is one filled area: an outer boundary plus the holes that lie
// inside it. Outer rings are normalized counter-clockwise and holes
// clockwise so downstream extrusion emits outward-facing side walls
// without special cases.
type Region struct {
	Outer Ring
	Holes []Ring
}

// Regions groups the shape's rings into outer/hole pairs by containment
// depth under the even-odd rule: rings at even nesting depth are outers,
// rings at odd depth are holes of their nearest enclosing outer.
func (s Shape) Regions() []Region {
	rings := make([]Ring, 0, len(s))
	for _, r := range s {
		if len(r) >= 3 && r.Area() > degenerateArea {
			rings = append(rings, r)
		}
	}
	if len(rings) == 0 {
		return nil
	}

	// Larger rings first so a ring's parent is always processed before it.
	sort.Slice(rings, func(i, j int) bool { return rings[i].Area() > rings[j].Area() })

	type node struct {
		ring   Ring
		depth  int
		parent int
	}
	nodes := make([]node, len(rings))
	for i, r := range rings {
		nodes[i] = node{ring: r, parent: -1}
		probe := r[0]
		for j := 0; j < i; j++ {
			if nodes[j].ring.Contains(probe) {
				// Deepest container seen so far wins.
				if nodes[i].parent == -1 || nodes[j].depth >= nodes[nodes[i].parent].depth {
					nodes[i].parent = j
				}
			}
		}
		if nodes[i].parent >= 0 {
			nodes[i].depth = nodes[nodes[i].parent].depth + 1
		}
	}

	regionIndex := make(map[int]int)
	var regions []Region
	for i, n := range nodes {
		if n.depth%2 == 0 {
			outer := n.ring.Clone()
			if outer.SignedArea() < 0 {
				outer.Reverse()
			}
			regionIndex[i] = len(regions)
			regions = append(regions, Region{Outer: outer})
		}
	}
	for _, n := range nodes {
		if n.depth%2 == 1 {
			// Walk up to the nearest even-depth ancestor.
			p := n.parent
			for p >= 0 && nodes[p].depth%2 != 0 {
				p = nodes[p].parent
			}
			if p < 0 {
				continue
			}
			hole := n.ring.Clone()
			if hole.SignedArea() > 0 {
				hole.Reverse()
			}
			ri := regionIndex[p]
			regions[ri].Holes = append(regions[ri].Holes, hole)
		}
	}
	return regions
}

// CountHoles returns the total number of hole rings across all regions.
func (s Shape) CountHoles() int {
	n := 0
	for _, reg := range s.Regions() {
		n += len(reg.Holes)
	}
	return n
}
