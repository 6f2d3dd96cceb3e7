// Package qfn detects fine-pitch QFN paste patterns and regenerates
// their unprintable micro-apertures as print-safe slots. Detection is
// heuristic: elongated rectangular pads arranged as four symmetric rows
// around a center, scored against a confidence threshold. Coarse-pitch
// sides and non-QFN geometry pass through untouched.
package qfn

import (
	"math"
	"sort"

	"github.com/forgeworks/stencilforge/internal/geom"
)

// Params gate the pre-pass.
type Params struct {
	MinFeature  float64 // smallest printable web/slot width, mm
	Confidence  float64 // detection score required to regenerate
	MaxPadWidth float64 // pads wider than this are never QFN fingers
}

// Report describes a detection that led to regeneration.
type Report struct {
	Pads  int
	Score float64
}

// Regenerate returns the paste shape with any detected QFN replaced by
// print-safe geometry. The report is nil when nothing was detected or
// the score fell below the confidence threshold.
func Regenerate(paste geom.Shape, p Params) (geom.Shape, *Report) {
	polys := regionShapes(paste)
	if len(polys) == 0 {
		return paste, nil
	}
	pads := detectPads(polys, p)
	if pads == nil {
		return paste, nil
	}
	grp, score := buildGroup(pads, polys, p)
	if grp == nil || score < p.Confidence {
		return paste, nil
	}
	out := regenerate(grp, polys, p)
	if out == nil {
		return paste, nil
	}
	return out, &Report{Pads: len(grp.pads), Score: score}
}

// regionShapes splits the even-odd shape into one shape per connected
// region so each pad can be measured independently.
func regionShapes(s geom.Shape) []geom.Shape {
	regions := s.Regions()
	out := make([]geom.Shape, 0, len(regions))
	for _, reg := range regions {
		shape := geom.Shape{reg.Outer}
		shape = append(shape, reg.Holes...)
		out = append(out, shape)
	}
	return out
}

type pad struct {
	idx       int
	center    geom.Point
	angle     float64 // orientation of the long axis, radians in [0, pi)
	long      float64
	short     float64
	area      float64
	norm      geom.Point // center rotated into the package frame
	angleNorm float64
}

// detectPads keeps polygons that look like QFN fingers: nearly
// rectangular, elongated, and narrow. Fewer than 12 candidates is not a
// QFN.
func detectPads(polys []geom.Shape, p Params) []*pad {
	var pads []*pad
	for i, poly := range polys {
		rect, ok := geom.MinRotatedRect(poly[0])
		if !ok || rect.Area <= 0 || rect.Short <= 0 {
			continue
		}
		area := poly.Area()
		if area/rect.Area < 0.85 {
			continue
		}
		aspect := rect.Long / rect.Short
		if aspect < 1.2 || aspect > 6.0 {
			continue
		}
		if rect.Short > p.MaxPadWidth {
			continue
		}
		pads = append(pads, &pad{
			idx:    i,
			center: poly[0].Centroid(),
			angle:  rect.Angle,
			long:   rect.Long,
			short:  rect.Short,
			area:   area,
		})
	}
	if len(pads) < 12 {
		return nil
	}
	return pads
}

type row struct {
	pads  []*pad
	axis  byte // 'y': pads share a y coordinate, 'x': share an x
	coord float64
}

type group struct {
	top, bottom, left, right *row
	pads                     []*pad
	centerNorm               geom.Point
	centerPad                int // index into polys, -1 when absent
	globalAngle              float64
}

func buildGroup(pads []*pad, polys []geom.Shape, p Params) (*group, float64) {
	centers := make(geom.Ring, len(pads))
	for i, pd := range pads {
		centers[i] = pd.center
	}
	globalRect, ok := geom.MinRotatedRect(centers)
	if !ok {
		return nil, 0
	}
	globalAngle := globalRect.Angle
	for _, pd := range pads {
		pd.norm = rotatePoint(pd.center, -globalAngle)
		pd.angleNorm = normalizeAngle(pd.angle - globalAngle)
	}

	var horizontal, vertical []*pad
	for _, pd := range pads {
		switch {
		case pd.angleNorm <= math.Pi/6 || pd.angleNorm >= 5*math.Pi/6:
			horizontal = append(horizontal, pd)
		case pd.angleNorm >= math.Pi/3 && pd.angleNorm <= 2*math.Pi/3:
			vertical = append(vertical, pd)
		}
	}
	if len(horizontal) < 6 || len(vertical) < 6 {
		return nil, 0
	}

	horizRows := clusterRows(horizontal, 'y', p)
	vertRows := clusterRows(vertical, 'x', p)
	if len(horizRows) == 0 || len(vertRows) == 0 {
		return nil, 0
	}

	center := estimateCenter(pads)
	grp := pickSides(horizRows, vertRows, center)
	if grp == nil {
		return nil, 0
	}
	grp.centerPad = detectCenterPad(polys, center, pads, globalAngle)
	grp.globalAngle = globalAngle
	return grp, scoreGroup(grp)
}

// clusterRows groups pads whose cross-axis coordinate agrees within a
// tolerance derived from the pad width. Runs shorter than 3 pads are
// discarded.
func clusterRows(pads []*pad, axis byte, p Params) []*row {
	var widths []float64
	for _, pd := range pads {
		if pd.short > 0 {
			widths = append(widths, pd.short)
		}
	}
	if len(widths) == 0 {
		return nil
	}
	tol := math.Max(median(widths)*1.5, p.MinFeature*0.5)
	key := func(pd *pad) float64 {
		if axis == 'y' {
			return pd.norm.Y
		}
		return pd.norm.X
	}
	sorted := append([]*pad(nil), pads...)
	sort.Slice(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })

	var rows []*row
	var current []*pad
	last := math.NaN()
	for _, pd := range sorted {
		v := key(pd)
		if math.IsNaN(last) || math.Abs(v-last) <= tol {
			current = append(current, pd)
		} else {
			if len(current) >= 3 {
				rows = append(rows, makeRow(current, axis))
			}
			current = []*pad{pd}
		}
		last = v
	}
	if len(current) >= 3 {
		rows = append(rows, makeRow(current, axis))
	}
	return rows
}

func makeRow(pads []*pad, axis byte) *row {
	sorted := append([]*pad(nil), pads...)
	coords := make([]float64, len(pads))
	if axis == 'y' {
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].norm.X < sorted[j].norm.X })
		for i, pd := range pads {
			coords[i] = pd.norm.Y
		}
	} else {
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].norm.Y < sorted[j].norm.Y })
		for i, pd := range pads {
			coords[i] = pd.norm.X
		}
	}
	return &row{pads: sorted, axis: axis, coord: median(coords)}
}

func estimateCenter(pads []*pad) geom.Point {
	xs := make([]float64, len(pads))
	ys := make([]float64, len(pads))
	for i, pd := range pads {
		xs[i] = pd.norm.X
		ys[i] = pd.norm.Y
	}
	return geom.Point{X: median(xs), Y: median(ys)}
}

// pickSides takes the outermost row on each of the four sides and
// rejects groups whose side counts are too lopsided to be a package.
func pickSides(horizRows, vertRows []*row, center geom.Point) *group {
	if len(horizRows) < 2 || len(vertRows) < 2 {
		return nil
	}
	sort.Slice(horizRows, func(i, j int) bool { return horizRows[i].coord < horizRows[j].coord })
	sort.Slice(vertRows, func(i, j int) bool { return vertRows[i].coord < vertRows[j].coord })
	bottom, top := horizRows[0], horizRows[len(horizRows)-1]
	left, right := vertRows[0], vertRows[len(vertRows)-1]

	sides := []*row{top, right, bottom, left}
	minCount, maxCount := len(sides[0].pads), len(sides[0].pads)
	for _, s := range sides {
		if len(s.pads) < 3 {
			return nil
		}
		minCount = min(minCount, len(s.pads))
		maxCount = max(maxCount, len(s.pads))
	}
	if maxCount-minCount > max(2, int(0.3*float64(maxCount))) {
		return nil
	}
	var all []*pad
	for _, s := range sides {
		all = append(all, s.pads...)
	}
	return &group{top: top, bottom: bottom, left: left, right: right, pads: all, centerNorm: center, centerPad: -1}
}

// detectCenterPad looks for one polygon much larger than the fingers
// sitting near the package center.
func detectCenterPad(polys []geom.Shape, centerNorm geom.Point, pads []*pad, globalAngle float64) int {
	areas := make([]float64, len(pads))
	padIdx := make(map[int]bool, len(pads))
	for i, pd := range pads {
		areas[i] = pd.area
		padIdx[pd.idx] = true
	}
	areaMedian := median(areas)
	maxDist := math.Max(1.0, math.Sqrt(areaMedian)*4.0)

	best, bestArea := -1, 0.0
	for i, poly := range polys {
		if padIdx[i] {
			continue
		}
		area := poly.Area()
		if area < areaMedian*4.0 {
			continue
		}
		c := rotatePoint(poly[0].Centroid(), -globalAngle)
		if c.Dist(centerNorm) > maxDist {
			continue
		}
		if area > bestArea {
			bestArea = area
			best = i
		}
	}
	return best
}

// scoreGroup combines pitch regularity, width uniformity, and side
// symmetry into a single confidence in [0, 1].
func scoreGroup(grp *group) float64 {
	sides := []*row{grp.top, grp.bottom, grp.left, grp.right}
	var spacing []float64
	for _, s := range sides {
		spacing = append(spacing, scoreVariation(sidePitches(s), 0.2))
	}
	var scores []float64
	scores = append(scores, average(spacing))

	widths := make([]float64, len(grp.pads))
	for i, pd := range grp.pads {
		widths[i] = pd.short
	}
	scores = append(scores, scoreVariation(widths, 0.25))

	minCount, maxCount := len(sides[0].pads), len(sides[0].pads)
	for _, s := range sides {
		minCount = min(minCount, len(s.pads))
		maxCount = max(maxCount, len(s.pads))
	}
	scores = append(scores, math.Max(0, 1.0-float64(maxCount-minCount)/float64(maxCount)))
	scores = append(scores, 1.0)

	base := average(scores)
	if grp.centerPad >= 0 {
		base = math.Min(1.0, base+0.05)
	}
	return base
}

func sidePitches(s *row) []float64 {
	if len(s.pads) < 2 {
		return nil
	}
	coords := make([]float64, len(s.pads))
	for i, pd := range s.pads {
		if s.axis == 'y' {
			coords[i] = pd.norm.X
		} else {
			coords[i] = pd.norm.Y
		}
	}
	sort.Float64s(coords)
	pitches := make([]float64, len(coords)-1)
	for i := 1; i < len(coords); i++ {
		pitches[i-1] = coords[i] - coords[i-1]
	}
	return pitches
}

func scoreVariation(values []float64, targetCV float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	if mean <= 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean
	return math.Max(0, 1.0-cv/targetCV)
}

// regenerate rebuilds the paste: sides whose web (pitch minus pad
// width) is below the printable minimum are replaced with slots, the
// center pad becomes a windowpane grid, everything else is kept.
func regenerate(grp *group, polys []geom.Shape, p Params) geom.Shape {
	padIdx := make(map[int]bool, len(grp.pads))
	for _, pd := range grp.pads {
		padIdx[pd.idx] = true
	}
	var kept []geom.Shape
	for i, poly := range polys {
		if padIdx[i] || i == grp.centerPad {
			continue
		}
		kept = append(kept, poly)
	}

	for _, side := range []*row{grp.top, grp.bottom, grp.left, grp.right} {
		pitch, padWidth, ok := estimatePitchAndWidth(side)
		if !ok {
			return nil
		}
		if pitch-padWidth < p.MinFeature {
			slots := slotsForSide(side, grp, p.MinFeature)
			if len(slots) == 0 {
				return nil
			}
			kept = append(kept, slots...)
		} else {
			for _, pd := range side.pads {
				kept = append(kept, polys[pd.idx])
			}
		}
	}

	if grp.centerPad >= 0 {
		if windows := centerWindowpane(polys[grp.centerPad], grp, p.MinFeature); len(windows) > 0 {
			kept = append(kept, windows...)
		} else {
			kept = append(kept, polys[grp.centerPad])
		}
	}
	return geom.UnionAll(kept)
}

func estimatePitchAndWidth(side *row) (pitch, width float64, ok bool) {
	pitches := sidePitches(side)
	if len(pitches) == 0 {
		return 0, 0, false
	}
	widths := make([]float64, len(side.pads))
	for i, pd := range side.pads {
		widths[i] = pd.short
	}
	return median(pitches), median(widths), true
}

// slotsForSide replaces one row of fingers with 2 to 4 long slots
// spread over the row's span, biased slightly outward from the package
// center so the paste lands on the pad toes.
func slotsForSide(side *row, grp *group, minFeature float64) []geom.Shape {
	count := len(side.pads)
	slotCount := 4
	switch {
	case count <= 6:
		slotCount = 2
	case count <= 12:
		slotCount = 3
	}

	coords := make([]float64, len(side.pads))
	widths := make([]float64, len(side.pads))
	for i, pd := range side.pads {
		if side.axis == 'y' {
			coords[i] = pd.norm.X
		} else {
			coords[i] = pd.norm.Y
		}
		widths[i] = pd.short
	}
	coordMin, coordMax := coords[0], coords[0]
	for _, c := range coords {
		coordMin = math.Min(coordMin, c)
		coordMax = math.Max(coordMax, c)
	}
	span := coordMax - coordMin
	if span <= 0 {
		return nil
	}

	slotWidth := math.Max(minFeature, median(widths))
	slotLength := math.Max(2*slotWidth, math.Min(span*0.8, span))
	slotLength = math.Max(slotLength, span*0.6)

	outward := outwardSign(side, grp.centerNorm)
	bias := math.Min(0.3*slotWidth, 0.25)

	var slots []geom.Shape
	for i := 0; i < slotCount; i++ {
		t := (float64(i) + 0.5) / float64(slotCount)
		center := coordMin + t*span
		low := coordMin + slotLength/2
		high := coordMax - slotLength/2
		if high < low {
			center = (coordMin + coordMax) / 2
		} else {
			center = math.Max(low, math.Min(high, center))
		}
		var ring geom.Ring
		if side.axis == 'y' {
			ring = geom.RectRing(geom.Point{X: center, Y: side.coord + outward*bias}, slotLength, slotWidth)
		} else {
			ring = geom.RectRing(geom.Point{X: side.coord + outward*bias, Y: center}, slotWidth, slotLength)
		}
		slots = append(slots, geom.Shape{ring}.Rotate(grp.globalAngle, geom.Point{}))
	}
	return slots
}

func outwardSign(side *row, centerNorm geom.Point) float64 {
	ref := centerNorm.X
	if side.axis == 'y' {
		ref = centerNorm.Y
	}
	if side.coord > ref {
		return 1
	}
	return -1
}

// centerWindowpane splits the thermal pad into an N x N grid of windows
// covering roughly half the pad area, separated by printable webs.
func centerWindowpane(centerPad geom.Shape, grp *group, minFeature float64) []geom.Shape {
	rotated := centerPad.Rotate(-grp.globalAngle, geom.Point{})
	b := rotated.Bounds()
	width, height := b.Width(), b.Height()
	if width <= minFeature*2 || height <= minFeature*2 {
		return nil
	}
	cells := 4
	switch {
	case math.Min(width, height) < 3.0:
		cells = 2
	case math.Min(width, height) < 6.0:
		cells = 3
	}

	web := minFeature
	cellWMax := (width - float64(cells+1)*web) / float64(cells)
	cellHMax := (height - float64(cells+1)*web) / float64(cells)
	if cellWMax < minFeature || cellHMax < minFeature {
		return nil
	}

	targetArea := rotated.Area() * 0.5
	maxArea := cellWMax * cellHMax * float64(cells*cells)
	scale := math.Sqrt(math.Min(1.0, targetArea/maxArea))
	cellW := math.Max(minFeature, cellWMax*scale)
	cellH := math.Max(minFeature, cellHMax*scale)

	totalW := float64(cells)*cellW + float64(cells-1)*web
	totalH := float64(cells)*cellH + float64(cells-1)*web
	startX := (b.MinX+b.MaxX)/2 - totalW/2
	startY := (b.MinY+b.MaxY)/2 - totalH/2

	var windows []geom.Shape
	for r := 0; r < cells; r++ {
		for c := 0; c < cells; c++ {
			x0 := startX + float64(c)*(cellW+web)
			y0 := startY + float64(r)*(cellH+web)
			cell := geom.Shape{geom.RectRing(geom.Point{X: x0 + cellW/2, Y: y0 + cellH/2}, cellW, cellH)}
			win := geom.Intersection(cell, rotated)
			if win.IsEmpty() || win.Area() < minFeature*minFeature*0.5 {
				continue
			}
			windows = append(windows, win.Rotate(grp.globalAngle, geom.Point{}))
		}
	}
	return windows
}

func rotatePoint(p geom.Point, angle float64) geom.Point {
	c, s := math.Cos(angle), math.Sin(angle)
	return geom.Point{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c}
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	return a
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
