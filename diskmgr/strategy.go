package diskmgr

import (
	"github.com/urbis/urbis/geom"
	"github.com/urbis/urbis/page"
	"github.com/urbis/urbis/pool"
)

// Strategy selects which track a new page is assigned to when a given
// centroid needs storage, per spec.md §4.H.
type Strategy int

const (
	// NearestTrack picks, among tracks with free capacity, the one whose
	// centroid is closest in Euclidean distance to the new page's.
	NearestTrack Strategy = iota

	// BestFit picks the track with free capacity whose extent expands
	// least (area delta) when the new centroid is folded in.
	BestFit

	// Sequential uses the most recently created track if it still has
	// capacity, else forces a new one.
	Sequential

	// NewTrack always creates a fresh track, never reusing one.
	NewTrack
)

// chooseTrack applies s to candidates (every track with free capacity, in
// ascending id order so ties resolve to the lower id) and returns the
// chosen track, or nil if none qualifies (the caller must create one).
func chooseTrack(s Strategy, candidates []*page.Track, centroid geom.Point) *page.Track {
	if len(candidates) == 0 {
		return nil
	}
	switch s {
	case NewTrack:
		return nil
	case Sequential:
		last := candidates[len(candidates)-1]
		for _, t := range candidates {
			if t.ID > last.ID {
				last = t
			}
		}
		return last
	case BestFit:
		var best *page.Track
		bestDelta := 0.0
		for _, t := range candidates {
			delta := expandedArea(t.Extent, centroid) - geom.Area(t.Extent)
			if best == nil || delta < bestDelta {
				best, bestDelta = t, delta
			}
		}
		return best
	default: // NearestTrack
		var best *page.Track
		bestDistSq := 0.0
		for _, t := range candidates {
			c := t.Centroid
			d := geom.DistanceSq(c, centroid)
			if best == nil || d < bestDistSq {
				best, bestDistSq = t, d
			}
		}
		return best
	}
}

func expandedArea(extent geom.MBR, p geom.Point) float64 {
	return geom.Area(geom.ExpandPoint(extent, p))
}

// candidateTracks returns every track in p with free page capacity, in
// ascending id order (the order pool.Tracks() already returns).
func candidateTracks(p *pool.Pool) []*page.Track {
	var out []*page.Track
	for _, t := range p.Tracks() {
		if !t.IsFull() {
			out = append(out, t)
		}
	}
	return out
}
