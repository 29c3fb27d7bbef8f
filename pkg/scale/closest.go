package scale

import (
	"math"

	"github.com/recera/pivot/pkg/domain"
)

// MaxHoverDist is the default tolerance, in pixels, between the pointer and
// the segment it snaps to.
const MaxHoverDist = 50

// FindClosest returns the datum whose segment on field is closest to the
// pointer at px, or false when nothing qualifies.
//
// On a band scale the pointer selects the band it is over. On a continuous
// scale the candidates are the segments starting at or before the pointer,
// i.e. the one it is in and those it has passed; the winner is the candidate
// whose projected midpoint is nearest, first in iteration order on ties. A
// winner farther than tolerance pixels away is rejected so the hover does not
// jump across gaps in the data.
func FindClosest(data []domain.Datum, field string, s Scale, px, tolerance float64) (domain.Datum, bool) {
	if s == nil || len(data) == 0 {
		return domain.Datum{}, false
	}
	if b, ok := s.(*Band); ok {
		v := b.Invert(px)
		if v == nil {
			return domain.Datum{}, false
		}
		for _, d := range data {
			if dv, ok := d.Value(field); ok && domain.Key(dv) == domain.Key(v) {
				return d, true
			}
		}
		return domain.Datum{}, false
	}

	const eps = 1e-9
	best, bestDist := -1, math.Inf(1)
	for i, d := range data {
		v, ok := d.Value(field)
		if !ok {
			continue
		}
		start := s.Calculate(domain.Start(v))
		if math.IsNaN(start) || start > px+eps {
			continue
		}
		dist := math.Abs(Center(s, v) - px)
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 || bestDist > tolerance {
		return domain.Datum{}, false
	}
	return data[best], true
}

// FindClosestNested flattens one split level before searching, for datasets
// whose plotted segments live under the top-level datums.
func FindClosestNested(ds *domain.Dataset, field string, s Scale, px, tolerance float64) (domain.Datum, bool) {
	if ds.Depth() > 1 {
		return FindClosest(ds.Flatten(), field, s, px, tolerance)
	}
	if ds == nil {
		return domain.Datum{}, false
	}
	return FindClosest(ds.Data, field, s, px, tolerance)
}
