package scale

import (
	"math"

	"github.com/recera/pivot/pkg/domain"
)

// Band is a discrete scale: it partitions [r0, r1] into one equal step per
// domain value. Values are looked up by their canonical key, so a time range
// rebuilt from a filter clause finds the same band as the one in the data.
type Band struct {
	values    []domain.Value
	index     map[string]int
	r0, r1    float64
	step      float64
	bandwidth float64
}

// NewBand builds a band scale. paddingInner is the fraction of every step
// left empty between adjacent bands, in [0, 1).
func NewBand(values []domain.Value, r0, r1, paddingInner float64) *Band {
	b := &Band{
		values: values,
		index:  make(map[string]int, len(values)),
		r0:     r0,
		r1:     r1,
	}
	for i, v := range values {
		k := domain.Key(v)
		if _, dup := b.index[k]; !dup {
			b.index[k] = i
		}
	}
	n := len(values)
	if n == 0 {
		return b
	}
	paddingInner = math.Max(0, math.Min(paddingInner, 0.95))
	b.step = math.Abs(r1-r0) / float64(n)
	b.bandwidth = math.Floor(b.step * (1 - paddingInner))
	if b.bandwidth <= 0 {
		// Narrower than a pixel: give up alignment rather than vanish
		b.bandwidth = b.step * (1 - paddingInner)
	}
	return b
}

// Len returns the number of bands
func (b *Band) Len() int {
	return len(b.values)
}

// Values returns the domain in band order
func (b *Band) Values() []domain.Value {
	return b.values
}

// Bandwidth returns the drawn width of each band
func (b *Band) Bandwidth() float64 {
	return b.bandwidth
}

// Step returns the distance between the starts of adjacent bands
func (b *Band) Step() float64 {
	return b.step
}

func (b *Band) Range() (lo, hi float64) {
	return b.r0, b.r1
}

// IndexOf returns the band index of v
func (b *Band) IndexOf(v domain.Value) (int, bool) {
	i, ok := b.index[domain.Key(v)]
	return i, ok
}

// Calculate returns the start offset of v's band, or NaN if v is not in the
// domain.
func (b *Band) Calculate(v domain.Value) float64 {
	i, ok := b.IndexOf(v)
	if !ok {
		return math.NaN()
	}
	return b.r0 + float64(i)*b.step
}

// Invert returns the value of the band containing px. Offsets outside the
// range snap to the first or last band; an empty domain inverts to nil.
func (b *Band) Invert(px float64) domain.Value {
	i, ok := b.indexAt(px)
	if !ok {
		return nil
	}
	return b.values[i]
}

func (b *Band) indexAt(px float64) (int, bool) {
	n := len(b.values)
	if n == 0 || b.step == 0 {
		return 0, false
	}
	i := int(math.Floor((px - b.r0) / b.step))
	if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	return i, true
}
