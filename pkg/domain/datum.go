package domain

import (
	"math"
)

// SplitKey is the reserved field under which a datum carries the nested
// dataset of the next split level.
const SplitKey = "SPLIT"

// Field is one named cell of a datum. Value holds a domain Value for
// dimensions, a float64 for measures, or a *Dataset under SplitKey.
type Field struct {
	Name  string
	Value any
}

// Datum is one row of query output: an ordered field mapping.
// A Datum is immutable once built.
type Datum struct {
	fields []Field
	index  map[string]int
}

// NewDatum builds a datum preserving field order. A repeated name replaces
// the earlier value but keeps its position.
func NewDatum(fields ...Field) Datum {
	d := Datum{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if i, ok := d.index[f.Name]; ok {
			d.fields[i] = f
			continue
		}
		d.index[f.Name] = len(d.fields)
		d.fields = append(d.fields, f)
	}
	return d
}

// Fields returns a copy of the datum's fields in order
func (d Datum) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Get returns the raw field value
func (d Datum) Get(name string) (any, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.fields[i].Value, true
}

// Value returns a dimension value
func (d Datum) Value(name string) (Value, bool) {
	raw, ok := d.Get(name)
	if !ok {
		return nil, false
	}
	v, ok := raw.(Value)
	return v, ok
}

// Number returns a measure value. Missing or non-numeric fields report NaN.
func (d Datum) Number(name string) float64 {
	raw, ok := d.Get(name)
	if !ok {
		return math.NaN()
	}
	switch v := raw.(type) {
	case float64:
		return v
	case Number:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return math.NaN()
}

// Split returns the nested dataset of the next split level, if any
func (d Datum) Split() (*Dataset, bool) {
	raw, ok := d.Get(SplitKey)
	if !ok {
		return nil, false
	}
	ds, ok := raw.(*Dataset)
	return ds, ok && ds != nil
}

// Dataset is an ordered collection of datums, replaced wholesale on every
// query response.
type Dataset struct {
	Data []Datum
}

// NewDataset wraps datums into a dataset
func NewDataset(data ...Datum) *Dataset {
	return &Dataset{Data: data}
}

// Len returns the number of datums; nil datasets are empty
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Data)
}

// Depth returns how many nested split levels the first datum chain carries
func (ds *Dataset) Depth() int {
	depth := 0
	for cur := ds; cur.Len() > 0; depth++ {
		next, ok := cur.Data[0].Split()
		if !ok {
			return depth + 1
		}
		cur = next
	}
	return depth
}

// Flatten returns the datums of the next split level of every datum,
// concatenated in order. Datums without a nested split are skipped.
func (ds *Dataset) Flatten() []Datum {
	if ds == nil {
		return nil
	}
	var out []Datum
	for _, d := range ds.Data {
		if sub, ok := d.Split(); ok {
			out = append(out, sub.Data...)
		}
	}
	return out
}

// Values returns the dimension values of every datum for the given field,
// skipping datums that lack it.
func (ds *Dataset) Values(field string) []Value {
	if ds == nil {
		return nil
	}
	out := make([]Value, 0, len(ds.Data))
	for _, d := range ds.Data {
		if v, ok := d.Value(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// Extent returns the min and max of a measure across the dataset. Both are
// NaN when the dataset is empty or the measure is missing everywhere.
func (ds *Dataset) Extent(measure string) (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	if ds == nil {
		return
	}
	return extendExtent(ds.Data, measure, lo, hi)
}

// NestedExtent is Extent over the flattened next split level
func (ds *Dataset) NestedExtent(measure string) (lo, hi float64) {
	return extendExtent(ds.Flatten(), measure, math.NaN(), math.NaN())
}

func extendExtent(data []Datum, measure string, lo, hi float64) (float64, float64) {
	for _, d := range data {
		v := d.Number(measure)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < lo || math.IsNaN(lo) {
			lo = v
		}
		if v > hi || math.IsNaN(hi) {
			hi = v
		}
	}
	return lo, hi
}

// FindByValue returns the first datum whose field equals v
func (ds *Dataset) FindByValue(field string, v Value) (Datum, bool) {
	if ds == nil {
		return Datum{}, false
	}
	for _, d := range ds.Data {
		if dv, ok := d.Value(field); ok && ValuesEqual(dv, v) {
			return d, true
		}
	}
	return Datum{}, false
}
