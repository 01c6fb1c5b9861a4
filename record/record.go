package record

import (
	"fmt"
	"sort"

	"github.com/lnmplang/lnmp/errs"
)

// Field is a single field assignment: a field identifier paired with a
// typed value.
type Field struct {
	FID   uint16
	Value Value
}

// Record is an ordered list of field assignments. Fields keep their
// insertion order until sorted; canonical form requires strictly ascending
// FIDs at every nesting level, which also rules out duplicates.
type Record struct {
	fields []Field
}

// New creates an empty record.
func New() *Record {
	return &Record{}
}

// FromFields creates a record over the given field slice without copying
// or sorting it. The caller keeps responsibility for canonical ordering.
func FromFields(fields []Field) *Record {
	return &Record{fields: fields}
}

// AddField appends a field assignment, preserving insertion order.
func (r *Record) AddField(fid uint16, v Value) {
	r.fields = append(r.fields, Field{FID: fid, Value: v})
}

// GetField returns the value of the first field with the given FID.
func (r *Record) GetField(fid uint16) (Value, bool) {
	for i := range r.fields {
		if r.fields[i].FID == fid {
			return r.fields[i].Value, true
		}
	}

	return Value{}, false
}

// RemoveField deletes every field with the given FID.
func (r *Record) RemoveField(fid uint16) {
	kept := r.fields[:0]
	for i := range r.fields {
		if r.fields[i].FID != fid {
			kept = append(kept, r.fields[i])
		}
	}
	r.fields = kept
}

// Fields returns the field list in insertion order. The slice is shared
// with the record; callers must not mutate it.
func (r *Record) Fields() []Field {
	return r.fields
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// SortedFields returns a copy of the fields stably sorted by ascending FID.
// The original insertion order is untouched.
func (r *Record) SortedFields() []Field {
	sorted := make([]Field, len(r.fields))
	copy(sorted, r.fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FID < sorted[j].FID
	})

	return sorted
}

// Sort reorders the fields in place into ascending FID order. The sort is
// stable, so duplicate FIDs keep their insertion order.
func (r *Record) Sort() {
	sort.SliceStable(r.fields, func(i, j int) bool {
		return r.fields[i].FID < r.fields[j].FID
	})
}

// Depth returns the nesting depth of the record: 0 when no field holds a
// nested value, otherwise the deepest field value.
func (r *Record) Depth() int {
	maxDepth := 0
	for i := range r.fields {
		if d := r.fields[i].Value.Depth(); d > maxDepth {
			maxDepth = d
		}
	}

	return maxDepth
}

// ValidateCanonical checks that FIDs are strictly ascending at this level
// and recursively inside every nested record. Uniqueness is scoped per
// level: the same FID may appear in a parent and its children.
func (r *Record) ValidateCanonical() error {
	for i := range r.fields {
		if i > 0 {
			prev, cur := r.fields[i-1].FID, r.fields[i].FID
			if prev == cur {
				return fmt.Errorf("%w: duplicate FID %d", errs.ErrCanonicalViolation, cur)
			}
			if prev > cur {
				return fmt.Errorf("%w: FID %d follows %d", errs.ErrCanonicalViolation, cur, prev)
			}
		}

		if err := validateCanonicalValue(r.fields[i].Value); err != nil {
			return err
		}
	}

	return nil
}

func validateCanonicalValue(v Value) error {
	if rec := v.Record(); rec != nil {
		return rec.ValidateCanonical()
	}
	for _, nested := range v.Records() {
		if err := nested.ValidateCanonical(); err != nil {
			return err
		}
	}

	return nil
}

// HasExtended reports whether any field, at any depth, holds a value whose
// type tag requires a version 0x05 frame.
func (r *Record) HasExtended() bool {
	for i := range r.fields {
		v := r.fields[i].Value
		if v.Tag().IsExtended() {
			return true
		}
	}

	return false
}

// Equal reports whether two records hold equal fields in the same order.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.fields) != len(other.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].FID != other.fields[i].FID {
			return false
		}
		if !r.fields[i].Value.Equal(other.fields[i].Value) {
			return false
		}
	}

	return true
}
