// Package batch provides the columnar batch evaluated by expression
// functions: an ordered set of named, typed column slots sharing one row
// count.
package batch

import (
	"fmt"
	"strings"

	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
)

// Entry is one column slot. Column is nil until a function writes it.
type Entry struct {
	Name   string
	Type   types.DataType
	Column series.Column
}

// Batch holds column slots in insertion order. The batch owns the columns
// stored in it and releases them in Release.
type Batch struct {
	entries []Entry
	index   map[string]int // name -> position, unnamed slots are not indexed
	rows    int
}

// New creates a batch whose row count is taken from the first column
func New(entries ...Entry) (*Batch, error) {
	rows := 0
	for _, e := range entries {
		if e.Column != nil {
			rows = e.Column.Len()
			break
		}
	}
	return NewWithRows(rows, entries...)
}

// NewWithRows creates a batch with an explicit row count. Every non-nil
// column must have exactly rows rows.
func NewWithRows(rows int, entries ...Entry) (*Batch, error) {
	b := &Batch{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
		rows:    rows,
	}
	for _, e := range entries {
		if _, err := b.Insert(e); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Rows returns the row count shared by every column
func (b *Batch) Rows() int { return b.rows }

// Width returns the number of slots
func (b *Batch) Width() int { return len(b.entries) }

// Entry returns the slot at pos
func (b *Batch) Entry(pos int) (Entry, error) {
	if pos < 0 || pos >= len(b.entries) {
		return Entry{}, errors.NewPositionError("batch", pos, len(b.entries))
	}
	return b.entries[pos], nil
}

// Column returns the column stored at pos
func (b *Batch) Column(pos int) (series.Column, error) {
	e, err := b.Entry(pos)
	if err != nil {
		return nil, err
	}
	if e.Column == nil {
		return nil, errors.NewIllegalTypeError("batch", fmt.Sprintf("column at position %d has not been computed", pos))
	}
	return e.Column, nil
}

// Type returns the declared type of the slot at pos
func (b *Batch) Type(pos int) (types.DataType, error) {
	e, err := b.Entry(pos)
	if err != nil {
		return nil, err
	}
	return e.Type, nil
}

// PositionOf returns the position of the named slot
func (b *Batch) PositionOf(name string) (int, bool) {
	pos, ok := b.index[name]
	return pos, ok
}

// Insert appends a slot and returns its position
func (b *Batch) Insert(e Entry) (int, error) {
	if e.Name != "" {
		if _, exists := b.index[e.Name]; exists {
			return 0, errors.NewIllegalTypeError("batch", fmt.Sprintf("duplicate column name %q", e.Name))
		}
	}
	if e.Column != nil && e.Column.Len() != b.rows {
		return 0, errors.NewMismatchedLengthError("batch", b.rows, e.Column.Len())
	}
	if e.Type == nil && e.Column != nil {
		return 0, errors.NewIllegalTypeError("batch", fmt.Sprintf("column %q has no type", e.Name))
	}

	pos := len(b.entries)
	b.entries = append(b.entries, e)
	if e.Name != "" {
		b.index[e.Name] = pos
	}
	return pos, nil
}

// SetColumn stores col at pos, taking ownership of it and releasing the
// column previously stored there
func (b *Batch) SetColumn(pos int, col series.Column) error {
	if pos < 0 || pos >= len(b.entries) {
		return errors.NewPositionError("batch", pos, len(b.entries))
	}
	if col.Len() != b.rows {
		return errors.NewMismatchedLengthError("batch", b.rows, col.Len())
	}
	if prev := b.entries[pos].Column; prev != nil {
		prev.Release()
	}
	b.entries[pos].Column = col
	return nil
}

// SetType declares the type of the slot at pos
func (b *Batch) SetType(pos int, t types.DataType) error {
	if pos < 0 || pos >= len(b.entries) {
		return errors.NewPositionError("batch", pos, len(b.entries))
	}
	b.entries[pos].Type = t
	return nil
}

// TakeColumn moves the column out of pos. The caller owns the result.
func (b *Batch) TakeColumn(pos int) (series.Column, error) {
	col, err := b.Column(pos)
	if err != nil {
		return nil, err
	}
	b.entries[pos].Column = nil
	return col, nil
}

// Clone returns a batch with the same slots sharing the same columns
func (b *Batch) Clone() *Batch {
	out := &Batch{
		entries: make([]Entry, len(b.entries)),
		index:   make(map[string]int, len(b.index)),
		rows:    b.rows,
	}
	copy(out.entries, b.entries)
	for name, pos := range b.index {
		out.index[name] = pos
	}
	for _, e := range out.entries {
		if e.Column != nil {
			e.Column.Retain()
		}
	}
	return out
}

// Names returns the slot names in order
func (b *Batch) Names() []string {
	names := make([]string, len(b.entries))
	for i, e := range b.entries {
		names[i] = e.Name
	}
	return names
}

// Schema returns the declared slot types in order
func (b *Batch) Schema() []types.DataType {
	ts := make([]types.DataType, len(b.entries))
	for i, e := range b.entries {
		ts[i] = e.Type
	}
	return ts
}

// Release releases every column held by the batch
func (b *Batch) Release() {
	for i := range b.entries {
		if b.entries[i].Column != nil {
			b.entries[i].Column.Release()
			b.entries[i].Column = nil
		}
	}
}

// String returns a string representation of the batch
func (b *Batch) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch[%d rows]{", b.rows)
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		typeName := "?"
		if e.Type != nil {
			typeName = e.Type.Name()
		}
		fmt.Fprintf(&sb, "%s %s", name, typeName)
	}
	sb.WriteString("}")
	return sb.String()
}
