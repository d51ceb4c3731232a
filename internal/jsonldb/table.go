package jsonldb

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/maruel/ksid"
)

// currentVersion is the current version of the JSONL file format.
const currentVersion = "1.0"

// ErrNotFound is returned when no row has the requested ID.
var ErrNotFound = errors.New("row not found")

// Row is implemented by every type stored in a [Table].
type Row[T any] interface {
	Clone() T
	GetID() ksid.ID
}

// TableObserver is notified after each committed mutation.
//
// Callbacks run with the table write lock held and must not call back into
// the table.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// schemaHeader is the first line of a JSONL file.
type schemaHeader struct {
	Version string             `json:"version"`
	Schema  *jsonschema.Schema `json:"schema,omitempty"`
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Row[T]] struct {
	path   string
	schema *jsonschema.Schema

	mu        sync.RWMutex
	rows      []T
	byID      map[ksid.ID]int
	observers []TableObserver[T]
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	table := &Table[T]{
		path:   path,
		schema: schemaFor[T](),
	}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

// Schema returns the JSON Schema of the row type, as written in the header.
func (t *Table[T]) Schema() *jsonschema.Schema {
	return t.schema
}

func schemaFor[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(reflect.TypeFor[T]())
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = nil
	t.byID = map[ksid.ID]int{}
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	// Rows can embed images as data URLs, so lines are not length limited.
	r := bufio.NewReader(f)
	first := true
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read table file %s: %w", t.path, err)
		}
		line = bytes.TrimSpace(line)
		if len(line) != 0 {
			if first {
				first = false
				var h schemaHeader
				if json.Unmarshal(line, &h) == nil && h.Version != "" {
					if h.Version != currentVersion {
						return fmt.Errorf("unsupported version %q in %s", h.Version, t.path)
					}
					if err == nil {
						continue
					}
					break
				}
			}
			var row T
			if err := json.Unmarshal(line, &row); err != nil {
				return fmt.Errorf("failed to unmarshal row %d in %s: %w", lineNo, t.path, err)
			}
			id := row.GetID()
			if id.IsZero() {
				return fmt.Errorf("row %d in %s has no id", lineNo, t.path)
			}
			if i, ok := t.byID[id]; ok {
				t.rows[i] = row
			} else {
				t.byID[id] = len(t.rows)
				t.rows = append(t.rows, row)
			}
		}
		if err != nil {
			break
		}
	}
	if !slices.IsSortedFunc(t.rows, compareRows[T]) {
		slices.SortStableFunc(t.rows, compareRows[T])
		t.reindex()
	}
	return nil
}

func compareRows[T Row[T]](a, b T) int {
	return cmp.Compare(a.GetID(), b.GetID())
}

func (t *Table[T]) reindex() {
	clear(t.byID)
	for i, row := range t.rows {
		t.byID[row.GetID()] = i
	}
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.byID[id]; ok {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows, in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// AddObserver registers o and replays every existing row to its OnAppend.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
	for _, row := range t.rows {
		o.OnAppend(row)
	}
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	id := row.GetID()
	if id.IsZero() {
		return errors.New("row id is required")
	}
	row = row.Clone()
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("duplicate row id %s", id)
	}
	if n := len(t.rows); n != 0 && t.rows[n-1].GetID() > id {
		// Out of order: keep the file sorted.
		i, _ := slices.BinarySearchFunc(t.rows, id, func(r T, id ksid.ID) int { return cmp.Compare(r.GetID(), id) })
		rows := slices.Insert(slices.Clone(t.rows), i, row)
		if err := t.save(rows); err != nil {
			return err
		}
		t.rows = rows
		t.reindex()
	} else {
		if err := t.appendLine(data); err != nil {
			return err
		}
		t.byID[id] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	for _, o := range t.observers {
		o.OnAppend(row)
	}
	return nil
}

func (t *Table[T]) appendLine(data []byte) error {
	header, err := t.headerLine()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat table file: %w", err)
	}
	var buf bytes.Buffer
	if st.Size() == 0 {
		buf.Write(header)
		buf.WriteByte('\n')
	}
	buf.Write(data)
	buf.WriteByte('\n')
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Update replaces the row with the same ID and persists the table. It returns
// the previous row.
func (t *Table[T]) Update(row T) (T, error) {
	var zero T
	row = row.Clone()
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[row.GetID()]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, row.GetID())
	}
	rows := slices.Clone(t.rows)
	prev := rows[i]
	rows[i] = row
	if err := t.save(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, row)
	}
	return prev, nil
}

// Modify applies fn to a clone of the row with the given ID and persists the
// result. The write lock is held for the whole read-modify-write.
func (t *Table[T]) Modify(id ksid.ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := t.rows[i]
	row := prev.Clone()
	if err := fn(row); err != nil {
		return zero, err
	}
	if row.GetID() != id {
		return zero, errors.New("row id cannot change")
	}
	rows := slices.Clone(t.rows)
	rows[i] = row
	if err := t.save(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, row)
	}
	return row.Clone(), nil
}

// Delete removes the row with the given ID and returns it.
func (t *Table[T]) Delete(id ksid.ID) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := t.rows[i]
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.save(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	t.reindex()
	for _, o := range t.observers {
		o.OnDelete(prev)
	}
	return prev, nil
}

func (t *Table[T]) headerLine() ([]byte, error) {
	data, err := json.Marshal(schemaHeader{Version: currentVersion, Schema: t.schema})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema header: %w", err)
	}
	return data, nil
}

// save atomically rewrites the whole file.
func (t *Table[T]) save(rows []T) error {
	header, err := t.headerLine()
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	tmp := f.Name()
	w := bufio.NewWriter(f)
	err = writeLines(w, header, rows)
	if err == nil {
		err = w.Flush()
	}
	if err2 := f.Close(); err == nil && err2 != nil {
		err = err2
	}
	if err == nil {
		err = os.Rename(tmp, t.path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write table file %s: %w", t.path, err)
	}
	return nil
}

func writeLines[T any](w *bufio.Writer, header []byte, rows []T) error {
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}
