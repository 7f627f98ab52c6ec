package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo-cli/internal/model"
)

// SnapshotVersion is written into every saved snapshot.
const SnapshotVersion = 1

// ErrCorruptSnapshot marks a stored blob that is not a usable snapshot.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshot is the persisted session: todos, counter, view settings and UI state.
type Snapshot struct {
	Version int          `json:"version"`
	Todos   []model.Todo `json:"todos"`
	Filters model.Filter `json:"filters"`
	Sort    model.Sort   `json:"sort"`
	NextID  int          `json:"nextId"`

	// EditingID is the todo open in the edit form; CurrentTodo is its unsaved buffer.
	EditingID   *int         `json:"editingId"`
	CurrentTodo model.Fields `json:"currentTodo"`

	// ShowHistory is the todo whose history panel is open.
	ShowHistory         *int        `json:"showHistory"`
	CurrentHistoryIndex map[int]int `json:"currentHistoryIndex"`
}

//go:embed snapshot.schema.json
var snapshotSchemaJSON []byte

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     *jsonschema.Schema
	snapshotSchemaErr  error
)

func compiledSnapshotSchema() (*jsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		const url = "snapshot.schema.json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(snapshotSchemaJSON)); err != nil {
			snapshotSchemaErr = fmt.Errorf("snapshot schema: %w", err)
			return
		}
		snapshotSchema, snapshotSchemaErr = compiler.Compile(url)
	})
	return snapshotSchema, snapshotSchemaErr
}

// EncodeSnapshot marshals st with the current version stamped in.
func EncodeSnapshot(st *Snapshot) ([]byte, error) {
	if st == nil {
		return nil, errors.New("nil snapshot")
	}
	out := *st
	out.Version = SnapshotVersion
	if out.Todos == nil {
		out.Todos = []model.Todo{}
	}
	if out.CurrentHistoryIndex == nil {
		out.CurrentHistoryIndex = map[int]int{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeSnapshot parses and validates b. Every failure wraps ErrCorruptSnapshot.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptSnapshot)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	schema, err := compiledSnapshotSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptSnapshot, schemaErrorSummary(err))
	}

	var st Snapshot
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := validateSnapshot(&st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	normalizeSnapshot(&st)
	return &st, nil
}

func validateSnapshot(st *Snapshot) error {
	seen := make(map[int]bool, len(st.Todos))
	for _, t := range st.Todos {
		if seen[t.ID] {
			return fmt.Errorf("duplicate todo id %d", t.ID)
		}
		seen[t.ID] = true
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("todo %d: blank title", t.ID)
		}
		if len(t.History) == 0 || t.History[0].Action != model.ActionCreated {
			return fmt.Errorf("todo %d: history must start with a created entry", t.ID)
		}
		for i := 1; i < len(t.History); i++ {
			if t.History[i].Timestamp.Before(t.History[i-1].Timestamp) {
				return fmt.Errorf("todo %d: history entry %d is older than the one before it", t.ID, i)
			}
		}
		last := normalizeFields(t.History[len(t.History)-1].Data)
		if last != normalizeFields(t.Fields()) {
			return fmt.Errorf("todo %d: last history entry does not match the todo", t.ID)
		}
	}
	if v := strings.TrimSpace(st.Filters.Status); v != "" && v != model.FilterAll && !model.Status(v).Valid() {
		return fmt.Errorf("invalid status filter %q", v)
	}
	if v := strings.TrimSpace(st.Filters.Category); v != "" && v != model.FilterAll && !model.Category(v).Valid() {
		return fmt.Errorf("invalid category filter %q", v)
	}
	return nil
}

// normalizeFields applies the defaults a missing or unknown status or category loads as.
func normalizeFields(f model.Fields) model.Fields {
	if !f.Status.Valid() {
		f.Status = model.StatusIncomplete
	}
	if !f.Category.Valid() {
		f.Category = model.DefaultCategory
	}
	return f
}

// normalizeSnapshot fills defaults for fields older or hand-edited snapshots omit.
func normalizeSnapshot(st *Snapshot) {
	if st.Version == 0 {
		st.Version = SnapshotVersion
	}
	for i := range st.Todos {
		t := &st.Todos[i]
		if !t.Status.Valid() {
			t.Status = model.StatusIncomplete
		}
		if !t.Category.Valid() {
			t.Category = model.DefaultCategory
		}
		for j := range t.History {
			t.History[j].Data = normalizeFields(t.History[j].Data)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = t.History[0].Timestamp
		}
	}
	def := model.DefaultFilter()
	if strings.TrimSpace(st.Filters.Status) == "" {
		st.Filters.Status = def.Status
	}
	if strings.TrimSpace(st.Filters.Category) == "" {
		st.Filters.Category = def.Category
	}
	if st.Sort.By == "" {
		st.Sort.By = model.DefaultSort().By
	}
	if st.Sort.Direction == "" {
		st.Sort.Direction = model.DefaultSort().Direction
	}
	if st.CurrentHistoryIndex == nil {
		st.CurrentHistoryIndex = map[int]int{}
	}
}

func schemaErrorSummary(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}
