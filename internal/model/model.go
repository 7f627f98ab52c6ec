package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

func (s Status) Valid() bool {
	return s == StatusIncomplete || s == StatusComplete
}

// Toggled returns the opposite status. Anything that is not complete toggles to complete.
func (s Status) Toggled() Status {
	if s == StatusComplete {
		return StatusIncomplete
	}
	return StatusComplete
}

func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incomplete", "todo", "open":
		return StatusIncomplete, nil
	case "complete", "done", "completed":
		return StatusComplete, nil
	default:
		return "", fmt.Errorf("invalid status: %q", s)
	}
}

type Category string

const (
	CategoryShopping  Category = "shopping"
	CategorySchool    Category = "school"
	CategoryHouseWork Category = "house work"
	CategoryPersonal  Category = "personal"
	CategoryWork      Category = "work"
	CategoryHealth    Category = "health"
	CategoryOther     Category = "other"
)

// DefaultCategory is preselected for new todos.
const DefaultCategory = CategoryPersonal

// Categories lists every category in display order.
var Categories = []Category{
	CategoryShopping,
	CategorySchool,
	CategoryHouseWork,
	CategoryPersonal,
	CategoryWork,
	CategoryHealth,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, x := range Categories {
		if x == c {
			return true
		}
	}
	return false
}

// Label is the capitalized display form ("House work").
func (c Category) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCategory accepts the canonical names plus "house-work"/"house_work"/"housework".
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	if norm == "housework" {
		norm = string(CategoryHouseWork)
	}
	c := Category(norm)
	if !c.Valid() {
		return "", fmt.Errorf("invalid category: %q", s)
	}
	return c, nil
}

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// Date is an optional calendar date (YYYY-MM-DD). The empty value means "no date".
//
// Persisted snapshots are untrusted, so a Date may hold text that does not parse;
// Time reports ok=false for both the empty and the unparsable case.
type Date string

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Date(t.Format(DateLayout)), nil
	}
	return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}

func (d Date) IsZero() bool { return strings.TrimSpace(string(d)) == "" }

func (d Date) Time() (time.Time, bool) {
	if d.IsZero() {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(string(d)))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Display formats the date like "Mon, Jan 2, 2006". Unparsable values are returned verbatim.
func (d Date) Display() string {
	t, ok := d.Time()
	if !ok {
		return string(d)
	}
	return t.Format("Mon, Jan 2, 2006")
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Fields are the user-visible fields of a todo. History entries and the edit buffer hold them by value.
type Fields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	DueDate     Date     `json:"dueDate"`
	Status      Status   `json:"status"`
}

type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Data      Fields    `json:"data"`
}

type Todo struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	DueDate     Date           `json:"dueDate"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	History     []HistoryEntry `json:"history"`
}

func (t Todo) Fields() Fields {
	return Fields{
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		DueDate:     t.DueDate,
		Status:      t.Status,
	}
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	out := t
	if t.History != nil {
		out.History = make([]HistoryEntry, len(t.History))
		copy(out.History, t.History)
	}
	return out
}

// Overdue reports whether t is incomplete and due strictly before the calendar day of now.
func (t Todo) Overdue(now time.Time) bool {
	if t.Status == StatusComplete {
		return false
	}
	due, ok := t.DueDate.Time()
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Category    *Category
	DueDate     *Date
	Status      *Status
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.DueDate == nil && p.Status == nil
}

// PatchFromFields builds a patch that sets every field.
func PatchFromFields(f Fields) Patch {
	return Patch{
		Title:       &f.Title,
		Description: &f.Description,
		Category:    &f.Category,
		DueDate:     &f.DueDate,
		Status:      &f.Status,
	}
}

// FilterAll disables the status or category predicate.
const FilterAll = "all"

type Filter struct {
	Text     string `json:"text"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

func DefaultFilter() Filter {
	return Filter{Text: "", Status: FilterAll, Category: FilterAll}
}

type FilterField string

const (
	FilterFieldText     FilterField = "text"
	FilterFieldStatus   FilterField = "status"
	FilterFieldCategory FilterField = "category"
)

func ParseFilterField(s string) (FilterField, error) {
	switch f := FilterField(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterFieldText, FilterFieldStatus, FilterFieldCategory:
		return f, nil
	default:
		return "", fmt.Errorf("invalid filter field: %q (expected text|status|category)", s)
	}
}

type SortField string

const (
	SortByDueDate SortField = "dueDate"
	SortByTitle   SortField = "title"
)

func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duedate", "due", "due-date", "due_date":
		return SortByDueDate, nil
	case "title":
		return SortByTitle, nil
	default:
		return "", fmt.Errorf("invalid sort field: %q (expected dueDate|title)", s)
	}
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Flipped() SortDirection {
	if d == SortDesc {
		return SortAsc
	}
	return SortDesc
}

type Sort struct {
	By        SortField     `json:"by"`
	Direction SortDirection `json:"direction"`
}

func DefaultSort() Sort {
	return Sort{By: SortByDueDate, Direction: SortAsc}
}
