package format

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type row struct {
	ID        int               `json:"id"`
	DueDate   string            `json:"dueDate"`
	Done      bool              `json:"done"`
	CreatedAt time.Time         `json:"createdAt"`
	Cursors   map[int]int       `json:"cursors"`
	Tags      []string          `json:"tags"`
	Extra     map[string]string `json:"extra"`
}

func TestWriteEDN(t *testing.T) {
	t.Parallel()

	v := Envelope{Data: row{
		ID:        7,
		DueDate:   "2024-01-02",
		Done:      true,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Cursors:   map[int]int{7: 1},
		Tags:      []string{},
		Extra:     nil,
	}}
	var buf bytes.Buffer
	if err := Write(&buf, v, "edn", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `{:data {:created-at #inst "2024-01-02T03:04:05.000Z" :cursors {7 1} :done true :due-date "2024-01-02" :extra nil :id 7 :tags []}}`
	if got != want {
		t.Fatalf("edn mismatch:\nwant: %s\ngot:  %s", want, got)
	}
}

func TestWriteJSON_Envelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: []int{1, 2}, Meta: map[string]int{"count": 2}}, "json", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, want := strings.TrimSpace(buf.String()), `{"data":[1,2],"meta":{"count":2}}`; got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if f, err := ParseFormat(""); err != nil || f != "json" {
		t.Fatalf("want json default, got %q (err=%v)", f, err)
	}
	if f, err := ParseFormat("EDN"); err != nil || f != "edn" {
		t.Fatalf("want edn, got %q (err=%v)", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatalf("expected error")
	}
	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
