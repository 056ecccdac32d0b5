package eventlog

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestAppend_OrderAndSequence(t *testing.T) {
	t.Parallel()

	l := New()
	l.AppendClient("session.update", map[string]string{"type": "session.update"})
	l.AppendServer("session.created", json.RawMessage(`{"type":"session.created"}`))
	l.AppendClient("response.create (trigger response)", nil)

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ID != uint64(i+1) {
			t.Errorf("entry %d: want ID %d, got %d", i, i+1, e.ID)
		}
	}
	if entries[0].Direction != DirClient || entries[1].Direction != DirServer {
		t.Errorf("directions not preserved: %v %v", entries[0].Direction, entries[1].Direction)
	}
	if entries[2].EventName != "response.create (trigger response)" {
		t.Errorf("annotation suffix lost: %q", entries[2].EventName)
	}
}

func TestAppend_EvictsOldestButKeepsSequence(t *testing.T) {
	t.Parallel()

	l := New(WithMaxSize(5))
	for i := 0; i < 12; i++ {
		l.AppendServer(fmt.Sprintf("evt-%d", i), nil)
	}

	entries := l.Entries()
	if len(entries) != 5 {
		t.Fatalf("want 5 retained entries, got %d", len(entries))
	}
	if entries[0].ID != 8 || entries[4].ID != 12 {
		t.Errorf("want IDs 8..12, got %d..%d", entries[0].ID, entries[4].ID)
	}
	if l.LastID() != 12 {
		t.Errorf("LastID: want 12, got %d", l.LastID())
	}
}

func TestToggleExpand(t *testing.T) {
	t.Parallel()

	l := New(WithClock(func() time.Time { return time.Unix(0, 0) }))
	id := l.AppendServer("error", json.RawMessage(`{"type":"error"}`))

	if !l.ToggleExpand(id) {
		t.Fatal("ToggleExpand: entry not found")
	}
	if !l.Entries()[0].Expanded {
		t.Error("entry should be expanded after toggle")
	}
	if l.ToggleExpand(999) {
		t.Error("ToggleExpand should report false for unknown ID")
	}
}

func TestAppendClient_UnmarshalablePayloadStillLogged(t *testing.T) {
	t.Parallel()

	l := New()
	l.AppendClient("bad", func() {}) // functions cannot be marshalled

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].EventData != nil {
		t.Error("payload should be nil for unmarshalable value")
	}
}
