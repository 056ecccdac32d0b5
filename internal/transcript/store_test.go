package transcript

import (
	"testing"
	"time"
)

func TestAppendText_ConcatenatesDeltasInArrivalOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddMessage("item-1", RoleAssistant, "", false)
	for _, delta := range []string{"Hel", "lo", " the", "re"} {
		s.AppendText("item-1", RoleAssistant, delta)
	}

	item, ok := s.Get("item-1")
	if !ok {
		t.Fatal("item-1 missing")
	}
	if item.Title != "Hello there" {
		t.Errorf("want concatenated deltas, got %q", item.Title)
	}
	if item.Status != StatusInProgress {
		t.Errorf("status must stay IN_PROGRESS until finalized, got %v", item.Status)
	}
}

func TestAppendText_CreatesItemWhenAbsent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AppendText("late-item", RoleUser, "partial")

	item, ok := s.Get("late-item")
	if !ok {
		t.Fatal("delta before item-created event must create the item")
	}
	if item.Type != TypeMessage || item.Role != RoleUser || item.Title != "partial" {
		t.Errorf("unexpected item: %+v", item)
	}
}

func TestComplete_IsOneWay(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddMessage("m", RoleAssistant, "", false)
	s.Complete("m")

	item, _ := s.Get("m")
	if item.Status != StatusDone {
		t.Fatalf("want DONE, got %v", item.Status)
	}

	// Late amendments after DONE are legal for title and data, not status.
	s.SetText("m", "final transcript")
	s.AttachData("m", map[string]string{"k": "v"})
	item, _ = s.Get("m")
	if item.Status != StatusDone {
		t.Error("status reverted after amendment")
	}
	if item.Title != "final transcript" {
		t.Errorf("title not amended: %q", item.Title)
	}
	if item.Data == nil {
		t.Error("data not attached after DONE")
	}
}

func TestAddMessage_DuplicateIDIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddMessage("dup", RoleUser, "first", false)
	s.AddMessage("dup", RoleAssistant, "second", true)

	if s.Len() != 1 {
		t.Fatalf("want 1 item, got %d", s.Len())
	}
	item, _ := s.Get("dup")
	if item.Role != RoleUser || item.Title != "first" {
		t.Errorf("first insertion must win, got %+v", item)
	}
}

func TestItems_PreserveInsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddMessage("a", RoleUser, "hi", false)
	s.AddBreadcrumb("b", "function call: readScreenContent", nil)
	s.AddMessage("c", RoleAssistant, "", false)

	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if items[i].ItemID != id {
			t.Errorf("position %d: want %s, got %s", i, id, items[i].ItemID)
		}
	}
	if items[1].Status != StatusDone {
		t.Error("breadcrumbs are created DONE")
	}
}

func TestLastAssistantMessage(t *testing.T) {
	t.Parallel()

	now := time.Unix(100, 0)
	s := NewStore(WithClock(func() time.Time { return now }))

	if _, ok := s.LastAssistantMessage(); ok {
		t.Fatal("empty store must report no assistant message")
	}

	s.AddMessage("u1", RoleUser, "hello", false)
	s.AddMessage("a1", RoleAssistant, "", false)
	s.AddBreadcrumb("bc", "Agent: greeter", nil)
	s.AddMessage("a2", RoleAssistant, "", false)

	item, ok := s.LastAssistantMessage()
	if !ok || item.ItemID != "a2" {
		t.Fatalf("want a2, got %+v ok=%v", item, ok)
	}
	if !item.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt not taken from clock: %v", item.CreatedAt)
	}
}

func TestHiddenItemsStayInStore(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddMessage("ghost", RoleUser, "hi", true)

	item, ok := s.Get("ghost")
	if !ok || !item.Hidden {
		t.Fatalf("hidden item must remain retrievable: %+v ok=%v", item, ok)
	}
	if s.Len() != 1 {
		t.Error("hidden items count toward the ordered store")
	}
}

func TestToggleExpand(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.AddBreadcrumb("bc", "function call: selfOperateComputer", map[string]any{"command": "open chrome"})

	if !s.ToggleExpand("bc") {
		t.Fatal("ToggleExpand: item not found")
	}
	item, _ := s.Get("bc")
	if !item.Expanded {
		t.Error("item should be expanded")
	}
	if s.ToggleExpand("nope") {
		t.Error("unknown item must report false")
	}
}
