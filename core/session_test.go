package core

import "testing"

func TestSession_MergeStateAndClone(t *testing.T) {
	s := NewSession("s1")

	delta := map[string]any{"a": 1, "b": "x"}

	s.MergeState(delta)
	if v, ok := s.GetState("a"); !ok || v.(int) != 1 {
		t.Fatalf("State not applied: %+v", s.State)
	}

	clone := s.Clone()
	if clone == s {
		t.Error("Clone should be a different pointer")
	}

	clone.SetState("c", 2)
	if _, exists := s.GetState("c"); exists {
		t.Error("Original should not have clone's new key")
	}
}

func TestSession_AddEventAndHistory(t *testing.T) {
	userEv := NewUserMessageEvent("run-123", "hi")
	assistantEv := NewMessageEvent("run-123", "assistant", "hello")

	s := NewSession("s2")
	s.AddEvent(assistantEv)
	s.AddEvent(userEv)

	all := s.GetEvents()
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}

	orig := all[0].Author
	all[0].Author = "changed"
	if s.GetEvents()[0].Author != orig {
		t.Error("events slice should be copied on read")
	}

	history := s.GetConversationHistory()
	foundUser := false
	for _, hev := range history {
		if hev.Content != nil && hev.Content.Role == "user" {
			foundUser = true
		}
	}
	if !foundUser {
		t.Error("expected user event in history")
	}
}

func TestSession_HistoryExcludesPartialsAndSystem(t *testing.T) {
	s := NewSession("s3")

	partial := true
	ev := NewMessageEvent("run", "agent", "strea")
	ev.Partial = &partial
	s.AddEvent(ev)

	sys := NewEvent("run", "system")
	sys.Content = &Content{Role: "system", Parts: []Part{TextPart{Text: "prompt"}}}
	s.AddEvent(sys)

	s.AddEvent(NewMessageEvent("run", "agent", "final"))

	history := s.GetConversationHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 history event, got %d", len(history))
	}
	if history[0].Text() != "final" {
		t.Errorf("unexpected history text %q", history[0].Text())
	}
}

func TestSession_LastMessageText(t *testing.T) {
	s := NewSession("s4")
	if s.LastMessageText() != "" {
		t.Error("empty session should yield empty last message")
	}

	s.AddEvent(NewUserMessageEvent("run", "first"))
	s.AddEvent(NewMessageEvent("run", "agent", "second"))

	if got := s.LastMessageText(); got != "second" {
		t.Errorf("LastMessageText() = %q, want %q", got, "second")
	}

	// Tool response events carry no text; the last text message still wins.
	s.AddEvent(NewFunctionResponseEvent("run", "agent", "fc1", "read_file", "data", nil))
	if got := s.LastMessageText(); got != "second" {
		t.Errorf("LastMessageText() after tool event = %q, want %q", got, "second")
	}
}
