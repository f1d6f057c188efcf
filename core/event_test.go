package core

import "testing"

func TestFoldConversation(t *testing.T) {
	initial := Conversation{NewUserMessage("task")}
	m1 := NewAssistantMessage("a", "one")
	m2 := NewAssistantMessage("b", "two")

	events := []Event{
		AgentUpdate{Participant: "a", MessageID: m1.ID, PartialText: "o"},
		AgentCompleted{Participant: "a", Message: m1},
		RequestInfo{RequestID: "r1"},
		AgentUpdate{Participant: "b", MessageID: m2.ID, PartialText: "t"},
		AgentCompleted{Participant: "b", Message: m2},
		Output{Conversation: Conversation{initial[0], m1, m2}},
	}

	got := FoldConversation(initial, events)
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[1].ID != m1.ID || got[2].ID != m2.ID {
		t.Fatalf("fold order mismatch: %v", got.Authors())
	}
	if len(initial) != 1 {
		t.Fatal("fold must not mutate the initial conversation")
	}
}

func TestEvent_RunAccessor(t *testing.T) {
	events := []Event{
		AgentUpdate{RunID: "r"},
		AgentCompleted{RunID: "r"},
		RequestInfo{RunID: "r"},
		Output{RunID: "r"},
	}
	for _, ev := range events {
		if ev.Run() != "r" {
			t.Errorf("%T.Run() = %q", ev, ev.Run())
		}
	}
}
