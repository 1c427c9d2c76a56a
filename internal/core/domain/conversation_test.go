package domain

import (
	"testing"
	"time"
)

func TestConversation_Append(t *testing.T) {
	conv := NewConversation("conv-1", "doc-1")
	if len(conv.Turns) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(conv.Turns))
	}

	before := conv.LastActiveAt
	time.Sleep(time.Millisecond)

	conv.Append(
		Turn{Role: RoleUser, Content: "what is chapter one about?", CreatedAt: time.Now()},
		Turn{Role: RoleAssistant, Content: "It introduces the topic.", CreatedAt: time.Now()},
	)

	if len(conv.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(conv.Turns))
	}
	if conv.Turns[0].Role != RoleUser || conv.Turns[1].Role != RoleAssistant {
		t.Error("expected user turn followed by assistant turn")
	}
	if !conv.LastActiveAt.After(before) {
		t.Error("expected LastActiveAt to advance on append")
	}

	last := conv.LastTurn()
	if last == nil || last.Role != RoleAssistant {
		t.Error("expected last turn to be the assistant answer")
	}
}

func TestConversation_LastTurnEmpty(t *testing.T) {
	conv := NewConversation("conv-1", "doc-1")
	if conv.LastTurn() != nil {
		t.Error("expected nil last turn for empty conversation")
	}
}
