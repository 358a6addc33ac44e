package lifecycle_test

import (
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/pkg/types"
)

func TestApplyTransitionNoOpWhenStateUnchanged(t *testing.T) {
	m := &types.Memory{State: types.StateActive}
	if lifecycle.ApplyTransition(m, types.StateActive, time.Now()) {
		t.Error("expected no transition when state is unchanged")
	}
	if m.Metadata != nil {
		t.Error("expected no transition log when state is unchanged")
	}
}

func TestApplyTransitionRecordsTransitionLog(t *testing.T) {
	m := &types.Memory{State: types.StateActive}
	now := time.Now()
	if !lifecycle.ApplyTransition(m, types.StateDormant, now) {
		t.Fatal("expected a transition to be recorded")
	}
	transitions, ok := m.Metadata["transitions"].([]interface{})
	if !ok || len(transitions) != 1 {
		t.Fatalf("expected one transition recorded, got %v", m.Metadata["transitions"])
	}
}

func TestApplyTransitionCompressesOnArchive(t *testing.T) {
	m := &types.Memory{
		State:   types.StateDormant,
		Type:    types.TypeFact,
		Content: map[string]interface{}{"text": "hello world"},
	}
	lifecycle.ApplyTransition(m, types.StateArchived, time.Now())
	if !m.IsCompressed {
		t.Error("expected entering archived to trigger compression")
	}
}

func TestApplyTransitionSkipsCompressionWhenAlreadyCompressed(t *testing.T) {
	m := &types.Memory{
		State: types.StateDormant, IsCompressed: true,
		Content: map[string]interface{}{"already": "compressed"},
	}
	lifecycle.ApplyTransition(m, types.StateArchived, time.Now())
	content, ok := m.Content.(map[string]interface{})
	if !ok || content["already"] != "compressed" {
		t.Error("expected content to be left alone when already compressed")
	}
}

func TestApplyTransitionSoftDeletesOnExpiry(t *testing.T) {
	m := &types.Memory{State: types.StateArchived}
	now := time.Now()
	lifecycle.ApplyTransition(m, types.StateExpired, now)
	if m.DeletedAt == nil || !m.DeletedAt.Equal(now) {
		t.Error("expected deleted_at to be set on entering expired")
	}
}
