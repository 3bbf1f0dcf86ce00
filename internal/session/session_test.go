package session

import (
	"strings"
	"testing"

	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionGeneratesID(t *testing.T) {
	sess := NewSession("")
	assert.NotEmpty(t, sess.ID)
	assert.Len(t, strings.Split(sess.ID, "-"), 3)

	named := NewSession("my-chat")
	assert.Equal(t, "my-chat", named.ID)
}

func TestAddTurnAndHistory(t *testing.T) {
	sess := NewSession("t")
	assert.False(t, sess.IsDirty())

	sess.AddTurn(&orchestrator.Turn{Sender: orchestrator.SenderUser, Text: "hi"})
	sess.AddTurn(&orchestrator.Turn{Sender: orchestrator.SenderAssistant, Text: "hello"})
	sess.AddTurn(nil)

	assert.True(t, sess.IsDirty())
	assert.Equal(t, 1, sess.UserTurnCount())

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Text)

	// The returned slice is a copy.
	history[0] = nil
	assert.NotNil(t, sess.History()[0])
}

func TestStorageRoundTrip(t *testing.T) {
	storage, err := NewStorageAt(t.TempDir())
	require.NoError(t, err)

	sess := NewSession("roundtrip")
	sess.SetTitle("cats discussion")
	sess.AddTurn(&orchestrator.Turn{ID: "1", Sender: orchestrator.SenderUser, Text: "cats?"})
	sess.AddTurn(&orchestrator.Turn{ID: "2", Sender: orchestrator.SenderAssistant, Text: "cats!", Model: "gemini-2.5-flash"})

	require.NoError(t, storage.Save(sess))
	assert.False(t, sess.IsDirty())

	loaded, err := storage.Load("roundtrip")
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.ID)
	assert.Equal(t, "cats discussion", loaded.Title)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, orchestrator.SenderAssistant, loaded.Turns[1].Sender)
	assert.Equal(t, "gemini-2.5-flash", loaded.Turns[1].Model)
}

func TestLoadOrCreate(t *testing.T) {
	storage, err := NewStorageAt(t.TempDir())
	require.NoError(t, err)

	fresh, err := storage.LoadOrCreate("brand-new")
	require.NoError(t, err)
	assert.Equal(t, "brand-new", fresh.ID)
	assert.Empty(t, fresh.Turns)

	fresh.AddTurn(&orchestrator.Turn{Sender: orchestrator.SenderUser, Text: "hi"})
	require.NoError(t, storage.Save(fresh))

	again, err := storage.LoadOrCreate("brand-new")
	require.NoError(t, err)
	assert.Len(t, again.Turns, 1)
}

func TestListSortsByRecency(t *testing.T) {
	storage, err := NewStorageAt(t.TempDir())
	require.NoError(t, err)

	older := NewSession("older")
	require.NoError(t, storage.Save(older))

	newer := NewSession("newer")
	newer.AddTurn(&orchestrator.Turn{Sender: orchestrator.SenderUser, Text: "x"})
	require.NoError(t, storage.Save(newer))

	list, err := storage.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, 1, list[0].TurnCount)
}

func TestDelete(t *testing.T) {
	storage, err := NewStorageAt(t.TempDir())
	require.NoError(t, err)

	sess := NewSession("doomed")
	require.NoError(t, storage.Save(sess))
	require.NoError(t, storage.Delete("doomed"))

	_, err = storage.Load("doomed")
	assert.Error(t, err)
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"has space", "has-space"},
		{"../escape", "..-escape"},
		{"", "session"},
		{"..", "session"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeID(tt.in))
	}
}
