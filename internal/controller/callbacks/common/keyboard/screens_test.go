package keyboard

import (
	"testing"

	"github.com/Freeeeeet/tutor_match_bot/internal/controller/callbacks/callbacktypes"
	"github.com/Freeeeeet/tutor_match_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchKeyboard(t *testing.T) {
	student, tutor := uuid.New(), uuid.New()
	base := model.Match{ID: uuid.New(), StudentID: student, TutorID: tutor, Status: model.MatchStatusActive}

	t.Run("unconfirmed viewer gets accept and decline", func(t *testing.T) {
		m := base
		kb := Match(&m, student, "https://call/x")
		require.Len(t, kb.InlineKeyboard, 1)
		row := kb.InlineKeyboard[0]
		require.Len(t, row, 2)
		assert.Equal(t, callbacktypes.ConfirmMatch+m.ID.String(), row[0].CallbackData)
		assert.Equal(t, callbacktypes.CancelMatch+m.ID.String(), row[1].CallbackData)
	})

	t.Run("confirmed viewer can only cancel", func(t *testing.T) {
		m := base
		m.StudentConfirmed = true
		kb := Match(&m, student, "")
		require.Len(t, kb.InlineKeyboard, 1)
		assert.Equal(t, callbacktypes.CancelMatch+m.ID.String(), kb.InlineKeyboard[0][0].CallbackData)
	})

	t.Run("fully confirmed links the call", func(t *testing.T) {
		m := base
		m.StudentConfirmed, m.TutorConfirmed = true, true
		kb := Match(&m, tutor, "https://call/x")
		require.Len(t, kb.InlineKeyboard, 1)
		assert.Equal(t, "https://call/x", kb.InlineKeyboard[0][0].URL)
	})

	t.Run("fully confirmed without a room has no buttons", func(t *testing.T) {
		m := base
		m.StudentConfirmed, m.TutorConfirmed = true, true
		kb := Match(&m, tutor, "")
		require.NotNil(t, kb.InlineKeyboard)
		assert.Empty(t, kb.InlineKeyboard)
	})

	t.Run("closed match offers a new search", func(t *testing.T) {
		m := base
		m.Status = model.MatchStatusCancelled
		kb := Match(&m, tutor, "")
		assert.Equal(t, callbacktypes.FindMatch, kb.InlineKeyboard[0][0].CallbackData)
	})
}

func TestRoleKeyboard(t *testing.T) {
	kb := Role()
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "set_role:student", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "set_role:teacher", kb.InlineKeyboard[0][1].CallbackData)
}

func TestExtensionKeyboard(t *testing.T) {
	id := uuid.New()
	kb := Extension(id)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, callbacktypes.ExtensionAccept+id.String(), kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, callbacktypes.ExtensionDecline+id.String(), kb.InlineKeyboard[0][1].CallbackData)
}

func TestBuilderSkipsEmptyRows(t *testing.T) {
	kb := NewBuilder().
		Row().
		RowIf(false, Button("hidden", "x")).
		RowIf(true, CallButton("https://call/y")).
		Build()
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "https://call/y", kb.InlineKeyboard[0][0].URL)
}
