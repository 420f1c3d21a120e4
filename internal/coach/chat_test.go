package coach

import (
	"fmt"
	"testing"
	"time"

	"github.com/2beens/apexhq/internal/athlete"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat() *Chat {
	chat := NewChat()
	chat.NowFunc = func() time.Time { return testNow }
	counter := 0
	chat.NewIDFunc = func() string {
		counter++
		return fmt.Sprintf("msg-%d", counter)
	}
	return chat
}

func TestChat_Transcript(t *testing.T) {
	chat := newTestChat()
	boxerProfile := boxer().Profile

	messages := chat.Transcript(boxerProfile, 1)
	require.Len(t, messages, 1)
	assert.Equal(t, "welcome", messages[0].ID)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Contains(t, messages[0].Text, "Marcus")

	_, ok := chat.Append(boxerProfile, 1, RoleUser, "hi")
	require.True(t, ok)
	msg, ok := chat.Append(boxerProfile, 1, RoleAssistant, "hello")
	require.True(t, ok)
	assert.Equal(t, "msg-2", msg.ID)

	messages = chat.Transcript(boxerProfile, 1)
	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[1].Text)

	// the returned slice is a copy
	messages[1].Text = "changed"
	assert.Equal(t, "hi", chat.Transcript(boxerProfile, 1)[1].Text)
}

func TestChat_NewEpochStartsOver(t *testing.T) {
	chat := newTestChat()
	boxerProfile := boxer().Profile
	tennisProfile := athlete.DemoDocuments(testNow)[1].Profile

	_, ok := chat.Append(boxerProfile, 1, RoleUser, "hi")
	require.True(t, ok)

	messages := chat.Transcript(tennisProfile, 2)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Text, "Sarah")

	// a reply arriving for the previous athlete is dropped
	_, ok = chat.Append(boxerProfile, 1, RoleAssistant, "late reply")
	assert.False(t, ok)
	assert.Empty(t, chat.Transcript(boxerProfile, 1))
	assert.Len(t, chat.Transcript(tennisProfile, 2), 1)

	// same athlete again after logout/login is a fresh transcript too
	assert.Len(t, chat.Transcript(tennisProfile, 4), 1)

	_, ok = chat.Append(nil, 4, RoleUser, "nobody")
	assert.False(t, ok)
}
