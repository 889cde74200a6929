package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_InOrderChunks(t *testing.T) {
	acc := NewAccumulator()

	m, err := acc.Append("Hel")
	require.NoError(t, err)
	assert.Equal(t, "Hel", m.Content)
	assert.True(t, m.Streaming)

	m, err = acc.Append("lo")
	require.NoError(t, err)
	assert.Equal(t, "Hello", m.Content)
	assert.True(t, m.Streaming, "still streaming until completion is signalled")

	final := acc.Done()
	assert.Equal(t, "Hello", final.Content)
	assert.False(t, final.Streaming)
	assert.Equal(t, RoleAssistant, final.Role)
	assert.Equal(t, final, acc.Message())
}

func TestAccumulator_AppendAfterDone(t *testing.T) {
	acc := NewAccumulator()
	_, _ = acc.Append("a")
	acc.Done()

	m, err := acc.Append("b")
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Equal(t, "a", m.Content)
	assert.False(t, m.Streaming)
}

func TestAccumulator_Empty(t *testing.T) {
	acc := NewAccumulator()
	m := acc.Message()
	assert.Equal(t, "", m.Content)
	assert.True(t, m.Streaming)
}

func TestTranscript(t *testing.T) {
	out := Transcript([]Message{
		{Role: RoleUser, Content: " printer is offline "},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleAssistant, Content: "Have you restarted it?"},
	})
	assert.Equal(t, "user: printer is offline\nassistant: Have you restarted it?", out)
}
