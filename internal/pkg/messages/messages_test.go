package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewStoryMessage(t *testing.T) {
	m := NewStoryMessage("id1", "u1")
	assert.Equal(t, "id1", m.ID)
	assert.Equal(t, "u1", m.UserID)
}

func TestStoryMessage_JSON(t *testing.T) {
	b, err := json.Marshal(NewStoryMessage("id1", "u1"))
	assert.Nil(t, err)
	assert.Equal(t, `{"id":"id1","userId":"u1"}`, string(b))
}

func TestInformMessage_JSON(t *testing.T) {
	at := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	b, err := json.Marshal(NewInformMessage("id1", "u1", InformTypeReady, at))
	assert.Nil(t, err)

	var got InformMessage
	assert.Nil(t, json.Unmarshal(b, &got))
	assert.Equal(t, "id1", got.ID)
	assert.Equal(t, InformTypeReady, got.Type)
	assert.True(t, at.Equal(got.At))
}

func TestStoryKey(t *testing.T) {
	assert.Equal(t, "u1/id1", StoryKey("u1", "id1"))
}

func TestParseStoryKey(t *testing.T) {
	u, id := ParseStoryKey("u1/id1")
	assert.Equal(t, "u1", u)
	assert.Equal(t, "id1", id)

	u, id = ParseStoryKey("id1")
	assert.Equal(t, "", u)
	assert.Equal(t, "id1", id)
}
