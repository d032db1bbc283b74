package rabbit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/welltold/storygo/internal/pkg/messages"
)

func TestGetBytes_Simple(t *testing.T) {
	m := messages.NewStoryMessage("id", "u1")
	b, err := getBytes(m)
	assert.Nil(t, err)
	assert.Equal(t, "{\"id\":\"id\",\"userId\":\"u1\"}", string(b))
}

func TestGetBytes_Bytes(t *testing.T) {
	b, err := getBytes([]byte("olia"))
	assert.Nil(t, err)
	assert.Equal(t, "olia", string(b))
}

func TestGetBytes_String(t *testing.T) {
	b, err := getBytes("olia")
	assert.Nil(t, err)
	assert.Equal(t, "olia", string(b))
}
