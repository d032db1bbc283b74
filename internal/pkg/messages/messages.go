package messages

import (
	"strings"
	"time"
)

// StoryMessage is the message going through broker
type StoryMessage struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// NewStoryMessage creates the message with id and owning user
func NewStoryMessage(id string, userID string) *StoryMessage {
	return &StoryMessage{ID: id, UserID: userID}
}

// InformMessage asks to notify the user about a terminal status
type InformMessage struct {
	StoryMessage
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// NewInformMessage creates an inform message
func NewInformMessage(id string, userID string, msgType string, at time.Time) *InformMessage {
	return &InformMessage{StoryMessage: StoryMessage{ID: id, UserID: userID}, Type: msgType, At: at}
}

// StoryKey makes the event/subscription key for a user scoped story
func StoryKey(userID string, id string) string {
	return userID + "/" + id
}

// ParseStoryKey splits the key back into userID and story id
func ParseStoryKey(key string) (string, string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}
