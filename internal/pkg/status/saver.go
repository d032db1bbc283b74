package status

// Saver saves the story processing status
type Saver interface {
	Save(userID string, id string, st Status) error
	SaveError(userID string, id string, errorStr string) error
	SaveF(userID string, id string, set map[string]interface{}) error
}
