package upload

// RecordKeeper stores the story record for an accepted upload.
// Ingest returns true when the audio for the ID was already taken in.
// A record existing as a client created shell is not a duplicate
type RecordKeeper interface {
	Ingest(userID string, id string, fields map[string]interface{}) (bool, error)
}
