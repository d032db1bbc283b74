package messages

const (
	// Process queue - new story submissions for the pipeline worker
	Process string = "Process"
	// Inform queue - terminal status notifications
	Inform string = "Inform"
	// StatusChange exchange - fanout of story status change events
	StatusChange string = "StatusChange"
)

const (
	// InformTypeReady - processing finished
	InformTypeReady string = "ready"
	// InformTypeFailed - processing failed
	InformTypeFailed string = "failed"
)
