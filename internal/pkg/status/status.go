package status

// Status represents story processing status
type Status int

const (
	// Unknown is the zero value for unrecognized status strings
	Unknown Status = iota
	// Queued - shell record created, processing not started
	Queued
	// Transcribing - audio is being converted to text
	Transcribing
	// Analyzing - feedback is being generated from the transcript
	Analyzing
	// Ready - transcript and feedback are available
	Ready
	// Failed - processing stopped with an error
	Failed
)

var (
	statusName = map[Status]string{Queued: "queued", Transcribing: "transcribing",
		Analyzing: "analyzing", Ready: "ready", Failed: "failed"}
	nameStatus = map[string]Status{"queued": Queued, "transcribing": Transcribing,
		"analyzing": Analyzing, "ready": Ready, "failed": Failed}
)

// Name returns the wire value of the status
func Name(st Status) string {
	return statusName[st]
}

// From parses a wire value, Unknown for anything unrecognized
func From(st string) Status {
	return nameStatus[st]
}

// Terminal indicates no further transitions are expected
func Terminal(st Status) bool {
	return st == Ready || st == Failed
}
