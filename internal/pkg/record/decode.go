package record

import (
	"encoding/json"
)

// The upstream pipeline is inconsistent about transcript and feedback
// fields: depending on the revision that wrote the record they arrive as a
// plain string, a JSON-encoded string, or a structured object. The types
// below normalize once, at the store-read boundary. Consumers never decode
// these fields themselves.

// Transcript is the normalized transcript text
type Transcript struct {
	Text string
}

// UnmarshalJSON accepts "text", "\"json encoded text\"" and {"text": ...}
func (t *Transcript) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = transcriptFromString(s)
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err == nil {
		*t = transcriptFromMap(m)
		return nil
	}
	t.Text = ""
	return nil
}

// MarshalJSON writes the transcript as a plain string
func (t Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Text)
}

// TranscriptFrom normalizes a value read from the record store
func TranscriptFrom(v interface{}) Transcript {
	switch tv := v.(type) {
	case nil:
		return Transcript{}
	case string:
		return transcriptFromString(tv)
	case map[string]interface{}:
		return transcriptFromMap(tv)
	}
	return Transcript{}
}

func transcriptFromString(s string) Transcript {
	if s == "" {
		return Transcript{}
	}
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		return Transcript{Text: inner}
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return transcriptFromMap(m)
	}
	return Transcript{Text: s}
}

func transcriptFromMap(m map[string]interface{}) Transcript {
	if txt, ok := m["text"].(string); ok {
		return Transcript{Text: txt}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Transcript{}
	}
	return Transcript{Text: string(b)}
}

// Feedback is the analysis result. Either the structured fields or Text
// is set, never both
type Feedback struct {
	Structure string `json:"structure,omitempty"`
	Creative  string `json:"creative,omitempty"`
	Text      string `json:"-"`
}

// Structured indicates the feedback carries separate structure/creative notes
func (f Feedback) Structured() bool {
	return f.Structure != "" || f.Creative != ""
}

// Empty indicates no feedback at all
func (f Feedback) Empty() bool {
	return !f.Structured() && f.Text == ""
}

// UnmarshalJSON accepts "text", "\"{\"structure\"...}\"" and {"structure": ...}
func (f *Feedback) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = feedbackFromString(s)
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err == nil {
		*f = feedbackFromMap(m)
		return nil
	}
	*f = Feedback{}
	return nil
}

// MarshalJSON writes the structured object, or the plain string fallback
func (f Feedback) MarshalJSON() ([]byte, error) {
	if f.Structured() {
		type structured Feedback
		return json.Marshal(structured(f))
	}
	return json.Marshal(f.Text)
}

// FeedbackFrom normalizes a value read from the record store
func FeedbackFrom(v interface{}) Feedback {
	switch fv := v.(type) {
	case nil:
		return Feedback{}
	case string:
		return feedbackFromString(fv)
	case map[string]interface{}:
		return feedbackFromMap(fv)
	}
	return Feedback{}
}

func feedbackFromString(s string) Feedback {
	if s == "" {
		return Feedback{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return feedbackFromMap(m)
	}
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		return Feedback{Text: inner}
	}
	return Feedback{Text: s}
}

func feedbackFromMap(m map[string]interface{}) Feedback {
	res := Feedback{}
	if s, ok := m["structure"].(string); ok {
		res.Structure = s
	}
	if s, ok := m["creative"].(string); ok {
		res.Creative = s
	}
	if res.Structured() {
		return res
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Feedback{}
	}
	return Feedback{Text: string(b)}
}
