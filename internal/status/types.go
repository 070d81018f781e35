package status

import "encoding/json"

// Report is what a worker writes about its own last run.
type Report struct {
	Status     string   `json:"status"`
	LastRun    string   `json:"lastRun"`
	DurationMs int64    `json:"duration_ms"`
	Activity   []string `json:"activity"`
	ErrorCount int      `json:"errorCount"`
}

// Analytics are platform-side invocation metrics over the last 24 hours.
type Analytics struct {
	Invocations24h int64   `json:"invocations24h"`
	Errors24h      int64   `json:"errors24h"`
	AvgCPUMs       float64 `json:"avgCpuMs"`
}

// Entry is one worker's slot in the payload. Either half may be missing.
type Entry struct {
	SelfReport *Report    `json:"selfReport"`
	Analytics  *Analytics `json:"analytics"`
}

// UnmarshalJSON decodes leniently: a malformed half is dropped rather than
// failing the whole payload.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		SelfReport json.RawMessage `json:"selfReport"`
		Analytics  json.RawMessage `json:"analytics"`
	}
	*e = Entry{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	e.SelfReport = decodeOptional[Report](raw.SelfReport)
	e.Analytics = decodeOptional[Analytics](raw.Analytics)
	return nil
}

func decodeOptional[T any](raw json.RawMessage) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// Payload is the status snapshot served at /api/status.
type Payload struct {
	Workers   map[string]Entry `json:"workers"`
	Timestamp string           `json:"timestamp"`
}

// StatusOf returns the self-reported status string for a worker.
func (p *Payload) StatusOf(id string) (string, bool) {
	if p == nil {
		return "", false
	}
	e, ok := p.Workers[id]
	if !ok || e.SelfReport == nil {
		return "", false
	}
	return e.SelfReport.Status, true
}

// Decode parses a payload.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
