package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EcMarius/secprobe/pkg/probe"
)

type suiteJSON struct {
	Results         []probe.Record `json:"results"`
	Duration        float64        `json:"duration"`
	VulnerableCount int            `json:"vulnerable_count"`
	TotalCount      int            `json:"total_count"`
	Error           string         `json:"error,omitempty"`
}

type reportJSON struct {
	RunID      string        `json:"run_id"`
	Target     string        `json:"target"`
	Timestamp  time.Time     `json:"timestamp"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   float64       `json:"duration"`
	Summary    Summary       `json:"summary"`
	TestSuites orderedSuites `json:"test_suites"`
	Aborted    string        `json:"aborted,omitempty"`
}

// orderedSuites encodes as a JSON object whose keys keep execution order.
type orderedSuites []SuiteRun

func (o orderedSuites) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		records := s.Records
		if records == nil {
			records = []probe.Record{}
		}
		val, err := json.Marshal(suiteJSON{
			Results:         records,
			Duration:        s.Duration.Seconds(),
			VulnerableCount: s.VulnerableCount(),
			TotalCount:      s.TotalCount(),
			Error:           s.Error,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object in document order. A repeated key
// replaces the earlier value in place.
func (o *orderedSuites) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: test_suites is not an object", ErrInvalidReport)
	}

	index := map[string]int{}
	var out orderedSuites
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected key %v", ErrInvalidReport, tok)
		}
		var sj suiteJSON
		if err := dec.Decode(&sj); err != nil {
			return fmt.Errorf("suite %q: %w", name, err)
		}
		run := SuiteRun{
			Name:     name,
			Records:  sj.Results,
			Duration: time.Duration(sj.Duration * float64(time.Second)),
			Error:    sj.Error,
		}
		if i, dup := index[name]; dup {
			out[i] = run
			continue
		}
		index[name] = len(out)
		out = append(out, run)
	}
	*o = out
	return nil
}

// MarshalJSON writes the persisted run document.
func (r RunReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON{
		RunID:      r.RunID,
		Target:     r.Target,
		Timestamp:  r.FinishedAt,
		StartedAt:  r.StartedAt,
		Duration:   r.Duration().Seconds(),
		Summary:    r.Summary(),
		TestSuites: orderedSuites(r.Suites),
		Aborted:    r.Aborted,
	})
}

// UnmarshalJSON reads a persisted run document. Counts are recomputed from
// the records rather than trusted.
func (r *RunReport) UnmarshalJSON(data []byte) error {
	var rj reportJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	if rj.TestSuites == nil && rj.Target == "" {
		return ErrInvalidReport
	}
	started := rj.StartedAt
	if started.IsZero() {
		started = rj.Timestamp.Add(-time.Duration(rj.Duration * float64(time.Second)))
	}
	*r = RunReport{
		RunID:      rj.RunID,
		Target:     rj.Target,
		StartedAt:  started,
		FinishedAt: rj.Timestamp,
		Suites:     []SuiteRun(rj.TestSuites),
		Aborted:    rj.Aborted,
	}
	return nil
}
