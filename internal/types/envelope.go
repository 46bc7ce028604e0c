package types

import (
	"encoding/json"
	"fmt"
)

// ResultEnvelope holds one outcome per input item, in input order, together
// with the endpoint and batch size that produced it.
type ResultEnvelope struct {
	Endpoint  string
	BatchSize int
	Results   []Outcome
}

type envelopeJSON struct {
	Endpoint  string            `json:"endpoint"`
	BatchSize int               `json:"batch_size"`
	Results   []json.RawMessage `json:"results"`
}

func (e ResultEnvelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		Endpoint:  e.Endpoint,
		BatchSize: e.BatchSize,
		Results:   make([]json.RawMessage, len(e.Results)),
	}

	for i, o := range e.Results {
		data, err := MarshalOutcome(o)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out.Results[i] = data
	}

	return json.Marshal(out)
}

func (e *ResultEnvelope) UnmarshalJSON(data []byte) error {
	var in envelopeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	results := make([]Outcome, len(in.Results))
	for i, raw := range in.Results {
		o, err := UnmarshalOutcome(raw)
		if err != nil {
			return fmt.Errorf("result %d: %w", i, err)
		}
		results[i] = o
	}

	*e = ResultEnvelope{
		Endpoint:  in.Endpoint,
		BatchSize: in.BatchSize,
		Results:   results,
	}

	return nil
}

// Counts returns the number of outcomes per kind.
func (e ResultEnvelope) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, o := range e.Results {
		counts[o.Kind()]++
	}
	return counts
}
