package types

import (
	"encoding/json"
	"fmt"
)

type JobType string

const (
	JobDispatch JobType = "dispatch"
	JobResults  JobType = "results"
)

// Job is the unit of work persisted between invocations: either transfers to
// dispatch or an envelope to (re)confirm. Exactly one field is set.
type Job struct {
	Dispatch *DispatchRequest
	Results  *ResultEnvelope
}

func NewDispatchJob(req DispatchRequest) *Job {
	return &Job{Dispatch: &req}
}

func NewResultsJob(envelope ResultEnvelope) *Job {
	return &Job{Results: &envelope}
}

func (j *Job) Type() JobType {
	if j.Dispatch != nil {
		return JobDispatch
	}
	return JobResults
}

// Len is the number of items the job carries.
func (j *Job) Len() int {
	if j.Dispatch != nil {
		return len(j.Dispatch.Transfers)
	}
	if j.Results != nil {
		return len(j.Results.Results)
	}
	return 0
}

type jobJSON struct {
	Type JobType         `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (j Job) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case j.Dispatch != nil && j.Results != nil:
		return nil, fmt.Errorf("job has both transfers and results")
	case j.Dispatch != nil:
		data, err = json.Marshal(j.Dispatch)
	case j.Results != nil:
		data, err = json.Marshal(j.Results)
	default:
		return nil, fmt.Errorf("empty job")
	}

	if err != nil {
		return nil, err
	}

	return json.Marshal(jobJSON{Type: j.Type(), Data: data})
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var in jobJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	if len(in.Data) == 0 {
		return fmt.Errorf("%s job: missing data", in.Type)
	}

	switch in.Type {
	case JobDispatch:
		var req DispatchRequest
		if err := json.Unmarshal(in.Data, &req); err != nil {
			return fmt.Errorf("dispatch job: %w", err)
		}
		*j = Job{Dispatch: &req}
	case JobResults:
		var envelope ResultEnvelope
		if err := json.Unmarshal(in.Data, &envelope); err != nil {
			return fmt.Errorf("results job: %w", err)
		}
		*j = Job{Results: &envelope}
	default:
		return fmt.Errorf("unknown job type %q", in.Type)
	}

	return nil
}
