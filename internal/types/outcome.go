package types

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindSent          Kind = "sent"
	KindSendFailed    Kind = "send_failed"
	KindConfirmed     Kind = "confirmed"
	KindIndeterminate Kind = "indeterminate"
	KindPollFailed    Kind = "poll_failed"
)

// Outcome is the recorded result of one transfer. The concrete types below
// are the only implementations.
type Outcome interface {
	Kind() Kind
	isOutcome()
}

// Sent means the node accepted the transaction.
type Sent struct {
	Signature string   `json:"signature"`
	Elapsed   Duration `json:"elapsed"`
}

// SendFailed means no signature was ever assigned. Absorbing.
type SendFailed struct {
	Reason string `json:"reason"`
}

// Confirmed holds the last confirmation level reported by the node. Err is
// set when the transaction landed but failed on chain.
type Confirmed struct {
	Signature string `json:"signature"`
	Status    string `json:"status"`
	Err       string `json:"error,omitempty"`
}

// Indeterminate means the last poll could not establish a status.
type Indeterminate struct {
	Signature string `json:"signature"`
	Details   string `json:"details"`
}

// PollFailed means the signature can never be polled. Absorbing.
type PollFailed struct {
	Signature string `json:"signature"`
	Reason    string `json:"reason"`
}

func (Sent) Kind() Kind          { return KindSent }
func (SendFailed) Kind() Kind    { return KindSendFailed }
func (Confirmed) Kind() Kind     { return KindConfirmed }
func (Indeterminate) Kind() Kind { return KindIndeterminate }
func (PollFailed) Kind() Kind    { return KindPollFailed }

func (Sent) isOutcome()          {}
func (SendFailed) isOutcome()    {}
func (Confirmed) isOutcome()     {}
func (Indeterminate) isOutcome() {}
func (PollFailed) isOutcome()    {}

// IsAbsorbing reports whether no later confirmation pass may change o.
func IsAbsorbing(o Outcome) bool {
	switch o.(type) {
	case SendFailed, PollFailed:
		return true
	}
	return false
}

// SignatureOf returns the transaction signature carried by o. SendFailed is
// the only outcome without one.
func SignatureOf(o Outcome) (string, bool) {
	switch v := o.(type) {
	case Sent:
		return v.Signature, true
	case Confirmed:
		return v.Signature, true
	case Indeterminate:
		return v.Signature, true
	case PollFailed:
		return v.Signature, true
	}
	return "", false
}

// Detail is the human readable part of o: failure reason, poll details or
// confirmation level.
func Detail(o Outcome) string {
	switch v := o.(type) {
	case Sent:
		return v.Elapsed.Std().String()
	case SendFailed:
		return v.Reason
	case Confirmed:
		if v.Err != "" {
			return v.Status + ": " + v.Err
		}
		return v.Status
	case Indeterminate:
		return v.Details
	case PollFailed:
		return v.Reason
	}
	return ""
}

type taggedOutcome struct {
	Status Kind            `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func MarshalOutcome(o Outcome) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("nil outcome")
	}

	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}

	return json.Marshal(taggedOutcome{Status: o.Kind(), Data: data})
}

func UnmarshalOutcome(data []byte) (Outcome, error) {
	var tagged taggedOutcome
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}

	var (
		o   Outcome
		err error
	)

	switch tagged.Status {
	case KindSent:
		var v Sent
		err = unmarshalData(tagged.Data, &v)
		o = v
	case KindSendFailed:
		var v SendFailed
		err = unmarshalData(tagged.Data, &v)
		o = v
	case KindConfirmed:
		var v Confirmed
		err = unmarshalData(tagged.Data, &v)
		o = v
	case KindIndeterminate:
		var v Indeterminate
		err = unmarshalData(tagged.Data, &v)
		o = v
	case KindPollFailed:
		var v PollFailed
		err = unmarshalData(tagged.Data, &v)
		o = v
	default:
		return nil, fmt.Errorf("unknown outcome status %q", tagged.Status)
	}

	if err != nil {
		return nil, fmt.Errorf("%s outcome: %w", tagged.Status, err)
	}

	return o, nil
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(data, v)
}
