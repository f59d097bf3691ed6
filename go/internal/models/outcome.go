package models

import (
	"encoding/json"
	"fmt"
)

// Outcome is the bruto score of a field: either still pending or finished with a value.
type Outcome struct {
	finished bool
	bruto    int64
}

// Pending returns an outcome for a player that has not been stopped yet.
func Pending() Outcome {
	return Outcome{}
}

// Finished returns an outcome carrying the bruto score.
func Finished(bruto int64) Outcome {
	return Outcome{finished: true, bruto: bruto}
}

// IsFinished reports whether a bruto score has been recorded.
func (o Outcome) IsFinished() bool {
	return o.finished
}

// Bruto returns the recorded bruto score and whether it exists.
func (o Outcome) Bruto() (int64, bool) {
	return o.bruto, o.finished
}

func (o Outcome) String() string {
	if !o.finished {
		return "pending"
	}
	return fmt.Sprintf("finished(%d)", o.bruto)
}

// MarshalJSON encodes a pending outcome as null and a finished one as its bruto score.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.finished {
		return []byte("null"), nil
	}
	return json.Marshal(o.bruto)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Pending()
		return nil
	}
	var bruto int64
	if err := json.Unmarshal(data, &bruto); err != nil {
		return fmt.Errorf("invalid outcome %s: %w", data, err)
	}
	*o = Finished(bruto)
	return nil
}
