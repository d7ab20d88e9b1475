package reconcile

type Kind string

const (
	KindOpen   Kind = "open"
	KindClosed Kind = "closed"
)

type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type RecordOutcome struct {
	PositionID uint64  `json:"position_id"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
}

// Result summarizes one reconciliation run for one account.
type Result struct {
	Login     uint64          `json:"login"`
	Kind      Kind            `json:"kind"`
	Fetched   int             `json:"fetched"`
	Inserted  int             `json:"inserted"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Rejected  int             `json:"rejected"`
	Failed    int             `json:"failed"`
	Deleted   int             `json:"deleted"`
	Outcomes  []RecordOutcome `json:"outcomes,omitempty"`
}

// Stored is the number of rows that now hold the fetched values.
func (r Result) Stored() int {
	return r.Inserted + r.Updated + r.Unchanged
}

func (r *Result) add(o RecordOutcome) {
	switch o.Outcome {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeUnchanged:
		r.Unchanged++
	case OutcomeRejected:
		r.Rejected++
	case OutcomeFailed:
		r.Failed++
	}
	// Unchanged records are counted but not listed.
	if o.Outcome != OutcomeUnchanged {
		r.Outcomes = append(r.Outcomes, o)
	}
}
