package syncer

import (
	"sync"
	"time"

	"github.com/STTM-NSU/mt5-sync/internal/reconcile"
	"github.com/google/uuid"
)

type Failure struct {
	Login uint64 `json:"login"`
	Error string `json:"error"`
}

// Report is the outcome of one sweep over many accounts.
type Report struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Accounts   int       `json:"accounts"`
	Synced     int       `json:"synced"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Rejected   int       `json:"rejected"`
	Failed     int       `json:"failed"`
	Deleted    int       `json:"deleted"`
	Failures   []Failure `json:"failures,omitempty"`

	mu sync.Mutex
}

func newReport(job string, accounts int) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
		Accounts:  accounts,
	}
}

func (r *Report) addResult(res reconcile.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Synced++
	r.Fetched += res.Fetched
	r.Inserted += res.Inserted
	r.Updated += res.Updated
	r.Unchanged += res.Unchanged
	r.Rejected += res.Rejected
	r.Failed += res.Failed
	r.Deleted += res.Deleted
}

func (r *Report) addFailure(login uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{Login: login, Error: err.Error()})
}

// Stored is the number of records present in storage after the sweep.
func (r *Report) Stored() int {
	return r.Inserted + r.Updated + r.Unchanged
}

func (r *Report) finish() *Report {
	r.FinishedAt = time.Now().UTC()
	return r
}
