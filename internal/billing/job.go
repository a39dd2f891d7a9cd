package billing

import (
	"bills/pkg/domain"
	"bills/pkg/publisher"
	"encoding/json"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// BillCreatedJobArgs carries an encoded bill.created envelope from the bill
// transaction to the outbox worker.
type BillCreatedJobArgs struct {
	// BillID is the unique key of the job: one publication per bill.
	BillID int64 `json:"bill_id" river:"unique"`
	// Envelope is the event exactly as it will be published.
	Envelope json.RawMessage `json:"envelope"`

	// maxAttempts configures the maximum number of times River should retry the job.
	maxAttempts int
}

// NewBillCreatedJobArgs wraps event for the outbox.
func NewBillCreatedJobArgs(event domain.BillCreatedEvent, maxAttempts int) BillCreatedJobArgs {
	return BillCreatedJobArgs{
		BillID:      event.BillID,
		Envelope:    publisher.EncodeEnvelope(event),
		maxAttempts: maxAttempts,
	}
}

// Kind returns the River job kind used to register and dispatch the outbox worker.
func (args BillCreatedJobArgs) Kind() string { return "PublishBillCreatedJob" }

// InsertOpts keeps a single job per bill in any live state.
func (args BillCreatedJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateCompleted,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}
