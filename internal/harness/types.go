package harness

// TraceEvent records one flow step and its outcome.
type TraceEvent struct {
	Step   int    `json:"step"` // index in the flow
	Op     string `json:"op"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount,omitempty"`

	// Result is "ok" or the ledger error code.
	Result string `json:"result"`

	// ID and Seq are set for accepted transactions.
	ID  string `json:"id,omitempty"`
	Seq int64  `json:"seq,omitempty"`

	// Height and Root are set for successful fold and verify steps.
	Height *uint64 `json:"height,omitempty"`
	Root   string  `json:"root,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expected outcome and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
