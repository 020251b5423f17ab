package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Plan is the plan's Describe output.
	Plan string `json:"plan"`

	// Loops is the loop type of each piece, in order.
	Loops []string `json:"loops"`

	SortPieces int `json:"sort_pieces"`

	// Output is the terminal's value. Nil when the run failed.
	Output any `json:"output,omitempty"`

	// ErrorCode is the runtime error code when the run failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Reference is the naive evaluator's outcome, for comparison.
	Reference          any    `json:"reference,omitempty"`
	ReferenceErrorCode string `json:"reference_error_code,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Loops:  []string{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
