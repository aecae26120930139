package domain

const (
	// DefaultTransition is emitted by a node that completed normally.
	DefaultTransition = "_success"
	// ErrorTransition is emitted by a node that failed.
	ErrorTransition = "_error"
)

// FragmentContext is the input of a node: the fragment and its originating request.
type FragmentContext struct {
	Fragment Fragment      `json:"fragment"`
	Request  ClientRequest `json:"request"`
}

// FragmentResult is the output of a node.
// Transition selects the outgoing edge to follow. NodeLog is optional diagnostic data.
type FragmentResult struct {
	Fragment   Fragment       `json:"fragment"`
	Transition string         `json:"transition"`
	NodeLog    map[string]any `json:"nodeLog,omitempty"`
}

// Success wraps a fragment in a result taking the default transition.
func Success(f Fragment) FragmentResult {
	return FragmentResult{Fragment: f, Transition: DefaultTransition}
}

// Failure wraps a fragment in a result taking the error transition.
func Failure(f Fragment) FragmentResult {
	return FragmentResult{Fragment: f, Transition: ErrorTransition}
}

// WithLog attaches diagnostic data to the result.
func (r FragmentResult) WithLog(log map[string]any) FragmentResult {
	r.NodeLog = log
	return r
}
