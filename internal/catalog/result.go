package catalog

// ErrorKind classifies why a catalog lookup failed.
type ErrorKind int

const (
	// ErrCredentials means no workspace handle could be built.
	ErrCredentials ErrorKind = iota + 1
	// ErrRemote means the list API call itself failed.
	ErrRemote
)

func (k ErrorKind) String() string {
	switch k {
	case ErrCredentials:
		return "credentials"
	case ErrRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// ToolError is a failed lookup. Action reads like "listing catalogs".
type ToolError struct {
	Kind   ErrorKind
	Action string
	Cause  error
}

func (e *ToolError) Error() string {
	return FormatError(e)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// FormatError renders the agent-facing text for a failed lookup.
func FormatError(e *ToolError) string {
	msg := ""
	if e.Cause != nil {
		msg = e.Cause.Error()
	}
	return "Error " + e.Action + ": " + msg
}

// Result is the outcome of one catalog tool call.
type Result struct {
	Text string
	Err  *ToolError
}

// OK reports whether the lookup succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// String is what the agent sees: the sentence, or the formatted error.
func (r Result) String() string {
	if r.Err != nil {
		return FormatError(r.Err)
	}
	return r.Text
}
