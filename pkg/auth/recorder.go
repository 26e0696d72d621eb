package auth

// Operations reported to a Recorder
const (
	OperationGate     = "gate"
	OperationLogin    = "login"
	OperationLogout   = "logout"
	OperationRegister = "register"
)

// Outcomes reported to a Recorder
const (
	OutcomeSuccess     = "success"
	OutcomeMissing     = "missing_token"
	OutcomeMalformed   = "malformed_token"
	OutcomeRevoked     = "revoked"
	OutcomeInvalid     = "invalid_token"
	OutcomeUnknownUser = "unknown_user"
	OutcomeBadLogin    = "invalid_credentials"
	OutcomeConflict    = "conflict"
	OutcomeError       = "error"
)

// Recorder receives authentication outcomes. observability.Metrics and
// observability.OTelMetrics both satisfy it.
type Recorder interface {
	RecordAuthOutcome(operation, outcome string)
	RecordRevocation(backend string)
}

// MultiRecorder fans out to every recorder in the slice
type MultiRecorder []Recorder

// RecordAuthOutcome implements Recorder
func (m MultiRecorder) RecordAuthOutcome(operation, outcome string) {
	for _, r := range m {
		r.RecordAuthOutcome(operation, outcome)
	}
}

// RecordRevocation implements Recorder
func (m MultiRecorder) RecordRevocation(backend string) {
	for _, r := range m {
		r.RecordRevocation(backend)
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthOutcome(string, string) {}
func (nopRecorder) RecordRevocation(string)          {}
