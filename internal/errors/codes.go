package errors

// Error codes reported by the rewrite core. Codes follow the SQLSTATE layout
// so a driver embedding the optimizer can surface them as compilation errors
// unchanged. Class XX codes in the XXQ range are local to this project.

// Class 0A - Feature Not Supported
const (
	UnsupportedPlan = "0AQ01"
)

// Class 42 - Syntax Error or Access Rule Violation
const (
	UndefinedObject = "42704"
	UnknownRule     = UndefinedObject
	InvalidPlan     = "42P17"
)

// Class 57 - Operator Intervention
const (
	QueryCanceled = "57014"
)

// Class F0 - Configuration File Error
const (
	ConfigFileError = "F0000"
	InvalidConfig   = ConfigFileError
)

// Class XX - Internal Error
const (
	InternalError            = "XX000"
	ArityMismatch            = "XXQ01"
	ChildOptimizationFailure = "XXQ02"
	RuleFailed               = "XXQ03"
)
