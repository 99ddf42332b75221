package apperror

type Kind string

var (
	// --- Request ---
	InvalidInput   Kind = "invalid_input"
	AlreadyExists  Kind = "already_exist"
	NotFound       Kind = "not_found"
	Conflict       Kind = "conflict"
	Unauthorised   Kind = "unauthorised"
	Forbidden      Kind = "forbidden"
	RequestTimeout Kind = "request_timeout"

	// --- Pipeline ---
	InvalidResult  Kind = "invalid_result"
	DeliveryFailed Kind = "delivery_failed"

	// --- Infra ---
	Internal    Kind = "internal"
	Dependency  Kind = "dependency_failure"
	DatabaseErr Kind = "database_error"
)
