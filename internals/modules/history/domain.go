package history

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the closed set of probe results.
type Outcome string

const (
	OutcomeUp      Outcome = "up"
	OutcomeDown    Outcome = "down"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeUp, OutcomeDown, OutcomeTimeout, OutcomeError:
		return true
	default:
		return false
	}
}

func (o Outcome) IsUp() bool {
	return o == OutcomeUp
}

// CheckResult is one probe outcome. It is immutable once appended.
type CheckResult struct {
	MonitorID      uuid.UUID `json:"monitor_id"`
	Timestamp      time.Time `json:"timestamp"`
	Outcome        Outcome   `json:"outcome"`
	ResponseTimeMs *int64    `json:"response_time_ms,omitempty"` // set iff Outcome is up
	HTTPStatus     *int      `json:"http_status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// Reasons recorded on non-up results.
const (
	ReasonTimeout           = "TIMEOUT"
	ReasonDNSFailure        = "DNS_FAILURE"
	ReasonTLSFailure        = "TLS_FAILURE"
	ReasonConnectionRefused = "CONNECTION_REFUSED"
	ReasonNetworkError      = "NETWORK_ERROR"
	ReasonInvalidRequest    = "INVALID_REQUEST"
	ReasonTooManyRedirects  = "TOO_MANY_REDIRECTS"
	ReasonHTTPStatus        = "HTTP_STATUS"
	ReasonCanceled          = "CANCELED"
	ReasonPanic             = "PANIC"
	ReasonUnknown           = "UNKNOWN_ERROR"
)
