package txgraph

import "fmt"

// Field names reported by ValidationError.
const (
	FieldSender    = "sender"
	FieldReceiver  = "receiver"
	FieldAmount    = "amount"
	FieldTimestamp = "timestamp"
)

// ValidationError reports the first malformed transaction of a batch.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %d: %s %s", e.Index, e.Field, e.Reason)
}
