package shortener

// Operation names a lifecycle operation.
type Operation string

const (
	OpCreate   Operation = "create"
	OpStat     Operation = "stat"
	OpRedirect Operation = "redirect"
)

// Observer is notified at the extension points of every lifecycle operation.
// Implementations must not block; the service ignores them otherwise.
type Observer interface {
	// Started is called on operation entry.
	Started(op Operation)
	// Rejected is called when the operation ends with a caller-facing error
	// (validation, duplicate code, not found, expired).
	Rejected(op Operation, err error)
	// Succeeded is called when the operation completes.
	Succeeded(op Operation)
	// Failed is called when the operation ends with an InternalError.
	Failed(op Operation, err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) Started(Operation)         {}
func (NopObserver) Rejected(Operation, error) {}
func (NopObserver) Succeeded(Operation)       {}
func (NopObserver) Failed(Operation, error)   {}
