package netbound

import "fmt"

// Kind is the active variant of a State.
type Kind uint8

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindError
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindEmpty:
		return "empty"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Presentation tells the consumer how to surface an error message.
// It never changes error semantics.
type Presentation uint8

// The zero value means "not specified" and resolves to PresentDialog.
const (
	PresentSilent Presentation = iota + 1
	PresentToast
	PresentDialog
	PresentRetryPrompt
)

func (p Presentation) String() string {
	switch p {
	case 0:
		return "unspecified"
	case PresentSilent:
		return "silent"
	case PresentToast:
		return "toast"
	case PresentDialog:
		return "dialog"
	case PresentRetryPrompt:
		return "retry_prompt"
	default:
		return fmt.Sprintf("presentation(%d)", uint8(p))
	}
}

// ErrorCause classifies where an Error state came from.
type ErrorCause uint8

const (
	CauseNone       ErrorCause = iota
	CauseValidation            // rejected before any cache or network access
	CauseDomain                // business failure inside a successful transport response
	CauseTransport             // network or server failure
	CauseCache                 // local store failure on a cache-only run
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseValidation:
		return "validation"
	case CauseDomain:
		return "domain"
	case CauseTransport:
		return "transport"
	case CauseCache:
		return "cache"
	default:
		return fmt.Sprintf("cause(%d)", uint8(c))
	}
}

// State is one emission of a Stream. Exactly one variant (Kind) is active.
// Final marks the terminal emission of an invocation.
type State[T any] struct {
	Kind  Kind
	Final bool

	// Loading
	Progress string

	// Success
	Data T

	// Error
	Message      string
	Presentation Presentation
	Cause        ErrorCause
}

func Loading[T any](progress string) State[T] {
	return State[T]{Kind: KindLoading, Progress: progress}
}

// Interim is a non-final success, used for cache data shown while the
// network call is still running.
func Interim[T any](v T) State[T] {
	return State[T]{Kind: KindSuccess, Data: v}
}

func Success[T any](v T) State[T] {
	return State[T]{Kind: KindSuccess, Data: v, Final: true}
}

func Failure[T any](msg string, p Presentation, cause ErrorCause) State[T] {
	return State[T]{Kind: KindError, Message: msg, Presentation: p, Cause: cause, Final: true}
}

func Empty[T any]() State[T] {
	return State[T]{Kind: KindEmpty, Final: true}
}

func (s State[T]) String() string {
	switch s.Kind {
	case KindLoading:
		return "loading"
	case KindSuccess:
		if s.Final {
			return fmt.Sprintf("success(%v)", s.Data)
		}
		return fmt.Sprintf("interim(%v)", s.Data)
	case KindError:
		return fmt.Sprintf("error(%q, %s, %s)", s.Message, s.Presentation, s.Cause)
	default:
		return s.Kind.String()
	}
}
