package netbound

// OutcomeKind is the raw shape of a remote call result.
type OutcomeKind uint8

const (
	OutcomeSuccessWithBody OutcomeKind = iota + 1
	OutcomeSuccessEmpty
	OutcomeFailure
)

// Outcome is what a remote caller produces before translation.
type Outcome[B any] struct {
	Kind    OutcomeKind
	Body    B
	Message string // Failure only
	Err     error  // optional underlying cause of a Failure
}

func OutcomeBody[B any](body B) Outcome[B] {
	return Outcome[B]{Kind: OutcomeSuccessWithBody, Body: body}
}

func OutcomeEmpty[B any]() Outcome[B] {
	return Outcome[B]{Kind: OutcomeSuccessEmpty}
}

// OutcomeError builds a Failure outcome. err may be nil.
func OutcomeError[B any](msg string, err error) Outcome[B] {
	return Outcome[B]{Kind: OutcomeFailure, Message: msg, Err: err}
}

// Translation is a translator's verdict on a success body.
// DomainError=true means the remote side reported a business failure even
// though the transport succeeded; Payload is ignored then.
type Translation[T any] struct {
	DomainError  bool
	ErrorMessage string
	Payload      T
}

// Translator maps a success body to a domain error or a final payload.
type Translator[B, T any] func(body B) Translation[T]

func Translated[T any](payload T) Translation[T] {
	return Translation[T]{Payload: payload}
}

func DomainFailure[T any](msg string) Translation[T] {
	return Translation[T]{DomainError: true, ErrorMessage: msg}
}
