package pipeline

// Status is the state of one stage result.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "pending"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Result is the outcome of a stage: still pending, completed with a
// payload, or failed with a reason.
type Result[T any] struct {
	status Status
	value  T
	err    error
}

func Pending[T any]() Result[T] { return Result[T]{} }

func Completed[T any](v T) Result[T] { return Result[T]{status: StatusCompleted, value: v} }

func Failed[T any](err error) Result[T] { return Result[T]{status: StatusFailed, err: err} }

func (r Result[T]) Status() Status { return r.status }

// Value returns the payload and whether the stage completed.
func (r Result[T]) Value() (T, bool) { return r.value, r.status == StatusCompleted }

func (r Result[T]) Err() error { return r.err }

// Then runs f on a completed payload. A failed or pending input is
// carried through as pending: the stage is skipped.
func Then[A, B any](r Result[A], f func(A) (B, error)) Result[B] {
	a, ok := r.Value()
	if !ok {
		return Pending[B]()
	}
	b, err := f(a)
	if err != nil {
		return Failed[B](err)
	}
	return Completed(b)
}
