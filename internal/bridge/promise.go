package bridge

// Promise is the producer side of a Future, for code that derives a result
// from other asynchronous work. The future starts in Requesting.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise creates a pending promise.
func NewPromise[T any]() *Promise[T] {
	f := newFuture[T]()
	f.begin()
	return &Promise[T]{f: f}
}

// Future returns the consumer side.
func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

// Resolve completes the future with v. It returns false if already settled.
func (p *Promise[T]) Resolve(v T) bool {
	return p.f.settle(Completed, v, nil)
}

// Reject fails the future with err. It returns false if already settled.
func (p *Promise[T]) Reject(err error) bool {
	var zero T
	return p.f.settle(Failed, zero, err)
}

// Cancel settles the future as Cancelled with err. It returns false if
// already settled.
func (p *Promise[T]) Cancel(err error) bool {
	var zero T
	if err == nil {
		err = ErrCancelled
	}
	return p.f.settle(Cancelled, zero, err)
}
