package reactive

// Unwrap flattens an observer whose value is itself an observer handle. The
// result tracks both levels: switching src to a different inner observer and
// publications on the current inner observer both propagate. The dependency
// on a previously selected inner observer is dropped on the switch.
func Unwrap[T any](src *Observer[*Observer[T]], opts ...ObserverOption) (*Observer[T], error) {
	return MakeObserver(func() (T, error) {
		inner := src.Get()
		if inner == nil {
			var zero T
			return zero, ErrNilResult
		}
		return inner.Get(), nil
	}, opts...)
}
