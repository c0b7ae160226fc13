package reactive

// MakeValueObserver wraps src in an equality filter: the returned observer
// republishes only when the value actually differs from the one it last
// published, suppressing dependent propagation and callbacks otherwise. This
// is how subscribers ignore no-op updates on a source that republishes every
// Set.
//
// The comparison defaults to == for comparable values and deep equality
// otherwise; override it with WithEqual.
func MakeValueObserver[T any](src *Observer[T], opts ...ObserverOption) (*Observer[T], error) {
	return MakeObserver(func() (T, error) {
		return src.Get(), nil
	}, opts...)
}
