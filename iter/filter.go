package iter

// Filter returns a lazy Iterator yielding only the elements of it for
// which pred returns true. Closing the returned Iterator closes it.
func Filter[T any](it Iterator[T], pred func(T) bool) Iterator[T] {
	return FromFunc(func() (T, error) {
		for {
			v, err := it.Next()
			if err != nil {
				return v, err
			}
			if pred(v) {
				return v, nil
			}
		}
	}, it.Close)
}

// Map returns a lazy Iterator yielding fn(v) for every v that it yields.
func Map[T, R any](it Iterator[T], fn func(T) R) Iterator[R] {
	return FromFunc(func() (R, error) {
		var zero R
		v, err := it.Next()
		if err != nil {
			return zero, err
		}
		return fn(v), nil
	}, it.Close)
}
