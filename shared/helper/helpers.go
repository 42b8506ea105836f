package helper

// TypedValue asserts raw to the expected type T.
func TypedValue[T any](raw any) (T, bool) {
	val, ok := raw.(T)
	return val, ok
}
