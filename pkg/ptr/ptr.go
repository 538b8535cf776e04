package ptr

// Ptr returns a pointer to a copy of v
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p or returns the zero value of T
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
