package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to v only when set is true. Used to turn
// "was this flag given" into an optional patch field.
func PtrIf[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}
