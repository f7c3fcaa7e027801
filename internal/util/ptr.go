package util

// Ptr returns a pointer to v. Used for the optional timestamp fields on
// alert records, where nil means "has not happened".
func Ptr[T any](v T) *T {
	return &v
}
