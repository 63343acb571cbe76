package pointers

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func Float64(v float64) *float64 { return &v }

// Float64Value dereferences p, returning 0 for nil.
func Float64Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
