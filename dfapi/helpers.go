package dfapi

// String returns a pointer to the given string.
// Convenient for filling the optional fields of metadata structs.
func String(v string) *string {
	return &v
}

// Int returns a pointer to the given integer.
func Int(v int64) *int64 {
	return &v
}
