package utils

// CloneStrings returns an independent copy of a string slice. A nil input
// stays nil so callers can distinguish "no tags" from "empty tags".
func CloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
