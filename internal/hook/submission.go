package hook

// Submission is the request-scoped form data the host passes into the
// validation chain: field name to submitted values, one request's worth.
// It is created by the host from its own form-decoding and never read from
// ambient process state, so validation is deterministic under test.
type Submission map[string][]string

// Get returns the first submitted value for field, or "" when absent.
func (s Submission) Get(field string) string {
	if s == nil {
		return ""
	}
	vs := s[field]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Has reports whether field was submitted with at least one value.
func (s Submission) Has(field string) bool {
	if s == nil {
		return false
	}
	return len(s[field]) > 0
}
