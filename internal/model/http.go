package model

type ErrorHTTP struct {
	// Kind is the ErrorKind for normalization failures, or one of `not-found`,
	// `malformed-request` and `internal`.
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Tags carry diagnostic context of normalization failures.
	Tags map[string]any `json:"tags,omitempty"`
}

type VerificationSummaryHTTP struct {
	// Total is the number of fixtures that were verified.
	Total int `json:"total"`
	// Failed is the number of fixtures whose output did not match.
	Failed int `json:"failed"`
	// Failures describes every failed fixture.
	Failures []string `json:"failures"`
}
