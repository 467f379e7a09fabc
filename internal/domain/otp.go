package domain

// Channel is the out-of-band delivery route for a code.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// VerifyOutcome is the discriminated result of a verification attempt.
// These are expected results, not errors; handlers map each to its own status.
type VerifyOutcome string

const (
	// OutcomeOK means the code matched and the record was consumed.
	OutcomeOK VerifyOutcome = "ok"
	// OutcomeExpired means a record existed but its validity window had passed.
	OutcomeExpired VerifyOutcome = "expired"
	// OutcomeMismatch means a live record exists but the code was wrong.
	// The record stays valid until it matches, expires or is overwritten.
	OutcomeMismatch VerifyOutcome = "mismatch"
	// OutcomeMissing means no record exists for the identifier.
	OutcomeMissing VerifyOutcome = "missing"
)
