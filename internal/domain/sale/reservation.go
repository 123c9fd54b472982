package sale

// ReservationOutcome is the store's verdict on one atomic claim attempt.
type ReservationOutcome string

const (
	ReservationClaimed        ReservationOutcome = "claimed"
	ReservationAlreadyClaimed ReservationOutcome = "already_purchased"
	ReservationSoldOut        ReservationOutcome = "sold_out"
)

// ReservationResult reports what the atomic check-and-mutate step did.
// NewStock is meaningful only when Outcome is ReservationClaimed.
type ReservationResult struct {
	Outcome  ReservationOutcome
	NewStock int
}
