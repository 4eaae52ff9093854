package lifecycle

import "errors"

// ErrNotFound covers both a missing entity and an entity not owned by the
// caller; the two are indistinguishable to the outside.
var ErrNotFound = errors.New("not found")

// ErrTitleRequired rejects a request created without a title.
var ErrTitleRequired = errors.New("title is required")

// GuardViolation reports a failed lifecycle precondition. The reason code
// is stable so callers can render an actionable message.
type GuardViolation struct {
	Reason string
}

func (e *GuardViolation) Error() string { return e.Reason }

// Guard reason codes.
const (
	ReasonRequestNotOpen       = "request not open"
	ReasonOfferLimitReached    = "offer limit reached"
	ReasonDuplicateOffer       = "offer already submitted for this request"
	ReasonProfessionalInactive = "professional account is not active"
	ReasonInsufficientBalance  = "insufficient balance"
	ReasonOfferNotPending      = "offer not pending"
	ReasonJobNotAccepted       = "job not accepted"
	ReasonJobNotInProgress     = "job not in progress"
	ReasonJobNotCompleted      = "job not completed"
	ReasonJobFinished          = "job already finished"
	ReasonReviewExists         = "review already exists"
	ReasonInvalidRating        = "rating must be between 1 and 5"
)

func guard(reason string) error { return &GuardViolation{Reason: reason} }

// IsGuardViolation reports whether err is a lifecycle guard failure.
func IsGuardViolation(err error) bool {
	var gv *GuardViolation
	return errors.As(err, &gv)
}
