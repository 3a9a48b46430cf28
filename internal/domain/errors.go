package domain

import "errors"

var (
	// ErrUnknownQuestion is returned when a submission references a
	// (date, step) that was never issued.
	ErrUnknownQuestion = errors.New("question not issued")
	// ErrInvalidOption is returned when the selected option id does not
	// exist on the referenced question.
	ErrInvalidOption = errors.New("option not found on question")
	// ErrInvalidConfidence is returned for confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("malformed date")
	// ErrDuplicateSubmission is returned when a user already answered
	// the question; the prior row is left untouched.
	ErrDuplicateSubmission = errors.New("prediction already submitted")
	// ErrAlreadyVerified guards against double-scoring: the prediction
	// already has a non-null outcome.
	ErrAlreadyVerified = errors.New("prediction already verified")
	// ErrDateVerified is returned when issuing questions for a date
	// that already has verified predictions.
	ErrDateVerified = errors.New("date already verified")
	// ErrUnclassifiable means a decision rule could not map an actual
	// value to an option. This is a defect and must fail loudly.
	ErrUnclassifiable = errors.New("actual value not classifiable by decision rule")
	// ErrUserNotFound is returned for profile lookups of unknown users.
	ErrUserNotFound = errors.New("user not found")
)
