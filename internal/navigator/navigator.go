// Package navigator routes the visitor to the next screen. The engine only
// picks destinations; how a destination looks is the implementation's
// business.
package navigator

// Destination names a screen the engine can land the visitor on.
type Destination string

const (
	// DestVerify prompts for the email-link sign-in, optionally teasing a
	// cached preview.
	DestVerify Destination = "verify"
	// DestResults shows a ranked recommendation list.
	DestResults Destination = "results"
	// DestSurvey sends the visitor (back) into the taste survey.
	DestSurvey Destination = "survey"
	// DestError shows a cause and a retry hint.
	DestError Destination = "error"
)

// Navigator is the engine's only way out: every reconciliation pass ends in
// exactly one GoTo (or an explicit no-op on a repeated scenario).
type Navigator interface {
	GoTo(dest Destination, payload any)
}

// ErrorPayload accompanies DestError.
type ErrorPayload struct {
	Cause string
	Err   error
}
