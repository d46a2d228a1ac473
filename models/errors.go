package models

import "github.com/rotisserie/eris"

// Error kinds. Every failure returned by a pipeline stage matches exactly
// one of these with errors.Is.
var (
	ErrNetwork       = eris.New("network error")
	ErrParse         = eris.New("parse error")
	ErrMissingColumn = eris.New("missing column")
	ErrFileNotFound  = eris.New("file not found")
	ErrMissingRate   = eris.New("missing rate")
	ErrIO            = eris.New("i/o error")
	ErrStore         = eris.New("store error")
)

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.kind.Error() + ": " + e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

// Classify tags err with kind. Both remain reachable through errors.Is
// and errors.As. A nil err stays nil.
func Classify(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}
