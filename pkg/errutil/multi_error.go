// Package errutil contains utilities for working with errors.
package errutil

import "strings"

// Multi combines errors into one. Nil errors are dropped; if none remain, it
// returns nil, and if one remains, it returns that error. Errors returned by
// Multi are flattened, so Multi(Multi(a, b), c) is the same as Multi(a, b, c).
//
// The combined error works with errors.Is and errors.As.
func Multi(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if multi, ok := err.(multiError); ok {
			nonNil = append(nonNil, multi...)
		} else if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return multiError(nonNil)
}

type multiError []error

func (me multiError) Error() string {
	msgs := make([]string, len(me))
	for i, err := range me {
		msgs[i] = err.Error()
	}
	return "multiple errors: " + strings.Join(msgs, "; ")
}

func (me multiError) Unwrap() []error { return me }
