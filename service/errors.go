package service

import "errors"

// Stage errors carried through the pipeline. Parse and verification failures
// are fatal to a job; generation failures are recovered locally by the
// analyzer and never surface here.
var (
	ErrParse        = errors.New("document parse failed")
	ErrVerification = errors.New("quote verification failed")
)
