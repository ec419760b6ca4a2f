package asrproc

import "errors"

// ErrRecognizerFailed wraps any error returned by the Recognizer during
// ProcessIter.
var ErrRecognizerFailed = errors.New("asrproc: recognizer call failed")
