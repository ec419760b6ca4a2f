package xlate

import "errors"

// ErrTransient marks a Translator error as retryable (server 5xx,
// timeout). Wrap provider errors with this sentinel via fmt.Errorf("%w: ...", ErrTransient)
// so Manager's retry logic can classify them with errors.Is.
var ErrTransient = errors.New("xlate: transient translation provider error")

// ErrTranslationFatal marks an unrecoverable translator configuration
// problem (missing credentials). The provider constructors return it, and
// cmd/server then fails at startup; Manager does not treat it specially,
// so an error of this kind from Translate falls back to the source text
// like any other non-transient error.
var ErrTranslationFatal = errors.New("xlate: translation provider missing credentials")
