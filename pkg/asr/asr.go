// Package asr defines the Recognizer contract shared by every speech
// recognition backend and the word/segment shapes asrproc.Processor
// consumes.
package asr

import "github.com/lokutor-ai/lokutor-transcribe/pkg/asrproc"

// Word is a backend-agnostic time-stamped recognizer output.
type Word = asrproc.Word

// Segment groups words under a single recognizer-reported boundary.
type Segment = asrproc.Segment

// Recognizer matches asrproc.Recognizer; defined again here so backend
// packages can depend on asr without importing asrproc directly.
type Recognizer = asrproc.Recognizer
