// Package stt defines the interface for speech-to-text backends.
package stt

import "context"

// Format selects the transcript output format.
type Format string

const (
	FormatText Format = "text"
	FormatSRT  Format = "srt"
)

// Request carries one transcription job to a backend. It is created per
// call and owned exclusively by the handling request.
type Request struct {
	// AudioPath is the request-scoped temporary file holding the upload.
	AudioPath string
	// Model is the model name requested by the client.
	Model string
	// Format is the requested transcript format.
	Format Format
	// Language is an optional language hint; empty means auto-detect.
	Language string
}

// Outcome classifies what a backend call produced. "Returned nothing" and
// "call failed" are distinct outcomes; fallback decisions branch on them.
type Outcome int

const (
	// OutcomeText - the backend returned transcript text.
	OutcomeText Outcome = iota
	// OutcomeEmpty - the call succeeded but produced no text.
	OutcomeEmpty
	// OutcomeError - the call itself failed.
	OutcomeError
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeText:
		return "text"
	case OutcomeEmpty:
		return "empty"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one backend call.
type Result struct {
	Outcome Outcome
	// Text is the transcript; set only for OutcomeText.
	Text string
	// Err is the failure; set only for OutcomeError.
	Err error
}

// TextResult builds a Result for transcript text, classifying empty text
// as OutcomeEmpty.
func TextResult(text string) Result {
	if text == "" {
		return Result{Outcome: OutcomeEmpty}
	}
	return Result{Outcome: OutcomeText, Text: text}
}

// ErrorResult builds a Result for a failed call.
func ErrorResult(err error) Result {
	return Result{Outcome: OutcomeError, Err: err}
}

// Backend defines the contract for transcription providers
// (local whisper-webui, OpenAI, Google, mock).
type Backend interface {
	// Name identifies the backend in logs, metrics and the usage ledger.
	Name() string

	// Transcribe runs one transcription job. Failures are reported through
	// the Result, not a separate error return, so callers always branch on
	// the tagged outcome.
	Transcribe(ctx context.Context, req Request) Result
}
