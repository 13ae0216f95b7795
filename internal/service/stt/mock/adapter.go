// Package mock provides a scripted STT backend for testing without real
// transcription services.
package mock

import (
	"context"
	"sync"

	"ai-speech-proxy-service/internal/service/stt"
)

// Adapter implements stt.Backend with a scripted result sequence. Each
// Transcribe call consumes the next scripted result; once the script is
// exhausted the last result repeats.
type Adapter struct {
	name string

	mu      sync.Mutex
	script  []stt.Result
	calls   int
	lastReq stt.Request
}

// Compile-time interface assertion.
var _ stt.Backend = (*Adapter)(nil)

// New creates a mock backend reporting the given name with a result script.
func New(name string, script ...stt.Result) *Adapter {
	if len(script) == 0 {
		script = []stt.Result{stt.TextResult("mock transcript")}
	}
	return &Adapter{name: name, script: script}
}

// Name implements stt.Backend.
func (a *Adapter) Name() string { return a.name }

// Transcribe returns the next scripted result.
func (a *Adapter) Transcribe(ctx context.Context, req stt.Request) stt.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.calls
	if idx >= len(a.script) {
		idx = len(a.script) - 1
	}
	a.calls++
	a.lastReq = req
	return a.script[idx]
}

// Calls returns how many times Transcribe was invoked.
func (a *Adapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// LastRequest returns the most recent request passed to Transcribe.
func (a *Adapter) LastRequest() stt.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReq
}
