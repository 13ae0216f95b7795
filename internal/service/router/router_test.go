package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ai-speech-proxy-service/internal/apperrs"
	"ai-speech-proxy-service/internal/auth"
	"ai-speech-proxy-service/internal/service/stt"
	"ai-speech-proxy-service/internal/service/stt/mock"
	"ai-speech-proxy-service/internal/usage"
)

type fakeHealth struct {
	available bool
}

func (f *fakeHealth) Available() bool { return f.available }

type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
	fail    bool
}

type ledgerEntry struct {
	clientID string
	seconds  float64
	backend  usage.Backend
}

func (f *fakeLedger) Record(clientID string, day time.Time, seconds float64, backend usage.Backend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.entries = append(f.entries, ledgerEntry{clientID: clientID, seconds: seconds, backend: backend})
	return nil
}

type fakeAudit struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeAudit) Record(clientID, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, clientID+": "+message)
}

func newEngine(health *fakeHealth, local, cloud stt.Backend, ledger Ledger, audit Auditor) *Engine {
	return NewEngine(health, local, cloud, ledger, audit, nil, 0)
}

func testPolicy(allowCloud bool) *auth.ClientPolicy {
	return &auth.ClientPolicy{ClientID: "felix_test", APIKey: "sk-1234felix", AllowCloud: allowCloud}
}

func TestRoute_LocalSuccess(t *testing.T) {
	local := mock.New("local", stt.TextResult("hello from local"))
	cloud := mock.New("cloud")
	ledger := &fakeLedger{}
	engine := newEngine(&fakeHealth{available: true}, local, cloud, ledger, &fakeAudit{})

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 12.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.State != StateSuccess {
		t.Errorf("expected StateSuccess, got %v", decision.State)
	}
	if decision.Backend != usage.BackendLocal {
		t.Errorf("expected local backend tag, got %v", decision.Backend)
	}
	if decision.Text != "hello from local" {
		t.Errorf("unexpected text: %q", decision.Text)
	}
	if cloud.Calls() != 0 {
		t.Errorf("cloud should not be called, got %d calls", cloud.Calls())
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(ledger.entries))
	}
	if ledger.entries[0].backend != usage.BackendLocal {
		t.Errorf("expected local credit, got %v", ledger.entries[0].backend)
	}
	if ledger.entries[0].seconds != 12.8 {
		t.Errorf("expected 12.8 seconds passed through, got %v", ledger.entries[0].seconds)
	}
}

func TestRoute_LocalEmptyFallsBackToCloud(t *testing.T) {
	tests := []struct {
		name        string
		localResult stt.Result
	}{
		{"empty result", stt.TextResult("")},
		{"backend error", stt.ErrorResult(errors.New("connection refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := mock.New("local", tt.localResult)
			cloud := mock.New("cloud", stt.TextResult("hello from cloud"))
			ledger := &fakeLedger{}
			engine := newEngine(&fakeHealth{available: true}, local, cloud, ledger, &fakeAudit{})

			decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if decision.State != StateSuccess {
				t.Errorf("expected StateSuccess, got %v", decision.State)
			}
			if decision.Backend != usage.BackendCloud {
				t.Errorf("expected cloud backend tag, got %v", decision.Backend)
			}
			if local.Calls() != 1 {
				t.Errorf("expected exactly 1 local call, got %d", local.Calls())
			}
			if cloud.Calls() != 1 {
				t.Errorf("expected exactly 1 cloud call, got %d", cloud.Calls())
			}
			// Only the backend that produced the text is credited.
			if len(ledger.entries) != 1 {
				t.Fatalf("expected 1 ledger entry, got %d", len(ledger.entries))
			}
			if ledger.entries[0].backend != usage.BackendCloud {
				t.Errorf("expected cloud credit only, got %v", ledger.entries[0].backend)
			}
		})
	}
}

func TestRoute_LocalFailsCloudForbidden(t *testing.T) {
	local := mock.New("local", stt.ErrorResult(errors.New("boom")))
	cloud := mock.New("cloud")
	ledger := &fakeLedger{}
	auditLog := &fakeAudit{}
	engine := newEngine(&fakeHealth{available: true}, local, cloud, ledger, auditLog)

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(false), 5)

	var appErr *apperrs.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrs.CodeCloudForbidden {
		t.Fatalf("expected cloud forbidden error, got %v", err)
	}
	if decision.State != StateForbidden {
		t.Errorf("expected StateForbidden, got %v", decision.State)
	}
	if cloud.Calls() != 0 {
		t.Errorf("cloud must not be called, got %d calls", cloud.Calls())
	}
	if len(ledger.entries) != 0 {
		t.Errorf("forbidden requests must not credit usage, got %d entries", len(ledger.entries))
	}
	if len(auditLog.messages) == 0 {
		t.Error("expected an audit entry for the forbidden request")
	}
}

func TestRoute_HealthUnavailableSkipsLocal(t *testing.T) {
	local := mock.New("local", stt.TextResult("should never be used"))
	cloud := mock.New("cloud", stt.TextResult("cloud transcript"))
	ledger := &fakeLedger{}
	engine := newEngine(&fakeHealth{available: false}, local, cloud, ledger, &fakeAudit{})

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 10.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if local.Calls() != 0 {
		t.Errorf("local must be skipped when unavailable, got %d calls", local.Calls())
	}
	if decision.Backend != usage.BackendCloud {
		t.Errorf("expected cloud backend tag, got %v", decision.Backend)
	}
}

func TestRoute_HealthUnavailableCloudForbidden(t *testing.T) {
	local := mock.New("local")
	cloud := mock.New("cloud")
	ledger := &fakeLedger{}
	engine := newEngine(&fakeHealth{available: false}, local, cloud, ledger, &fakeAudit{})

	policy := &auth.ClientPolicy{ClientID: "alice456", APIKey: "sk-client-alice456", AllowCloud: false}
	decision, err := engine.Route(context.Background(), stt.Request{}, policy, 5)

	if decision.State != StateForbidden {
		t.Errorf("expected StateForbidden, got %v", decision.State)
	}
	var appErr *apperrs.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("expected a 403 error, got %v", err)
	}
	if local.Calls() != 0 || cloud.Calls() != 0 {
		t.Error("no backend may be invoked on the forbidden path")
	}
	if len(ledger.entries) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(ledger.entries))
	}
}

func TestRoute_AllBackendsFail(t *testing.T) {
	local := mock.New("local", stt.ErrorResult(errors.New("local down")))
	cloud := mock.New("cloud", stt.ErrorResult(errors.New("cloud down")))
	ledger := &fakeLedger{}
	engine := newEngine(&fakeHealth{available: true}, local, cloud, ledger, &fakeAudit{})

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 5)

	if decision.State != StateFailed {
		t.Errorf("expected StateFailed, got %v", decision.State)
	}
	var appErr *apperrs.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 500 {
		t.Errorf("expected a 500 error, got %v", err)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("failed requests must not credit usage, got %d entries", len(ledger.entries))
	}
}

func TestRoute_LedgerFailureDoesNotFailRequest(t *testing.T) {
	local := mock.New("local", stt.TextResult("text"))
	cloud := mock.New("cloud")
	ledger := &fakeLedger{fail: true}
	auditLog := &fakeAudit{}
	engine := newEngine(&fakeHealth{available: true}, local, cloud, ledger, auditLog)

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 5)
	if err != nil {
		t.Fatalf("ledger failure must not fail the request: %v", err)
	}
	if decision.State != StateSuccess {
		t.Errorf("expected StateSuccess, got %v", decision.State)
	}
	if len(auditLog.messages) == 0 {
		t.Error("expected an audit entry for the ledger failure")
	}
}

// End-to-end with the real ledger: health unavailable, cloud allowed,
// 10.4s audio. The ledger row must end up as today;0;10.
func TestRoute_CloudScenarioWithRealLedger(t *testing.T) {
	dir := t.TempDir()
	ledger := usage.NewLedger(dir)

	local := mock.New("local")
	cloud := mock.New("cloud", stt.TextResult("cloud transcript"))
	engine := newEngine(&fakeHealth{available: false}, local, cloud, ledger, &fakeAudit{})

	decision, err := engine.Route(context.Background(), stt.Request{}, testPolicy(true), 10.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Backend != usage.BackendCloud {
		t.Errorf("expected cloud backend tag, got %v", decision.Backend)
	}

	records, err := ledger.UsageFor(time.Now())
	if err != nil {
		t.Fatalf("UsageFor failed: %v", err)
	}
	rec, ok := records["felix_test"]
	if !ok {
		t.Fatal("expected a record for felix_test")
	}
	if rec.LocalSeconds != 0 {
		t.Errorf("expected 0 local seconds, got %d", rec.LocalSeconds)
	}
	if rec.CloudSeconds != 10 {
		t.Errorf("expected 10 cloud seconds (truncated from 10.4), got %d", rec.CloudSeconds)
	}
}

// Scenario: alice456 forbidden from cloud, no usage file may be created.
func TestRoute_ForbiddenCreatesNoLedgerFile(t *testing.T) {
	dir := t.TempDir()
	ledger := usage.NewLedger(dir)

	local := mock.New("local")
	cloud := mock.New("cloud")
	engine := newEngine(&fakeHealth{available: false}, local, cloud, ledger, &fakeAudit{})

	policy := &auth.ClientPolicy{ClientID: "alice456", APIKey: "sk-client-alice456", AllowCloud: false}
	if _, err := engine.Route(context.Background(), stt.Request{}, policy, 5); err == nil {
		t.Fatal("expected an error")
	}

	if _, err := os.Stat(filepath.Join(dir, "alice456.log")); !os.IsNotExist(err) {
		t.Error("no ledger file may be created on the forbidden path")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStart, "START"},
		{StateAttemptLocal, "ATTEMPT_LOCAL"},
		{StateAttemptCloud, "ATTEMPT_CLOUD"},
		{StateSuccess, "SUCCESS"},
		{StateForbidden, "FORBIDDEN"},
		{StateFailed, "FAILED"},
		{State(42), "UNKNOWN(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	terminal := []State{StateSuccess, StateForbidden, StateFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %v to be terminal", s)
		}
	}
	nonTerminal := []State{StateStart, StateAttemptLocal, StateAttemptCloud}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("expected %v to be non-terminal", s)
		}
	}
}
