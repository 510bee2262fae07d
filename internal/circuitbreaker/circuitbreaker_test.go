package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
)

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []string
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb := New[int](cfg)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	_, err := cb.Execute(func() (int, error) { called = true; return 1, nil })
	if called {
		t.Error("fn called while open")
	}
	if apperror.GetCode(err) != apperror.CodeCircuitOpen {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeCircuitOpen)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v", transitions)
	}
}

func TestCircuitBreaker_PassesResults(t *testing.T) {
	cb := New[string](DefaultConfig("ok"))
	got, err := cb.Execute(func() (string, error) { return "slot", nil })
	if err != nil || got != "slot" {
		t.Fatalf("got %q, %v", got, err)
	}
	if cb.Name() != "ok" {
		t.Errorf("name = %q", cb.Name())
	}
}
