package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func fakeRunner(calls *[]Kind) Runner {
	return func(ctx context.Context, kind Kind) ResultMsg {
		*calls = append(*calls, kind)
		return ResultMsg{
			Kind:    kind,
			Latency: 12 * time.Millisecond,
			Fields:  []Field{{Label: "Mode", Value: "stealth"}},
		}
	}
}

func TestModel_ResultsRender(t *testing.T) {
	var calls []Kind
	m := New("http://localhost:8010", fakeRunner(&calls), nil)

	for _, k := range Kinds {
		updated, _ := m.Update(ResultMsg{Kind: k, Latency: time.Millisecond, Fields: []Field{{Label: "Mode", Value: "stealth"}}})
		m = updated.(Model)
	}
	updated, _ := m.Update(ResultMsg{Kind: KindRisk, Err: errors.New("COMPUTATION_TIMEOUT")})
	m = updated.(Model)
	updated, _ = m.Update(HealthMsg{Service: "evalys-arcium-bridge"})
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"Strategy Plan", "Curve Evaluation", "verified", "stealth", "failed", "COMPUTATION_TIMEOUT", "evalys-arcium-bridge"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_KeysStartComputations(t *testing.T) {
	var calls []Kind
	m := New("x", fakeRunner(&calls), nil)

	// Finish the initial runs.
	for _, k := range Kinds {
		updated, _ := m.Update(ResultMsg{Kind: k})
		m = updated.(Model)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected a command for key 2")
	}
	if !m.panels[KindRisk].running {
		t.Error("risk panel should be running")
	}

	// A second press while running is ignored.
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")}); again != nil {
		t.Error("duplicate start should not return a command")
	}

	msg := cmd()
	res, ok := msg.(ResultMsg)
	if !ok || res.Kind != KindRisk {
		t.Fatalf("cmd() = %#v, want risk ResultMsg", msg)
	}
	if len(calls) != 1 || calls[0] != KindRisk {
		t.Errorf("calls = %v", calls)
	}
}

func TestModel_Quit(t *testing.T) {
	m := New("x", fakeRunner(new([]Kind)), nil)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if updated.(Model).View() != "" {
		t.Error("view should be empty after quit")
	}
}

func TestKind_String(t *testing.T) {
	if KindPlan.String() != "Strategy Plan" || Kind(9).String() != "Unknown" {
		t.Error("unexpected kind names")
	}
}
