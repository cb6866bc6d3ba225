package container

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIdentityLabels(t *testing.T) {
	id := Identity{Version: "0.1.0", Owner: "tester", Repository: "pwnables", Problem: "babyecho"}

	want := map[string]string{
		"soma.version":    "0.1.0",
		"soma.owner":      "tester",
		"soma.repository": "pwnables",
		"soma.problem":    "babyecho",
	}
	if got := id.Labels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Labels()=%v, want %v", got, want)
	}
	if !id.Selector().Matches(id.Labels()) {
		t.Error("an identity's selector should match its own labels")
	}
}

func TestSelectorMatches(t *testing.T) {
	labels := Identity{Version: "0.1.0", Owner: "tester", Repository: "pwnables", Problem: "babyecho"}.Labels()

	tests := []struct {
		name   string
		sel    Selector
		labels map[string]string
		want   bool
	}{
		{"owner", Selector{Owner: "tester"}, labels, true},
		{"repository", Selector{Owner: "tester", Repository: "pwnables"}, labels, true},
		{"problem", Selector{Owner: "tester", Repository: "pwnables", Problem: "babyecho"}, labels, true},
		{"other owner", Selector{Owner: "plus"}, labels, false},
		{"other problem", Selector{Owner: "tester", Problem: "r0pbaby"}, labels, false},
		{"empty selector", Selector{}, labels, true},
		{"unlabeled", Selector{}, map[string]string{"maintainer": "someone"}, false},
		{"nil labels", Selector{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Matches(tt.labels); got != tt.want {
				t.Errorf("Matches()=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectorArgs(t *testing.T) {
	args := Selector{Owner: "tester", Problem: "babyecho"}.Args()

	got := args.Get("label")
	want := map[string]bool{
		"soma.owner":            true,
		"soma.owner=tester":     true,
		"soma.problem=babyecho": true,
	}
	if len(got) != len(want) {
		t.Fatalf("label filters=%v, want %d entries", got, len(want))
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected label filter %q", v)
		}
	}
}

func TestContainerStates(t *testing.T) {
	tests := []struct {
		state     string
		running   bool
		stoppable bool
	}{
		{StateCreated, false, false},
		{StateRunning, true, true},
		{StatePaused, false, true},
		{StateRestarting, false, true},
		{StateExited, false, false},
		{StateDead, false, false},
	}
	for _, tt := range tests {
		c := Container{State: tt.state}
		if c.Running() != tt.running || c.Stoppable() != tt.stoppable {
			t.Errorf("%s: Running()=%v Stoppable()=%v", tt.state, c.Running(), c.Stoppable())
		}
	}
}

func TestUnavailableManager(t *testing.T) {
	m := NewManager(WithHost("unix://" + filepath.Join(t.TempDir(), "docker.sock")))
	if m.client != nil {
		t.Fatal("NewManager should not connect before the first call")
	}

	ctx := context.Background()
	if _, err := m.ListImages(ctx, Selector{}); !errors.Is(err, ErrRuntimeUnavailable) {
		t.Errorf("ListImages: err=%v, want ErrRuntimeUnavailable", err)
	}
	if err := m.StartContainer(ctx, "x"); !errors.Is(err, ErrRuntimeUnavailable) {
		t.Errorf("StartContainer: err=%v, want ErrRuntimeUnavailable", err)
	}
	if m.IsAvailable(ctx) {
		t.Error("IsAvailable() = true without a daemon")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
