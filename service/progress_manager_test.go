package service

import (
	"bytes"
	"testing"

	"github.com/ludo-technologies/covscan/domain"
)

func TestNewProgressManager_Disabled(t *testing.T) {
	pm := NewProgressManager(false)
	if pm.IsInteractive() {
		t.Error("expected non-interactive progress manager when disabled")
	}
	if _, ok := pm.(*NoOpProgressManager); !ok {
		t.Errorf("expected NoOpProgressManager, got %T", pm)
	}
}

func TestNewProgressManager_CI(t *testing.T) {
	t.Setenv("CI", "true")

	// Even when enabled, CI never gets a progress bar
	pm := NewProgressManager(true)
	if pm.IsInteractive() {
		t.Error("expected non-interactive progress manager in CI")
	}
}

func TestIsInteractiveEnvironment_DumbTerminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("TERM", "dumb")

	if IsInteractiveEnvironment() {
		t.Error("TERM=dumb should not be interactive")
	}
}

func TestNoOpProgressManager(t *testing.T) {
	var pm domain.ProgressManager = &NoOpProgressManager{}

	if pm.IsInteractive() {
		t.Error("expected NoOpProgressManager.IsInteractive() to return false")
	}

	task := pm.StartTask("Processing reports", 3)
	if task == nil {
		t.Fatal("expected non-nil task from StartTask")
	}

	task.Increment(1)
	task.Describe("tests")
	task.Complete()
	pm.Close()
}

func TestProgressManagerImpl_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	pm := &ProgressManagerImpl{writer: &buf}

	if !pm.IsInteractive() {
		t.Error("ProgressManagerImpl should be interactive")
	}

	task := pm.StartTask("Processing reports", 2)
	task.Describe("tests")
	task.Increment(1)
	task.Increment(1)
	task.Complete()

	if len(pm.tasks) != 1 {
		t.Errorf("expected 1 tracked task, got %d", len(pm.tasks))
	}

	pm.Close()
	if pm.tasks != nil {
		t.Error("Close should release tracked tasks")
	}
	if buf.Len() == 0 {
		t.Error("expected progress output to be written")
	}
}
