package service

import (
	"sync"

	"github.com/ludo-technologies/covscan/domain"
)

// ViolationCollector is the default ViolationEmitter: it keeps violations in
// emission order
type ViolationCollector struct {
	mu         sync.Mutex
	violations []domain.Violation
}

// NewViolationCollector creates an empty collector
func NewViolationCollector() *ViolationCollector {
	return &ViolationCollector{}
}

// Emit records v
func (c *ViolationCollector) Emit(v domain.Violation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.violations = append(c.violations, v)
}

// Violations returns a copy of the recorded violations
func (c *ViolationCollector) Violations() []domain.Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Violation, len(c.violations))
	copy(out, c.violations)
	return out
}

// Len returns the number of recorded violations
func (c *ViolationCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.violations)
}
