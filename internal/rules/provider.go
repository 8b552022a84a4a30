package rules

import (
	"sync"

	"github.com/vaxcast/vaxcast/internal/engine"
)

// Provider holds the process-lifetime active rule set. The set itself
// is immutable; Swap replaces the whole catalogue atomically so
// concurrent evaluations always see a consistent version.
type Provider struct {
	mu      sync.RWMutex
	rs      *engine.RuleSet
	version string
}

// NewProvider creates a provider with an initial rule set and version
// label (for example "builtin" or a stored rule-set id).
func NewProvider(rs *engine.RuleSet, version string) *Provider {
	return &Provider{rs: rs, version: version}
}

// Active returns the current rule set and its version label.
func (p *Provider) Active() (*engine.RuleSet, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rs, p.version
}

// Swap replaces the active rule set.
func (p *Provider) Swap(rs *engine.RuleSet, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rs = rs
	p.version = version
}
