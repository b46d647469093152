package docconv

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Domain is a family of conversions sharing one backend priority list.
type Domain string

const (
	DomainDocuments Domain = "documents"
	DomainSheets    Domain = "sheets"
	DomainWeb       Domain = "web"
	DomainPDF       Domain = "pdf"
)

// Domains lists every domain in report order.
var Domains = []Domain{DomainDocuments, DomainSheets, DomainWeb, DomainPDF}

// Backend is an external capability that can perform a conversion step.
type Backend interface {
	Name() string
	// Probe reports whether the backend can be used on this host.
	Probe(ctx context.Context) error
}

// DocumentBackend converts an office document or spreadsheet to PDF.
type DocumentBackend interface {
	Backend
	ConvertToPDF(ctx context.Context, input, output string) error
}

// BrowserBackend opens headless browser sessions.
type BrowserBackend interface {
	Backend
	Launch(ctx context.Context) (BrowserSession, error)
}

// Registry is the ordered list of candidates per domain, highest priority first.
type Registry map[Domain][]Backend

// Capability is one row of the probe table.
type Capability struct {
	Domain    Domain `json:"domain"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Selector probes every candidate once and serves ordered fallback lists.
// The probe table is rebuilt only by Refresh.
type Selector struct {
	registry Registry

	mu    sync.RWMutex
	table []Capability
}

// NewSelector probes all candidates of registry.
func NewSelector(ctx context.Context, registry Registry) *Selector {
	s := &Selector{registry: registry}
	s.Refresh(ctx)
	return s
}

// Refresh re-probes every candidate and replaces the capability table.
func (s *Selector) Refresh(ctx context.Context) {
	var table []Capability
	for _, domain := range Domains {
		for _, b := range s.registry[domain] {
			c := Capability{Domain: domain, Name: b.Name(), Available: true}
			if err := b.Probe(ctx); err != nil {
				c.Available = false
				c.Detail = err.Error()
			}
			table = append(table, c)
		}
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
}

// Capabilities returns a copy of the probe table.
func (s *Selector) Capabilities() []Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Capability, len(s.table))
	copy(out, s.table)
	return out
}

// Candidates returns the available backends of domain in priority order.
func (s *Selector) Candidates(domain Domain) []Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Backend
	for _, b := range s.registry[domain] {
		if s.availableLocked(domain, b.Name()) {
			out = append(out, b)
		}
	}
	return out
}

// Select returns the first available backend of domain.
func (s *Selector) Select(domain Domain) (Backend, bool) {
	candidates := s.Candidates(domain)
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[0], true
}

func (s *Selector) availableLocked(domain Domain, name string) bool {
	for _, c := range s.table {
		if c.Domain == domain && c.Name == name {
			return c.Available
		}
	}
	return false
}

// errFallThrough marks a backend failure after which the next candidate
// should be tried.
var errFallThrough = errors.New("backend unusable")

// tryBackends calls fn on each available candidate of domain until one
// succeeds. Only errors wrapping errFallThrough move on to the next
// candidate; any other error ends the attempt.
func tryBackends[B Backend](s *Selector, reporter Reporter, domain Domain, fn func(B) error) error {
	var errs []error
	tried := 0
	for _, candidate := range s.Candidates(domain) {
		b, ok := candidate.(B)
		if !ok {
			continue
		}
		tried++
		reporter.Log(fmt.Sprintf("  using %s", b.Name()))
		err := fn(b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errFallThrough) {
			return err
		}
		reporter.Log(fmt.Sprintf("  %s failed: %v", b.Name(), err))
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	if tried == 0 {
		return fmt.Errorf("%w: %s", ErrToolUnavailable, domain)
	}
	return fmt.Errorf("%w: all %s backends failed: %w", ErrExternalOperation, domain, errors.Join(errs...))
}
