// Package pii cross-checks the static PII manifests of tenant-owned types against the
// configured lists of known and ambiguous PII field names. It runs once at startup.
package pii

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"tenant-storage-core/backend/internal/platform/apperr"
)

// Manifest declares a persisted type's fields and which of them hold PII.
type Manifest struct {
	Type   string
	Fields []string
	PII    []string
}

// Policy holds the configured field-name lists. Matching is case-insensitive.
type Policy struct {
	Known     []string
	Ambiguous []string
}

// DefaultPolicy is used when no field-name lists are configured.
var DefaultPolicy = Policy{
	Known: []string{
		"email", "full_name", "first_name", "last_name", "phone", "phone_number",
		"address", "street_address", "city", "postal_code", "zip_code",
		"ssn", "social_security_number", "date_of_birth", "birth_date",
		"ip_address", "last_login_ip",
	},
	Ambiguous: []string{"name", "title", "description", "notes", "definition"},
}

// Registry records manifests that passed the check.
type Registry struct {
	policy    Policy
	log       *zap.Logger
	mu        sync.RWMutex
	manifests map[string]Manifest
}

// NewRegistry returns an empty Registry enforcing policy.
func NewRegistry(policy Policy, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{policy: policy, log: log, manifests: make(map[string]Manifest)}
}

// Register validates m and records it. It fails when a field matching a known PII name is
// not declared, when a declared PII name is not a field, or when the type is already
// registered. Undeclared ambiguous fields are logged as warnings only.
func (r *Registry) Register(m Manifest) error {
	const op = "pii.Register"
	if m.Type == "" {
		return apperr.Configuration(op, "manifest has no type name")
	}
	fields := toSet(m.Fields)
	declared := toSet(m.PII)
	known := toSet(r.policy.Known)
	ambiguous := toSet(r.policy.Ambiguous)

	var err error
	for _, f := range sortedKeys(fields) {
		if declared[f] {
			continue
		}
		if known[f] {
			err = multierr.Append(err, fmt.Errorf("field %q matches a known PII name but is not declared", f))
			continue
		}
		if ambiguous[f] {
			r.log.Warn("possible undeclared PII field",
				zap.String("type", m.Type),
				zap.String("field", f),
			)
		}
	}
	for _, p := range sortedKeys(declared) {
		if !fields[p] {
			err = multierr.Append(err, fmt.Errorf("declared PII field %q is not a field of the type", p))
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.KindConfiguration, op, m.Type+": invalid PII manifest", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.manifests[m.Type]; dup {
		return apperr.Configuration(op, m.Type+": already registered")
	}
	r.manifests[m.Type] = m
	return nil
}

// RegisterAll registers every manifest and returns all failures combined.
func (r *Registry) RegisterAll(ms ...Manifest) error {
	var err error
	for _, m := range ms {
		err = multierr.Append(err, r.Register(m))
	}
	return err
}

// PIIFields returns the declared PII fields of typ, sorted.
func (r *Registry) PIIFields(typ string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[typ]
	if !ok {
		return nil, false
	}
	return sortedKeys(toSet(m.PII)), true
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.manifests))
	for t := range r.manifests {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			s[n] = true
		}
	}
	return s
}

func sortedKeys(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
