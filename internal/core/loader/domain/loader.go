// Package domain contains the core types shared by the batch loading
// components: binding strategies, batch specs and loader statements.
package domain

import (
	"fmt"

	"github.com/satishbabariya/ormcore/internal/core/session"
)

// StrategyKind selects how a batch of keys is passed to SQL.
type StrategyKind int

const (
	// InlineParameters binds one positional parameter per key.
	InlineParameters StrategyKind = iota
	// SingleArrayParameter binds every key as one array-typed parameter.
	SingleArrayParameter
)

// String implements fmt.Stringer.
func (k StrategyKind) String() string {
	switch k {
	case InlineParameters:
		return "inline"
	case SingleArrayParameter:
		return "array"
	default:
		return "unknown"
	}
}

// ParseStrategyKind parses "inline" or "array".
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch s {
	case "inline":
		return InlineParameters, nil
	case "array":
		return SingleArrayParameter, nil
	default:
		return 0, fmt.Errorf("unknown binding strategy %q", s)
	}
}

// BindingStrategy is the tagged variant {InlineParameters(count), SingleArrayParameter}.
type BindingStrategy struct {
	Kind StrategyKind
	// Count is the number of inline placeholders; zero for the array strategy.
	Count int
}

// Inline returns the inline strategy for n keys.
func Inline(n int) BindingStrategy {
	return BindingStrategy{Kind: InlineParameters, Count: n}
}

// ArrayParameter returns the single-array strategy.
func ArrayParameter() BindingStrategy {
	return BindingStrategy{Kind: SingleArrayParameter}
}

// String implements fmt.Stringer.
func (s BindingStrategy) String() string {
	if s.Kind == InlineParameters {
		return fmt.Sprintf("inline(%d)", s.Count)
	}
	return s.Kind.String()
}

// BatchSpec pairs the configured upper bound of keys per statement with the
// number of keys actually bound for one execution.
type BatchSpec struct {
	DomainBatchSizeMax int
	ActualBatchSize    int
}

// Valid reports whether 1 <= ActualBatchSize <= DomainBatchSizeMax.
func (s BatchSpec) Valid() bool {
	return s.ActualBatchSize >= 1 && s.ActualBatchSize <= s.DomainBatchSizeMax
}

// LoaderStatement is a compiled, reusable SELECT for one entity and strategy.
// It carries no per-call state and is safe for concurrent use.
type LoaderStatement struct {
	Entity   string
	Strategy BindingStrategy
	SQL      string
	// ParameterCount is the number of bind parameters the SQL expects.
	ParameterCount int
	// Columns lists the selected columns in order, identifier first.
	Columns []string
}

// LoadOptions carries per-load hints.
type LoadOptions struct {
	LockMode session.LockMode
	// ReadOnly overrides the session default when non-nil.
	ReadOnly *bool
}

// ResolveReadOnly returns the effective read-only flag.
func (o LoadOptions) ResolveReadOnly(sessionDefault bool) bool {
	if o.ReadOnly != nil {
		return *o.ReadOnly
	}
	return sessionDefault
}
