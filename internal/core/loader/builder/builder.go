// Package builder renders the batch SELECT statements of an entity using
// squirrel, in the placeholder style of the target database.
package builder

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/satishbabariya/ormcore/internal/adapters/database"
	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/core/metadata"
)

// Alias is the table alias used by every loader statement.
const Alias = "t"

// ErrNoArrayPredicate is returned when the dialect cannot express a single
// array parameter.
var ErrNoArrayPredicate = errors.New("dialect has no array parameter predicate")

// Builder builds loader statements for one database.
type Builder struct {
	features database.Features
}

// New creates a builder for the given driver features.
func New(features database.Features) *Builder {
	if features.Placeholder == nil {
		features.Placeholder = sq.Question
	}
	return &Builder{features: features}
}

// Features returns the driver features the builder renders for.
func (b *Builder) Features() database.Features {
	return b.features
}

// Inline builds
//
//	SELECT t.<id>, t.<cols...> FROM <table> t WHERE t.<id> IN (?, ..., ?)
//
// with exactly n placeholders.
func (b *Builder) Inline(desc *metadata.EntityDescriptor, n int) (domain.LoaderStatement, error) {
	if n < 1 {
		return domain.LoaderStatement{}, fmt.Errorf("inline statement for %s needs at least one key, got %d", desc.Name, n)
	}
	if limit := b.features.MaxBindParameters; limit > 0 && n > limit {
		return domain.LoaderStatement{}, fmt.Errorf("inline statement for %s: %d keys exceed the %d parameter limit", desc.Name, n, limit)
	}

	query := b.selectFrom(desc).Where(sq.Eq{qualify(desc.Identifier.Column): make([]interface{}, n)})
	return b.render(desc, domain.Inline(n), query)
}

// Array builds a SELECT that binds every key through one array parameter,
// using the dialect's array predicate.
func (b *Builder) Array(desc *metadata.EntityDescriptor) (domain.LoaderStatement, error) {
	if !b.features.SupportsArrayParameters() {
		return domain.LoaderStatement{}, ErrNoArrayPredicate
	}

	pred := fmt.Sprintf(b.features.ArrayPredicate, qualify(desc.Identifier.Column))
	query := b.selectFrom(desc).Where(pred, nil)
	return b.render(desc, domain.ArrayParameter(), query)
}

func (b *Builder) selectFrom(desc *metadata.EntityDescriptor) sq.SelectBuilder {
	columns := desc.Columns()
	selected := make([]string, len(columns))
	for i, col := range columns {
		selected[i] = qualify(col)
	}
	return sq.Select(selected...).
		From(desc.Table + " " + Alias).
		PlaceholderFormat(b.features.Placeholder)
}

func (b *Builder) render(desc *metadata.EntityDescriptor, strategy domain.BindingStrategy, query sq.SelectBuilder) (domain.LoaderStatement, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return domain.LoaderStatement{}, fmt.Errorf("render %s statement for %s: %w", strategy, desc.Name, err)
	}
	return domain.LoaderStatement{
		Entity:         desc.Name,
		Strategy:       strategy,
		SQL:            sql,
		ParameterCount: len(args),
		Columns:        desc.Columns(),
	}, nil
}

func qualify(column string) string {
	return Alias + "." + column
}
