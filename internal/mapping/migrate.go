package mapping

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jmatsushita/taslite/internal/db"
	"github.com/jmatsushita/taslite/internal/errs"
	"github.com/jmatsushita/taslite/internal/tasl"
)

// Source is the subset of *db.DB the migration driver reads from: a
// Getter for dereference, plus the per-class cursor Migrate walks in id
// order.
type Source interface {
	Getter
	Schema() *tasl.Schema
	Entries(ctx context.Context, key string) (*db.ValueIter, error)
}

// Migrate implements spec.md §4.7's migrate(mapping, targetPath): it
// requires mapping.Source to structurally equal source's own schema,
// creates a fresh database at targetPath under mapping.Target, and for
// every rule, replays each source element through the mapping expression,
// writing the result at the same id in the target.
//
// Grounded on internal/engine's action-dispatch loop, generalized from
// dispatching named actions against a static argument list to evaluating
// mapping expressions against a live source handle.
func Migrate(ctx context.Context, source Source, m *tasl.Mapping, targetPath string) (*db.DB, error) {
	if !source.Schema().Equal(m.Source) {
		return nil, &errs.SchemaMismatchError{Reason: "mapping source schema does not match the source database's schema"}
	}

	target, err := db.Create(ctx, targetPath, m.Target)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.Must(uuid.NewV7()).String()
	for _, rule := range m.Rules {
		if err := applyRule(ctx, source, target, m.Target, rule, correlationID); err != nil {
			target.Close()
			return nil, fmt.Errorf("rule %s <= %s: %w", rule.Target, rule.Source, err)
		}
	}
	return target, nil
}

func applyRule(ctx context.Context, source Source, target *db.DB, targetSchema *tasl.Schema, rule tasl.ClassRule, correlationID string) error {
	sourceClass, ok := source.Schema().Class(rule.Source)
	if !ok {
		return &errs.LookupError{Reason: fmt.Sprintf("unknown source class %q", rule.Source)}
	}
	targetClass, ok := targetSchema.Class(rule.Target)
	if !ok {
		return &errs.LookupError{Reason: fmt.Sprintf("unknown target class %q", rule.Target)}
	}

	it, err := source.Entries(ctx, rule.Source)
	if err != nil {
		return err
	}
	defer it.Close()

	var n int
	for {
		id, value, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		env := Env{rule.ID: binding{Type: sourceClass.Type, Value: value}}
		result, err := Eval(ctx, rule.Value, targetClass.Type, env, source.Schema(), source)
		if err != nil {
			return fmt.Errorf("element %d: %w", id, err)
		}
		if err := target.Set(ctx, rule.Target, id, result); err != nil {
			return fmt.Errorf("element %d: %w", id, err)
		}
		n++
	}
	slog.Debug("migration rule complete", "correlation_id", correlationID, "target", rule.Target, "source", rule.Source, "elements", n)
	return nil
}
