package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// Migrator owns the schema for one set of tables.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Step names a Migrator for logs and errors.
type Step struct {
	Name     string
	Migrator Migrator
}

// Run applies every step in order and stops at the first failure.
func Run(ctx context.Context, logg *logger.Logger, steps ...Step) error {
	if logg == nil {
		logg = logger.Nop()
	}
	for _, step := range steps {
		if step.Migrator == nil {
			return fmt.Errorf("migration %q has no migrator", step.Name)
		}
		stepCtx := logg.WithField(ctx, "migration", step.Name)
		if err := step.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate %s: %w", step.Name, err)
		}
		logg.Debug(stepCtx, "migration applied")
	}
	logg.Info(logg.WithField(ctx, "steps", len(steps)), "migrations completed")
	return nil
}
