package migrate

import (
	"context"
	"errors"
	"testing"
)

type recordingMigrator struct {
	name  string
	calls *[]string
	err   error
}

func (m recordingMigrator) Migrate(context.Context) error {
	*m.calls = append(*m.calls, m.name)
	return m.err
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	var calls []string
	err := Run(context.Background(), nil,
		Step{Name: "users", Migrator: recordingMigrator{name: "users", calls: &calls}},
		Step{Name: "products", Migrator: recordingMigrator{name: "products", calls: &calls}},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(calls) != 2 || calls[0] != "users" || calls[1] != "products" {
		t.Fatalf("unexpected order %v", calls)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	err := Run(context.Background(), nil,
		Step{Name: "users", Migrator: recordingMigrator{name: "users", calls: &calls, err: boom}},
		Step{Name: "products", Migrator: recordingMigrator{name: "products", calls: &calls}},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one call, got %v", calls)
	}
}

func TestRunRejectsMissingMigrator(t *testing.T) {
	if err := Run(context.Background(), nil, Step{Name: "orders"}); err == nil {
		t.Fatal("expected error for nil migrator")
	}
}
