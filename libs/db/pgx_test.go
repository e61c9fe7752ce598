package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: CodeUniqueViolation})
	if !HasCode(err, CodeUniqueViolation) {
		t.Fatal("expected wrapped unique violation to match")
	}
	if HasCode(err, CodeExclusionViolation) {
		t.Fatal("unexpected match for exclusion violation")
	}
	if HasCode(fmt.Errorf("plain"), CodeUniqueViolation) {
		t.Fatal("non-pg error must not match")
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for missing pool")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{MaxConns: 4}.withDefaults()
	if o.MaxConns != 4 || o.MinConns != 1 || o.MaxConnLifetime == 0 || o.MaxConnIdleTime == 0 {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}
