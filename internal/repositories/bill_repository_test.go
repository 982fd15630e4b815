package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDeadlock(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	if !isDeadlock(deadlock) {
		t.Error("deadlock abort not recognized")
	}
	if !isDeadlock(fmt.Errorf("failed to record payment: %w", deadlock)) {
		t.Error("wrapped deadlock abort not recognized")
	}
	if isDeadlock(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation treated as a deadlock")
	}
	if isDeadlock(errors.New("deadlock detected")) {
		t.Error("plain error treated as a deadlock")
	}
}
