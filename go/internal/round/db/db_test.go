package db

import (
	"database/sql"
	"testing"
)

func TestWithTxBindsTransaction(t *testing.T) {
	q := New(nil)
	var tx *sql.Tx

	qtx := q.WithTx(tx)
	if qtx == q {
		t.Fatal("WithTx returned the outer queries")
	}
	if _, ok := qtx.db.(*sql.Tx); !ok {
		t.Errorf("WithTx bound %T, want *sql.Tx", qtx.db)
	}
	if q.db != nil {
		t.Errorf("outer queries rebound to %T", q.db)
	}
}
