package token

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newLedgerMock(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresLedger(db), mock
}

func TestGenerationDefaultsToZero(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectQuery(`SELECT generation FROM session_generations WHERE subject = \$1`).
		WithArgs("acc-1").
		WillReturnError(sql.ErrNoRows)

	gen, err := l.Generation(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("Generation() error: %v", err)
	}
	if gen != 0 {
		t.Fatalf("expected generation 0 for unseen subject, got %d", gen)
	}
}

func TestIncrementGenerationUpserts(t *testing.T) {
	l, mock := newLedgerMock(t)

	mock.ExpectQuery(`INSERT INTO session_generations .+ ON CONFLICT \(subject\) DO UPDATE`).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(4))

	gen, err := l.IncrementGeneration(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("IncrementGeneration() error: %v", err)
	}
	if gen != 4 {
		t.Fatalf("expected generation 4, got %d", gen)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestDenylistAndLookup(t *testing.T) {
	l, mock := newLedgerMock(t)
	exp := time.Now().UTC().Add(time.Hour)

	mock.ExpectExec(`INSERT INTO revoked_tokens .+ ON CONFLICT \(jti\) DO NOTHING`).
		WithArgs("jti-1", "acc-1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT 1 FROM revoked_tokens WHERE jti = \$1`).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM revoked_tokens WHERE jti = \$1`).
		WithArgs("jti-2").
		WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	if err := l.Denylist(ctx, "jti-1", "acc-1", exp); err != nil {
		t.Fatalf("Denylist() error: %v", err)
	}
	if ok, err := l.IsDenylisted(ctx, "jti-1"); err != nil || !ok {
		t.Fatalf("IsDenylisted(jti-1) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := l.IsDenylisted(ctx, "jti-2"); err != nil || ok {
		t.Fatalf("IsDenylisted(jti-2) = %v, %v; want false, nil", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	l, mock := newLedgerMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`DELETE FROM revoked_tokens WHERE expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := l.PurgeExpired(context.Background(), now); err != nil {
		t.Fatalf("PurgeExpired() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
