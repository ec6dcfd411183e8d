package credits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestChargeMovesCreditsBothWays(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(4))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), patientID, -2, TypeDeduction, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), doctorID, 2, TypeDeduction, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(-2, patientID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(2, doctorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock, nil)
	if err := repo.Charge(context.Background(), mock, patientID, doctorID, AppointmentCost); err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestChargeInsufficientCredits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(1))

	repo := NewRepository(mock, nil)
	err = repo.Charge(context.Background(), mock, patientID, uuid.New(), AppointmentCost)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no writes should happen after a failed balance check: %v", err)
	}
}

func TestChargeUnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(patientID).
		WillReturnError(pgx.ErrNoRows)

	repo := NewRepository(mock, nil)
	if err := repo.Charge(context.Background(), mock, patientID, uuid.New(), 2); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefundIsExactInverse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	patientID := uuid.New()
	doctorID := uuid.New()

	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), patientID, 2, TypeRefund, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), doctorID, -2, TypeChargeback, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(2, patientID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(-2, doctorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock, nil)
	if err := repo.Refund(context.Background(), mock, patientID, doctorID, AppointmentCost); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateMonthlyIdempotentWithinMonth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(10))
	mock.ExpectQuery("SELECT (.+) FROM credit_transactions").
		WithArgs(userID, TypePurchase).
		WillReturnRows(pgxmock.NewRows([]string{"package_id", "created_at"}).
			AddRow("standard", time.Now().UTC()))
	mock.ExpectCommit()

	repo := NewRepository(mock, nil)
	allocated, err := repo.AllocateMonthly(context.Background(), userID, "standard")
	if err != nil {
		t.Fatalf("AllocateMonthly: %v", err)
	}
	if allocated {
		t.Fatal("expected no-op for same month and plan")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateMonthlyGrantsNewMonth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	userID := uuid.New()
	lastMonth := time.Now().UTC().AddDate(0, -2, 0)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM credit_transactions").
		WithArgs(userID, TypePurchase).
		WillReturnRows(pgxmock.NewRows([]string{"package_id", "created_at"}).
			AddRow("standard", lastMonth))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), userID, 10, TypePurchase, "standard").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(10, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewRepository(mock, nil)
	allocated, err := repo.AllocateMonthly(context.Background(), userID, "standard")
	if err != nil {
		t.Fatalf("AllocateMonthly: %v", err)
	}
	if !allocated {
		t.Fatal("expected allocation for stale month")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAllocateMonthlyFirstGrant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM credit_transactions").
		WithArgs(userID, TypePurchase).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), userID, 2, TypePurchase, "free_user").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE users SET credits").
		WithArgs(2, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewRepository(mock, nil)
	allocated, err := repo.AllocateMonthly(context.Background(), userID, "free_user")
	if err != nil {
		t.Fatalf("AllocateMonthly: %v", err)
	}
	if !allocated {
		t.Fatal("expected first allocation to grant")
	}
}

func TestAllocateMonthlySecondCallerSeesCommittedGrant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	// Concurrent grants serialize on the user row lock. Whoever acquires
	// the lock second reads inside its own transaction, sees the row the
	// winner committed this month, and must not append a second allowance.
	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(12))
	mock.ExpectQuery("SELECT (.+) FROM credit_transactions").
		WithArgs(userID, TypePurchase).
		WillReturnRows(pgxmock.NewRows([]string{"package_id", "created_at"}).
			AddRow("standard", time.Now().UTC()))
	mock.ExpectCommit()

	repo := NewRepository(mock, nil)
	allocated, err := repo.AllocateMonthly(context.Background(), userID, "standard")
	if err != nil {
		t.Fatalf("AllocateMonthly: %v", err)
	}
	if allocated {
		t.Fatal("expected loser of the grant race to be a no-op")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no second allowance may be appended: %v", err)
	}
}

func TestAllocateMonthlyUnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT credits FROM users WHERE id").
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewRepository(mock, nil)
	if _, err := repo.AllocateMonthly(context.Background(), userID, "standard"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAllocateMonthlyUnknownPlan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewRepository(mock, nil)
	if _, err := repo.AllocateMonthly(context.Background(), uuid.New(), "platinum"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestLedgerSumAndBalanceAgree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery("SELECT credits FROM users").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(6))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM credit_transactions`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(6))

	repo := NewRepository(mock, nil)
	balance, err := repo.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	sum, err := repo.LedgerSum(context.Background(), userID)
	if err != nil {
		t.Fatalf("LedgerSum: %v", err)
	}
	if balance != sum {
		t.Fatalf("balance %d disagrees with ledger sum %d", balance, sum)
	}
}
