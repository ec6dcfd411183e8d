package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Repository is the credit account: an append-only transaction log plus the
// denormalized balance on the user row. Charge and Refund take the caller's
// transaction so credit movement commits or rolls back together with the
// appointment write it pays for.
type Repository struct {
	pool   postgres.Pool
	logger *logging.Logger
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool postgres.Pool, logger *logging.Logger) *Repository {
	if pool == nil {
		panic("credits: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{pool: pool, logger: logger.Component("credits")}
}

// Charge moves amount credits from the patient to the doctor inside q. The
// payer's balance is locked and re-checked here, so two racing bookings
// cannot both spend the same credits.
func (r *Repository) Charge(ctx context.Context, q postgres.Querier, patientID, doctorID uuid.UUID, amount int) error {
	var balance int
	err := q.QueryRow(ctx, `
		SELECT credits FROM users WHERE id = $1 FOR UPDATE
	`, patientID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("credits: lock payer balance: %w", err)
	}
	if balance < amount {
		return ErrInsufficientCredits
	}

	if err := r.append(ctx, q, patientID, -amount, TypeDeduction, ""); err != nil {
		return err
	}
	if err := r.append(ctx, q, doctorID, amount, TypeDeduction, ""); err != nil {
		return err
	}
	if err := r.adjustBalance(ctx, q, patientID, -amount); err != nil {
		return err
	}
	if err := r.adjustBalance(ctx, q, doctorID, amount); err != nil {
		return err
	}
	return nil
}

// Refund reverses an appointment charge inside q: the patient gets the
// amount back and the doctor is charged back.
func (r *Repository) Refund(ctx context.Context, q postgres.Querier, patientID, doctorID uuid.UUID, amount int) error {
	if err := r.append(ctx, q, patientID, amount, TypeRefund, ""); err != nil {
		return err
	}
	if err := r.append(ctx, q, doctorID, -amount, TypeChargeback, ""); err != nil {
		return err
	}
	if err := r.adjustBalance(ctx, q, patientID, amount); err != nil {
		return err
	}
	if err := r.adjustBalance(ctx, q, doctorID, -amount); err != nil {
		return err
	}
	return nil
}

// AllocateMonthly grants the plan's monthly allowance, at most once per
// (user, calendar month, plan). The user row is locked before the
// most-recent CREDIT_PURCHASE is read, so concurrent grants serialize and
// the loser sees the winner's row instead of appending a second allowance.
func (r *Repository) AllocateMonthly(ctx context.Context, userID uuid.UUID, plan string) (bool, error) {
	amount, ok := PlanCredits[plan]
	if !ok {
		return false, ErrUnknownPlan
	}

	granted := false
	err := postgres.RunInTx(ctx, r.pool, func(tx pgx.Tx) error {
		var balance int
		err := tx.QueryRow(ctx, `
			SELECT credits FROM users WHERE id = $1 FOR UPDATE
		`, userID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("credits: lock account: %w", err)
		}

		var lastPlan string
		var lastAt time.Time
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(package_id, ''), created_at
			FROM credit_transactions
			WHERE user_id = $1 AND type = $2
			ORDER BY created_at DESC
			LIMIT 1
		`, userID, TypePurchase).Scan(&lastPlan, &lastAt)
		switch {
		case err == nil:
			now := time.Now().UTC()
			if lastPlan == plan && lastAt.UTC().Format("2006-01") == now.Format("2006-01") {
				return nil
			}
		case errors.Is(err, pgx.ErrNoRows):
			// First allocation for this user.
		default:
			return fmt.Errorf("credits: last purchase lookup: %w", err)
		}

		if err := r.append(ctx, tx, userID, amount, TypePurchase, plan); err != nil {
			return err
		}
		if err := r.adjustBalance(ctx, tx, userID, amount); err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if granted {
		r.logger.Info("monthly credits allocated", "user_id", userID, "plan", plan, "amount", amount)
	}
	return granted, nil
}

// Balance reads the denormalized balance.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	if err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("credits: read balance: %w", err)
	}
	return balance, nil
}

// LedgerSum recomputes the balance from the transaction log. The log is the
// source of truth; this exists so audits and tests can check the
// denormalized column agrees with it.
func (r *Repository) LedgerSum(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("credits: ledger sum: %w", err)
	}
	return sum, nil
}

// ListTransactions returns the user's movements, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, COALESCE(package_id, ''), created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("credits: list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*Transaction
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txn.Type, &txn.PackageID, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("credits: scan transaction: %w", err)
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credits: list transactions: %w", err)
	}
	return txns, nil
}

func (r *Repository) append(ctx context.Context, q postgres.Querier, userID uuid.UUID, amount int, txnType TransactionType, packageID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO credit_transactions (id, user_id, amount, type, package_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, uuid.New(), userID, amount, txnType, packageID)
	if err != nil {
		return fmt.Errorf("credits: append transaction: %w", err)
	}
	return nil
}

func (r *Repository) adjustBalance(ctx context.Context, q postgres.Querier, userID uuid.UUID, delta int) error {
	tag, err := q.Exec(ctx, `
		UPDATE users SET credits = credits + $1 WHERE id = $2
	`, delta, userID)
	if err != nil {
		return fmt.Errorf("credits: adjust balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
