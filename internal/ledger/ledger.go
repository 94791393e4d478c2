// Package ledger keeps each group's savings balance consistent with its completed payments.
//
// Every mutation runs in one database transaction that re-reads the actor's admin flag,
// changes the balance and appends the matching payment_history row. Payment credits and
// debits use an atomic increment at the store; manual adjustments lock the group's row.
package ledger

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strconv" // Cache keys
	"strings" // Input trimming
	"time"    // Timestamps

	"group_savings/internal/domain"  // Importing domain models
	"group_savings/internal/metrics" // Ledger counters
	"group_savings/internal/utils"   // Cache helpers

	"github.com/google/uuid"       // Generated transaction references
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Row locking
)

// BalanceCacheTTL bounds how stale a cached balance may be
const BalanceCacheTTL = 30 * time.Second

// Ledger is the single writer of group_savings and payment_history
type Ledger struct {
	db  *gorm.DB      // Relational store
	rdb *redis.Client // Optional balance cache, nil disables it
}

// New returns a Ledger over db; rdb may be nil
func New(db *gorm.DB, rdb *redis.Client) *Ledger {
	return &Ledger{db: db, rdb: rdb}
}

// Balance is the current state of one group's savings
type Balance struct {
	GroupID     uint          `json:"group_id"`             // Group
	Total       domain.Amount `json:"total"`                // Current balance
	Goal        domain.Amount `json:"goal"`                 // Savings target
	Progress    float64       `json:"progress"`             // Total as a percentage of Goal
	Note        *string       `json:"note,omitempty"`       // Reason of the last change
	LastUpdated *time.Time    `json:"last_updated"`         // Time of the last change
	UpdatedBy   *string       `json:"updated_by,omitempty"` // Actor of the last change
}

// BalanceCacheKey is the Redis key of a group's cached balance
func BalanceCacheKey(groupID uint) string {
	return "savings:group:" + strconv.FormatUint(uint64(groupID), 10)
}

// cachedBalance is a Balance tagged with the cache generation it was read under
type cachedBalance struct {
	Gen     int64   `json:"gen"`     // Generation before the store read
	Balance Balance `json:"balance"` // Value read from the store
}

// Balance returns the group's balance, or zero with the default goal when nothing was saved yet.
// A cached value is served only while no write has bumped the group's generation since it was read.
// If a bump fails the cached value can be stale for up to BalanceCacheTTL.
func (l *Ledger) Balance(ctx context.Context, groupID uint) (Balance, error) {
	key := BalanceCacheKey(groupID)
	gen, genErr := utils.CacheGeneration(ctx, l.rdb, key) // Read before the store read
	if genErr == nil {
		var entry cachedBalance
		if found, err := utils.GetCache(ctx, l.rdb, key, &entry); err == nil && found && entry.Gen == gen {
			return entry.Balance, nil
		}
	}
	var b Balance
	var row domain.GroupSavings
	err := l.db.WithContext(ctx).Where("group_id = ?", groupID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		b = Balance{GroupID: groupID, Goal: domain.DefaultGoal}
	case err != nil:
		return Balance{}, fmt.Errorf("read group savings: %w", err)
	default:
		b = balanceOf(&row)
	}
	b.Progress = b.Total.Percent(b.Goal)
	if genErr == nil {
		_ = utils.SetCache(ctx, l.rdb, key, cachedBalance{Gen: gen, Balance: b}, BalanceCacheTTL)
	}
	return b, nil
}

func balanceOf(row *domain.GroupSavings) Balance {
	return Balance{
		GroupID:     row.GroupID,
		Total:       row.TotalAmount,
		Goal:        row.GoalAmount,
		Progress:    row.TotalAmount.Percent(row.GoalAmount),
		Note:        row.Note,
		LastUpdated: row.LastUpdatedAt,
		UpdatedBy:   row.UpdatedBy,
	}
}

// Adjustment is a manual override of a group's balance
type Adjustment struct {
	GroupID uint           // Group to adjust
	Total   domain.Amount  // New absolute total
	Goal    *domain.Amount // Optional new goal
	Note    string         // Reason, required for a history row
}

// ApplyManualAdjustment sets the group's total (and goal) to absolute values.
// A non-empty note and a non-zero change append one deposit or withdrawal row.
func (l *Ledger) ApplyManualAdjustment(ctx context.Context, actorID string, adj Adjustment) (Balance, error) {
	const op = "manual_adjustment"
	var delta domain.Amount
	note := strings.TrimSpace(adj.Note)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAdmin(tx, actorID, "update group savings"); err != nil {
			return err
		}
		if adj.Total < 0 {
			return invalid("total_amount", "must not be negative")
		}
		if adj.Goal != nil && *adj.Goal <= 0 {
			return invalid("goal_amount", "must be greater than zero")
		}
		if err := groupExists(tx, adj.GroupID); err != nil {
			return err
		}
		row, err := lockSavings(tx, adj.GroupID)
		if err != nil {
			return err
		}
		delta = adj.Total - row.TotalAmount
		now := time.Now()
		updates := map[string]any{
			"total_amount":    adj.Total, // Absolute set, serialized by the row lock
			"last_updated_at": now,
			"updated_by":      actorID,
		}
		if adj.Goal != nil {
			updates["goal_amount"] = *adj.Goal
		}
		if note != "" {
			updates["note"] = note
		}
		if err := tx.Model(row).Updates(updates).Error; err != nil {
			return fmt.Errorf("update group savings: %w", err)
		}
		if note == "" || delta == 0 {
			return nil // Only explained, effective changes are audited
		}
		return appendHistory(tx, adj.GroupID, actorID, delta, note, now)
	})
	l.finish(ctx, op, &adj.GroupID, err, logrus.Fields{
		"actor_id":  actorID,     // Admin performing the change
		"group_id":  adj.GroupID, // Group adjusted
		"new_total": adj.Total.String(),
		"delta":     delta.String(),
	})
	if err != nil {
		return Balance{}, err
	}
	if delta != 0 {
		metrics.LedgerMovedMinor.WithLabelValues(historyType(delta)).Add(float64(delta.Abs()))
	}
	return l.Balance(ctx, adj.GroupID)
}

// NewPayment is an admin-entered payment
type NewPayment struct {
	UserID        string        // Paying member
	Amount        domain.Amount // Must be positive
	Month         string        // Free-text label, required
	DueDate       time.Time     // Required
	PaymentDate   *time.Time    // Present means the payment is completed
	PaymentMethod string        // Defaults to cash
	TransactionID string        // Defaults to MANUAL-<uuid>
	Notes         *string       // Optional notes
}

func (p *NewPayment) validate() error {
	switch {
	case strings.TrimSpace(p.UserID) == "":
		return invalid("user_id", "is required")
	case p.Amount <= 0:
		return invalid("amount", "must be greater than zero")
	case strings.TrimSpace(p.Month) == "":
		return invalid("month", "is required")
	case p.DueDate.IsZero():
		return invalid("due_date", "is required")
	}
	return nil
}

// RecordPayment inserts a payment. When it is already completed and the payer belongs to a
// group, the group's balance is incremented by the amount and a deposit row is appended.
func (l *Ledger) RecordPayment(ctx context.Context, actorID string, in NewPayment) (*domain.Payment, error) {
	const op = "record_payment"
	var p domain.Payment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAdmin(tx, actorID, "record payments"); err != nil {
			return err
		}
		if err := in.validate(); err != nil {
			return err
		}
		payer, err := findProfile(tx, in.UserID)
		if err != nil {
			return err
		}
		now := time.Now()
		p = domain.Payment{
			UserID:        payer.ID,
			Amount:        in.Amount,
			Month:         strings.TrimSpace(in.Month),
			DueDate:       in.DueDate,
			PaymentDate:   in.PaymentDate,
			PaymentMethod: orDefault(in.PaymentMethod, domain.DefaultPaymentMethod),
			TransactionID: orDefault(in.TransactionID, "MANUAL-"+uuid.NewString()),
			Notes:         in.Notes,
			RecordedBy:    &actorID,
		}
		p.SetCompleted(in.PaymentDate != nil, now)
		if p.Completed() && payer.GroupID != nil {
			p.GroupID = payer.GroupID // Attribute the credit to the payer's group
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if p.GroupID == nil {
			return nil // Pending, or the payer has no group
		}
		return move(tx, *p.GroupID, actorID, p.Amount, "Payment for "+p.Month, now)
	})
	l.finish(ctx, op, groupOf(&p), err, logrus.Fields{
		"actor_id":   actorID,   // Admin recording the payment
		"user_id":    in.UserID, // Paying member
		"amount":     in.Amount.String(),
		"month":      in.Month,
		"payment_id": p.ID,
	})
	if err != nil {
		return nil, err
	}
	if p.GroupID != nil {
		metrics.LedgerMovedMinor.WithLabelValues(domain.HistoryDeposit).Add(float64(p.Amount))
	}
	return &p, nil
}

// ReversePayment deletes a payment, first debiting its group when it had been credited
func (l *Ledger) ReversePayment(ctx context.Context, actorID string, paymentID uint) error {
	const op = "reverse_payment"
	var p domain.Payment
	var debited bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAdmin(tx, actorID, "delete payments"); err != nil {
			return err
		}
		if err := lockPayment(tx, paymentID, &p); err != nil {
			return err
		}
		if p.Completed() && p.GroupID != nil {
			if err := move(tx, *p.GroupID, actorID, -p.Amount, "Payment record deleted for "+p.Month, time.Now()); err != nil {
				return err
			}
			debited = true
		}
		if err := tx.Delete(&domain.Payment{}, p.ID).Error; err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		return nil
	})
	l.finish(ctx, op, groupOf(&p), err, logrus.Fields{
		"actor_id":   actorID,   // Admin deleting the payment
		"payment_id": paymentID, // Deleted payment
		"debited":    debited,
	})
	if err == nil && debited {
		metrics.LedgerMovedMinor.WithLabelValues(domain.HistoryWithdrawal).Add(float64(p.Amount))
		l.warnIfNegative(ctx, *p.GroupID)
	}
	return err
}

// PaymentPatch is a partial update of a payment; nil fields are left unchanged
type PaymentPatch struct {
	Amount        *domain.Amount // New amount
	Month         *string        // New month label
	DueDate       *time.Time     // New due date
	PaymentDate   *time.Time     // Setting it without Status completes the payment
	PaymentMethod *string        // New method
	TransactionID *string        // New reference
	Notes         *string        // New notes
	Status        *string        // pending or completed
}

// UpdatePaymentStatus applies patch to a payment. pending→completed credits the payer's group,
// completed→pending debits the group that was credited; other transitions leave the ledger alone.
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, actorID string, paymentID uint, patch PaymentPatch) (*domain.Payment, error) {
	const op = "update_payment"
	var p domain.Payment
	var moved domain.Amount
	var touched *uint
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireAdmin(tx, actorID, "update payments"); err != nil {
			return err
		}
		if err := lockPayment(tx, paymentID, &p); err != nil {
			return err
		}
		wasDone := p.Completed()
		wantDone, err := patch.targetState(wasDone)
		if err != nil {
			return err
		}
		if err := patch.validate(&p, wasDone, wantDone); err != nil {
			return err
		}
		oldAmount, oldMonth, oldGroup := p.Amount, p.Month, p.GroupID
		patch.apply(&p)
		now := time.Now()
		p.SetCompleted(wantDone, now)

		switch {
		case !wasDone && wantDone:
			payer, err := findProfile(tx, p.UserID)
			if err != nil {
				return err
			}
			p.GroupID = payer.GroupID
			if p.GroupID != nil {
				if err := move(tx, *p.GroupID, actorID, p.Amount, "Payment recorded for "+p.Month, now); err != nil {
					return err
				}
				moved, touched = p.Amount, p.GroupID
			}
		case wasDone && !wantDone:
			p.GroupID = nil
			if oldGroup != nil {
				if err := move(tx, *oldGroup, actorID, -oldAmount, "Payment marked pending for "+oldMonth, now); err != nil {
					return err
				}
				moved, touched = -oldAmount, oldGroup
			}
		}
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	l.finish(ctx, op, touched, err, logrus.Fields{
		"actor_id":   actorID,   // Admin updating the payment
		"payment_id": paymentID, // Updated payment
		"moved":      moved.String(),
	})
	if err != nil {
		return nil, err
	}
	if moved != 0 {
		metrics.LedgerMovedMinor.WithLabelValues(historyType(moved)).Add(float64(moved.Abs()))
		if moved < 0 {
			l.warnIfNegative(ctx, *touched)
		}
	}
	return &p, nil
}

func (pp *PaymentPatch) targetState(wasDone bool) (bool, error) {
	if pp.Status != nil {
		switch *pp.Status {
		case domain.PaymentCompleted:
			return true, nil
		case domain.PaymentPending:
			if pp.PaymentDate != nil {
				return false, invalid("payment_date", "must be empty for a pending payment")
			}
			return false, nil
		default:
			return false, invalid("status", "must be %q or %q", domain.PaymentPending, domain.PaymentCompleted)
		}
	}
	if pp.PaymentDate != nil {
		return true, nil
	}
	return wasDone, nil
}

func (pp *PaymentPatch) validate(p *domain.Payment, wasDone, wantDone bool) error {
	if pp.Amount != nil {
		if *pp.Amount <= 0 {
			return invalid("amount", "must be greater than zero")
		}
		if wasDone && wantDone && *pp.Amount != p.Amount {
			return invalid("amount", "cannot change while the payment is completed, mark it pending first")
		}
	}
	if pp.Month != nil && strings.TrimSpace(*pp.Month) == "" {
		return invalid("month", "must not be empty")
	}
	if pp.DueDate != nil && pp.DueDate.IsZero() {
		return invalid("due_date", "must not be empty")
	}
	return nil
}

func (pp *PaymentPatch) apply(p *domain.Payment) {
	if pp.Amount != nil {
		p.Amount = *pp.Amount
	}
	if pp.Month != nil {
		p.Month = strings.TrimSpace(*pp.Month)
	}
	if pp.DueDate != nil {
		p.DueDate = *pp.DueDate
	}
	if pp.PaymentDate != nil {
		p.PaymentDate = pp.PaymentDate
	}
	if pp.PaymentMethod != nil {
		p.PaymentMethod = orDefault(*pp.PaymentMethod, domain.DefaultPaymentMethod)
	}
	if pp.TransactionID != nil && strings.TrimSpace(*pp.TransactionID) != "" {
		p.TransactionID = strings.TrimSpace(*pp.TransactionID)
	}
	if pp.Notes != nil {
		p.Notes = pp.Notes
	}
}

// History returns a page of the group's history rows, newest first, and the total row count
func (l *Ledger) History(ctx context.Context, groupID uint, page, pageSize int) ([]domain.PaymentHistory, int64, error) {
	q := l.db.WithContext(ctx).Model(&domain.PaymentHistory{}).Where("group_id = ?", groupID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count payment history: %w", err)
	}
	var rows []domain.PaymentHistory
	err := q.Order("created_at desc").Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list payment history: %w", err)
	}
	return rows, total, nil
}

// requireAdmin re-reads the actor's admin flag inside the caller's transaction
func requireAdmin(tx *gorm.DB, actorID, action string) error {
	var p domain.Profile
	err := tx.Select("id", "is_admin").Where("id = ?", actorID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &PermissionError{Action: action}
	}
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !p.IsAdmin {
		return &PermissionError{Action: action}
	}
	return nil
}

func groupExists(tx *gorm.DB, groupID uint) error {
	var g domain.Group
	err := tx.Select("id").Where("id = ?", groupID).Take(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("group", groupID)
	}
	if err != nil {
		return fmt.Errorf("find group: %w", err)
	}
	return nil
}

func findProfile(tx *gorm.DB, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := tx.Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func lockPayment(tx *gorm.DB, id uint, p *domain.Payment) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("payment", id)
	}
	if err != nil {
		return fmt.Errorf("find payment: %w", err)
	}
	return nil
}

// lockSavings returns the group's savings row locked for update, creating it when missing
func lockSavings(tx *gorm.DB, groupID uint) (*domain.GroupSavings, error) {
	var row domain.GroupSavings
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("group_id = ?", groupID).Take(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lock group savings: %w", err)
	}
	row = domain.GroupSavings{GroupID: groupID, TotalAmount: 0, GoalAmount: domain.DefaultGoal}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create group savings: %w", err)
	}
	return &row, nil
}

// move adds delta to the group's total with an atomic increment and audits it
func move(tx *gorm.DB, groupID uint, actorID string, delta domain.Amount, note string, at time.Time) error {
	if _, err := lockSavings(tx, groupID); err != nil {
		return err
	}
	err := tx.Model(&domain.GroupSavings{}).Where("group_id = ?", groupID).Updates(map[string]any{
		"total_amount":    gorm.Expr("total_amount + ?", int64(delta)),
		"last_updated_at": at,
		"updated_by":      actorID,
		"note":            note,
	}).Error
	if err != nil {
		return fmt.Errorf("increment group savings: %w", err)
	}
	return appendHistory(tx, groupID, actorID, delta, note, at)
}

func appendHistory(tx *gorm.DB, groupID uint, actorID string, delta domain.Amount, note string, at time.Time) error {
	h := domain.PaymentHistory{
		GroupID:   groupID,
		UserID:    actorID,
		Type:      historyType(delta),
		Amount:    delta.Abs(),
		Note:      &note,
		CreatedAt: at,
	}
	if err := tx.Create(&h).Error; err != nil {
		return fmt.Errorf("append payment history: %w", err)
	}
	return nil
}

func historyType(delta domain.Amount) string {
	if delta > 0 {
		return domain.HistoryDeposit
	}
	return domain.HistoryWithdrawal
}

// finish logs the outcome, counts it and drops the cached balance after a write
func (l *Ledger) finish(ctx context.Context, op string, groupID *uint, err error, fields logrus.Fields) {
	fields["operation"] = op
	metrics.LedgerOperations.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		fields["error"] = err.Error()
		entry := logrus.WithFields(fields)
		var verr *ValidationError
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotFound) || errors.As(err, &verr) {
			entry.Warn("Ledger operation rejected")
		} else {
			entry.Error("Ledger operation failed")
		}
		return
	}
	if groupID != nil {
		if err := utils.BumpGeneration(ctx, l.rdb, BalanceCacheKey(*groupID)); err != nil {
			fields["cache_error"] = err.Error()
		}
	}
	fields["timestamp"] = time.Now().Format(time.RFC3339)
	logrus.WithFields(fields).Info("Ledger operation")
}

func (l *Ledger) warnIfNegative(ctx context.Context, groupID uint) {
	b, err := l.Balance(ctx, groupID)
	if err == nil && b.Total < 0 {
		logrus.WithFields(logrus.Fields{
			"group_id": groupID,
			"total":    b.Total.String(),
		}).Warn("Group balance is negative after a reversal")
	}
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrPermissionDenied):
		return metrics.OutcomeDenied
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func groupOf(p *domain.Payment) *uint {
	return p.GroupID
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
