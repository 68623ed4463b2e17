package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcoot/minesgame/internal/model"
)

type settlementRecord struct {
	ID         uint    `gorm:"primaryKey"`
	RoundID    string  `gorm:"size:64;uniqueIndex"`
	BetID      string  `gorm:"size:255"`
	GameData   string  `gorm:"type:text"`
	UserID     string  `gorm:"size:128;index:idx_settlement_player"`
	OperatorID string  `gorm:"size:128;index:idx_settlement_player"`
	BetAmount  int64   `gorm:"not null"`
	MaxMult    float64 `gorm:"not null"`
	Status     string  `gorm:"size:8;not null"`
	CreatedAt  time.Time
}

func (settlementRecord) TableName() string { return "settlements" }

type creditFailureRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RoundID    string `gorm:"size:64;index"`
	BetID      string `gorm:"size:255"`
	UserID     string `gorm:"size:128"`
	OperatorID string `gorm:"size:128"`
	Amount     int64  `gorm:"not null"`
	TxnID      string `gorm:"size:128"`
	Reason     string `gorm:"type:text"`
	Resolved   bool   `gorm:"not null;default:false;index"`
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (creditFailureRecord) TableName() string { return "credit_failures" }

// Repository is a gorm-backed sink
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository on an open database handle
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ensure Repository implements the interface
var _ Sink = (*Repository)(nil)

// Migrate creates or updates the settlement tables
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&settlementRecord{}, &creditFailureRecord{}); err != nil {
		return fmt.Errorf("migrate settlement tables: %w", err)
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, s *model.Settlement) error {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&settlementRecord{}).
		Where("round_id = ?", string(s.RoundID)).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("check settlement: %w", err)
	}
	if existing > 0 {
		return ErrDuplicateSettlement
	}

	rec := &settlementRecord{
		RoundID:    string(s.RoundID),
		BetID:      s.BetID,
		GameData:   string(s.Snapshot),
		UserID:     s.UserID,
		OperatorID: s.OperatorID,
		BetAmount:  int64(s.BetAmount),
		MaxMult:    s.MaxMultiplier,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *Repository) RecordCreditFailure(ctx context.Context, f *model.CreditFailure) error {
	rec := &creditFailureRecord{
		RoundID:    string(f.RoundID),
		BetID:      f.BetID,
		UserID:     f.UserID,
		OperatorID: f.OperatorID,
		Amount:     int64(f.Amount),
		TxnID:      f.TxnID,
		Reason:     f.Reason,
		Resolved:   f.Resolved,
		CreatedAt:  f.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("record credit failure: %w", err)
	}
	return nil
}

func (r *Repository) PendingCreditFailures(ctx context.Context) ([]model.CreditFailure, error) {
	var recs []creditFailureRecord
	if err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at asc, id asc").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list credit failures: %w", err)
	}

	out := make([]model.CreditFailure, len(recs))
	for i, rec := range recs {
		out[i] = model.CreditFailure{
			RoundID:    model.RoundID(rec.RoundID),
			BetID:      rec.BetID,
			UserID:     rec.UserID,
			OperatorID: rec.OperatorID,
			Amount:     model.Money(rec.Amount),
			TxnID:      rec.TxnID,
			Reason:     rec.Reason,
			CreatedAt:  rec.CreatedAt,
			Resolved:   rec.Resolved,
		}
	}
	return out, nil
}

func (r *Repository) ResolveCreditFailure(ctx context.Context, roundID model.RoundID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&creditFailureRecord{}).
		Where("round_id = ? AND resolved = ?", string(roundID), false).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("resolve credit failure: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCreditFailureNotFound
	}
	return nil
}

// OpenPostgres connects to Postgres, retrying a few times while the database
// comes up
func OpenPostgres(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	const maxRetries = 3
	const retryInterval = 5 * time.Second

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("database connection failed, retrying",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()),
		)
		if i < maxRetries {
			time.Sleep(retryInterval)
		}
	}
	return nil, fmt.Errorf("connect to database: %w", lastErr)
}
