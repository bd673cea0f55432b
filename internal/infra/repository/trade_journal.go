package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timed_trading_server/internal/domain"
)

type GormTradeJournal struct {
	db *gorm.DB
}

func NewGormTradeJournal(db *gorm.DB) (*GormTradeJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormTradeJournal{db: db}, nil
}

// RecordTrade upserts on trade_id so a retried settlement write never
// duplicates a row.
func (r *GormTradeJournal) RecordTrade(ctx context.Context, trade domain.SettledTrade) error {
	model := toSettledTradeModel(trade)

	assignments := clause.Assignments(map[string]interface{}{
		"outcome":             gorm.Expr("EXCLUDED.outcome"),
		"returned_amount":     gorm.Expr("EXCLUDED.returned_amount"),
		"profit_loss_amount":  gorm.Expr("EXCLUDED.profit_loss_amount"),
		"profit_loss_percent": gorm.Expr("EXCLUDED.profit_loss_percent"),
		"raw_result":          gorm.Expr("EXCLUDED.raw_result"),
		"settled_at":          gorm.Expr("EXCLUDED.settled_at"),
		"updated_at":          gorm.Expr("CURRENT_TIMESTAMP"),
	})

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoUpdates: assignments,
		}).
		Create(&model).Error
}

func (r *GormTradeJournal) ListTrades(ctx context.Context, userID string, limit int) ([]domain.SettledTrade, error) {
	var models []SettledTradeModel
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("settled_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	trades := make([]domain.SettledTrade, len(models))
	for i, model := range models {
		trades[i] = model.toDomain()
	}

	return trades, nil
}
