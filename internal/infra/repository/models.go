package repository

import (
	"time"

	"gorm.io/datatypes"

	"timed_trading_server/internal/domain"
)

type SettledTradeModel struct {
	ID                int64          `gorm:"column:id"`
	TradeID           string         `gorm:"column:trade_id;uniqueIndex;not null"`
	UserID            string         `gorm:"column:user_id;index;not null"`
	Symbol            *string        `gorm:"column:symbol"`
	Direction         string         `gorm:"column:direction;not null"`
	Outcome           string         `gorm:"column:outcome;not null"`
	Amount            float64        `gorm:"column:amount;not null"`
	ReturnedAmount    float64        `gorm:"column:returned_amount"`
	ProfitLossAmount  float64        `gorm:"column:profit_loss_amount"`
	ProfitLossPercent float64        `gorm:"column:profit_loss_percent"`
	DurationSeconds   int            `gorm:"column:duration_seconds"`
	RawResult         datatypes.JSON `gorm:"column:raw_result;type:jsonb"`
	SettledAt         time.Time      `gorm:"column:settled_at;index;not null"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (SettledTradeModel) TableName() string {
	return "settled_trades"
}

func toSettledTradeModel(trade domain.SettledTrade) SettledTradeModel {
	return SettledTradeModel{
		TradeID:           trade.TradeID,
		UserID:            trade.UserID,
		Symbol:            stringPointerOrNil(trade.Symbol),
		Direction:         string(trade.Direction),
		Outcome:           string(trade.Outcome),
		Amount:            trade.Amount,
		ReturnedAmount:    trade.ReturnedAmount,
		ProfitLossAmount:  trade.ProfitLossAmount,
		ProfitLossPercent: trade.ProfitLossPercent,
		DurationSeconds:   trade.DurationSeconds,
		RawResult:         jsonOrEmpty(trade.RawResult),
		SettledAt:         trade.SettledAt,
	}
}

func (m SettledTradeModel) toDomain() domain.SettledTrade {
	return domain.SettledTrade{
		TradeID:           m.TradeID,
		UserID:            m.UserID,
		Symbol:            stringValueOrEmpty(m.Symbol),
		Direction:         domain.TradeDirection(m.Direction),
		Outcome:           domain.Outcome(m.Outcome),
		Amount:            m.Amount,
		ReturnedAmount:    m.ReturnedAmount,
		ProfitLossAmount:  m.ProfitLossAmount,
		ProfitLossPercent: m.ProfitLossPercent,
		DurationSeconds:   m.DurationSeconds,
		RawResult:         copyJSON(m.RawResult),
		SettledAt:         m.SettledAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func stringPointerOrNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValueOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func jsonOrEmpty(data []byte) datatypes.JSON {
	if len(data) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(append([]byte(nil), data...))
}

func copyJSON(data datatypes.JSON) []byte {
	if len(data) == 0 {
		return nil
	}
	cpy := make([]byte, len(data))
	copy(cpy, data)
	return cpy
}
