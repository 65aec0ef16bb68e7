package model

import "time"

// OutboxEvent is written in the same transaction as the change it describes and
// relayed to Kafka by the poller.
type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	EventID     string    `gorm:"size:36;not null;uniqueIndex"`
	Aggregate   string    `gorm:"size:64;not null"`
	AggregateID uint64    `gorm:"not null"`
	EventType   string    `gorm:"size:64;not null"`
	Payload     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Processed   bool      `gorm:"not null;default:false;index"`
	ProcessedAt *time.Time
}

func (OutboxEvent) TableName() string { return "event_outbox" }

// All lists every persisted model, for migrations.
func All() []interface{} {
	return []interface{}{
		&Wallet{}, &WalletTransaction{}, &StoreItem{}, &StockMovement{},
		&Order{}, &OrderItem{}, &PointsConfig{}, &OutboxEvent{},
	}
}
