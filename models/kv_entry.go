package models

import "time"

// KVEntry backs the key-value store when it is persisted in MySQL.
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:longtext;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name independent of naming strategy.
func (KVEntry) TableName() string { return "kv_entries" }
