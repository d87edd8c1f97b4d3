package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Plan is a catalog entry mapping a processor-side price to an internal plan.
// The catalog is reference data administered out of band; this service only
// reads it.
type Plan struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code            string    `gorm:"unique;not null;size:50" json:"code"`
	DisplayName     string    `gorm:"not null;size:200" json:"display_name"`
	ProviderPriceID string    `gorm:"column:provider_price_id;unique;not null;size:100" json:"provider_price_id"`
	TrialDays       int       `gorm:"default:0" json:"trial_days"`
	Features        Features  `gorm:"type:jsonb;default:'{}'" json:"features"`
	SortOrder       int       `gorm:"default:0" json:"sort_order"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:now()" json:"updated_at"`
}

// Features represents plan features as JSONB
type Features map[string]interface{}

// Value implements driver.Valuer interface
func (f Features) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner interface
func (f *Features) Scan(src interface{}) error {
	if src == nil {
		*f = make(Features)
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		*f = make(Features)
		return nil
	}
}

// TableName specifies the table name for GORM
func (Plan) TableName() string {
	return "plans"
}
