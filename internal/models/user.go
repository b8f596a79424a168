package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a participant identity within this core. Authentication
// lives upstream; this row exists so preferences and audit records have a
// stable local key.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	DisplayName string `gorm:"type:text" json:"displayName"`
}

// BeforeCreate is a GORM hook generating a fresh UUID when the row is
// created without one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// UserPreference is a persisted per-user setting. The reveal-warning
// dismissal lives here rather than in client-local storage so it follows
// the user across devices.
type UserPreference struct {
	UserID string `gorm:"primaryKey;type:text" json:"userId"`
	Key    string `gorm:"primaryKey;type:text" json:"key"`
	Value  string `gorm:"type:text" json:"value"`
}

// PrefHideRevealWarning is the preference key for opting out of the
// one-time credential risk warning. Opt-out is explicit, never a silent
// default.
const PrefHideRevealWarning = "hide_reveal_warning"
