package entities

import (
	"errors"
	"time"
)

// KioskState marks whether a kiosk may mint validation tokens.
type KioskState string

const (
	KioskStateActive   KioskState = "ACTIVE"
	KioskStateInactive KioskState = "INACTIVE"
)

// Kiosk is a feedback-collecting device. The pipeline only ever references
// kiosks weakly by id.
type Kiosk struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Location  string     `json:"location" bson:"location"`
	State     KioskState `json:"state" bson:"state"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

// Validate checks required kiosk fields.
func (k *Kiosk) Validate() error {
	if k.ID == "" {
		return errors.New("kiosk id is required")
	}
	if k.Name == "" {
		return errors.New("kiosk name is required")
	}
	return nil
}

// Active reports whether the kiosk is allowed to mint tokens.
func (k *Kiosk) Active() bool {
	return k.State == KioskStateActive
}
