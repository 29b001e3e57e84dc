package entities

import "time"

// Stage is a screen of the booking flow
type Stage string

const (
	StageLogin           Stage = "login"
	StageServiceTier     Stage = "service_tier"
	StageLocation        Stage = "location"
	StageDateScan        Stage = "date_scan"
	StageTimeSlot        Stage = "time_slot"
	StagePersonalDetails Stage = "personal_details"
	StageConfirm         Stage = "confirm"
	StageResult          Stage = "result"
)

// Booking describes a confirmed appointment
type Booking struct {
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Slot        string    `json:"slot"`
	Cycles      int       `json:"cycles"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
