package models

import "time"

// SubscriptionType enumerates the closed set of subscription plans.
type SubscriptionType string

const (
	SubscriptionSquad SubscriptionType = "squad"
	SubscriptionCore  SubscriptionType = "core"
	SubscriptionX     SubscriptionType = "x"
)

// Valid reports whether the subscription type belongs to the closed set.
func (t SubscriptionType) Valid() bool {
	switch t {
	case SubscriptionSquad, SubscriptionCore, SubscriptionX:
		return true
	}
	return false
}

// Student represents a registered roster member. The surrogate ID is
// assigned at creation and never reused; StudentID is the externally
// assigned code that gets scanned or typed at check-in.
type Student struct {
	ID                string           `db:"id" json:"id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	Name              string           `db:"name" json:"name"`
	Age               int              `db:"age" json:"age,omitempty"`
	GroupName         string           `db:"group_name" json:"group,omitempty"`
	ParentID          string           `db:"parent_id" json:"parent_id,omitempty"`
	SubscriptionType  SubscriptionType `db:"subscription_type" json:"subscription_type"`
	Duration          string           `db:"duration" json:"duration,omitempty"`
	Level             int              `db:"level" json:"level,omitempty"`
	Category          string           `db:"category" json:"category,omitempty"`
	AttendanceType    string           `db:"attendance_type" json:"attendance_type,omitempty"`
	SubscriptionStart string           `db:"subscription_start" json:"subscription_start,omitempty"`
	SubscriptionEnd   string           `db:"subscription_end" json:"subscription_end,omitempty"`
	Notes             string           `db:"notes" json:"notes,omitempty"`
	Active            bool             `db:"active" json:"is_active"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}
