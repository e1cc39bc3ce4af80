package models

import "time"

// Workflow is the author-defined graph template. It is read-only to the
// execution engine except for the trigger bookkeeping fields
// (LastTriggeredAt, TriggersFiredToday), which are updated atomically by the
// persistence layer when a trigger is accepted.
type Workflow struct {
	ID              string        `json:"id"`
	OrgID           string        `json:"org_id"`
	Name            string        `json:"name" validate:"required,min=3"`
	Description     string        `json:"description,omitempty"`
	Active          bool          `json:"active"`
	Nodes           []*Node       `json:"nodes" validate:"dive"`
	Edges           []*Edge       `json:"edges" validate:"dive"`
	TriggerConfig   TriggerConfig `json:"trigger_config"`
	CooldownMinutes int           `json:"cooldown_minutes,omitempty" validate:"min=0"`
	DailyLimit      int           `json:"daily_limit,omitempty"      validate:"min=0"`

	LastTriggeredAt    *time.Time `json:"last_triggered_at,omitempty"`
	TriggersFiredToday int        `json:"triggers_fired_today,omitempty"`
	TriggerCountDay    string     `json:"trigger_count_day,omitempty"` // UTC day (2006-01-02) the counter covers

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cooldown is the minimum spacing between accepted triggers.
func (w *Workflow) Cooldown() time.Duration {
	return time.Duration(w.CooldownMinutes) * time.Minute
}

// InCooldown reports whether the workflow is still inside its cooldown window.
func (w *Workflow) InCooldown(now time.Time) bool {
	if w.CooldownMinutes <= 0 || w.LastTriggeredAt == nil {
		return false
	}

	return now.Before(w.LastTriggeredAt.Add(w.Cooldown()))
}

// DailyLimitReached reports whether today's accepted-trigger count has hit the
// configured limit. A zero limit means unlimited.
func (w *Workflow) DailyLimitReached(now time.Time) bool {
	if w.DailyLimit <= 0 {
		return false
	}

	if w.TriggerCountDay != now.UTC().Format("2006-01-02") {
		return false
	}

	return w.TriggersFiredToday >= w.DailyLimit
}

// RecordTrigger updates the trigger bookkeeping for an accepted trigger.
// Callers must hold whatever lock makes the read-modify-write atomic.
func (w *Workflow) RecordTrigger(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if w.TriggerCountDay != day {
		w.TriggerCountDay = day
		w.TriggersFiredToday = 0
	}

	w.TriggersFiredToday++
	ts := now
	w.LastTriggeredAt = &ts
}
