package giveaway

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Mode selects how a giveaway terminates.
type Mode string

const (
	ModeStandard Mode = "STANDARD"
	// ModeInstant ends on the first qualifying entry.
	ModeInstant Mode = "INSTANT"
)

// Action is a queued intent written by the dashboard and consumed by the worker.
type Action string

const (
	ActionStart  Action = "START"
	ActionEnd    Action = "END"
	ActionReroll Action = "REROLL"
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionStart, ActionEnd, ActionReroll, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// State is derived from the record and never stored.
type State string

const (
	StateScheduled State = "SCHEDULED"
	StateActive    State = "ACTIVE"
	StateEnded     State = "ENDED"
)

// MinDuration is the shortest STANDARD giveaway accepted on creation.
const MinDuration = 60 * time.Second

// Requirements restricts who may enter. Zero values impose no constraint.
type Requirements struct {
	MinimumRoleID      string `gorm:"size:64" json:"minimumRoleId,omitempty"`
	MinimumLevel       *int   `json:"minimumLevel,omitempty"`
	MinimumInviteCount *int   `json:"minimumInviteCount,omitempty"`
}

// IsZero reports whether no requirement is configured.
func (r Requirements) IsZero() bool {
	return r.MinimumRoleID == "" && r.MinimumLevel == nil && r.MinimumInviteCount == nil
}

// IDList is a JSON array of participant ids. A nil list is stored as [] so
// MySQL JSON functions always operate on an array.
type IDList []string

// Contains reports whether id is in the list.
func (l IDList) Contains(id string) bool {
	return slices.Contains(l, id)
}

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = IDList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("giveaway: cannot scan %T into IDList", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*l = IDList{}
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("giveaway: decode id list: %w", err)
	}
	*l = ids
	return nil
}

// GormDataType stores the list in a JSON column.
func (IDList) GormDataType() string { return "json" }

// Patch is a partial edit. Remaining is an offset from the moment the edit is applied.
type Patch struct {
	Prize       *string `json:"prizeDescription,omitempty"`
	WinnerCount *int    `json:"winnerCount,omitempty"`
	RemainingMs *int64  `json:"remainingMs,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Prize == nil && p.WinnerCount == nil && p.RemainingMs == nil
}

// Remaining returns the requested remaining duration, if any.
func (p Patch) Remaining() (time.Duration, bool) {
	if p.RemainingMs == nil {
		return 0, false
	}
	return time.Duration(*p.RemainingMs) * time.Millisecond, true
}

// Value implements driver.Valuer.
func (p Patch) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Patch) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Patch{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("giveaway: cannot scan %T into Patch", src)
	}
}

// Giveaway is the durable campaign record shared by the worker and the dashboard.
// JSON names are the cross-process contract and must stay stable.
type Giveaway struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	MessageID string `gorm:"size:64" json:"externalMessageId"`
	ChannelID string `gorm:"size:64;not null" json:"externalChannelId"`
	GuildID   string `gorm:"size:64;index;not null" json:"externalGuildId"`

	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `gorm:"index" json:"endAt"`
	Ended   bool      `gorm:"index;default:false" json:"ended"`

	Prize       string `gorm:"type:text;not null" json:"prizeDescription"`
	WinnerCount int    `gorm:"not null" json:"winnerCount"`
	HostID      string `gorm:"size:64" json:"hostId"`
	Mode        Mode   `gorm:"size:16;not null;default:STANDARD" json:"mode"`

	Requirements Requirements `gorm:"embedded;embeddedPrefix:requirement_" json:"requirements"`

	Entries IDList `json:"entries"`
	Winners IDList `json:"winners"`

	PendingAction *Action    `gorm:"size:16;index" json:"pendingAction"`
	PendingPatch  *Patch     `gorm:"type:json" json:"pendingPatch,omitempty"`
	PendingAt     *time.Time `json:"pendingAt,omitempty"`

	// Paused is reserved; no code path acts on it.
	Paused bool `gorm:"default:false" json:"paused"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name used by both processes.
func (Giveaway) TableName() string { return "giveaways" }

// State derives the lifecycle state.
func (g *Giveaway) State() State {
	switch {
	case g.Ended:
		return StateEnded
	case g.PendingAction != nil && *g.PendingAction == ActionStart:
		return StateScheduled
	default:
		return StateActive
	}
}

// Duration is the configured run time of a STANDARD giveaway.
func (g *Giveaway) Duration() time.Duration {
	return g.EndAt.Sub(g.StartAt)
}

// Spec describes a giveaway to create.
type Spec struct {
	GuildID      string
	ChannelID    string
	HostID       string
	Prize        string
	WinnerCount  int
	Duration     time.Duration
	Mode         Mode
	Requirements Requirements
}

// Validate checks the creation constraints.
func (s Spec) Validate() error {
	if s.ChannelID == "" {
		return &ValidationError{Field: "channel", Msg: "a channel is required"}
	}
	if s.Prize == "" {
		return &ValidationError{Field: "prizeDescription", Msg: "a prize description is required"}
	}
	if s.WinnerCount < 1 {
		return &ValidationError{Field: "winnerCount", Msg: "winner count must be at least 1"}
	}
	switch s.Mode {
	case ModeStandard, "":
		if s.Duration < MinDuration {
			return &ValidationError{Field: "duration", Msg: fmt.Sprintf("duration must be at least %s", MinDuration)}
		}
	case ModeInstant:
	default:
		return &ValidationError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q", s.Mode)}
	}
	return validateRequirements(s.Requirements)
}

// Validate checks an edit patch.
func (p Patch) Validate() error {
	if p.IsZero() {
		return &ValidationError{Field: "patch", Msg: "nothing to change"}
	}
	if p.Prize != nil && *p.Prize == "" {
		return &ValidationError{Field: "prizeDescription", Msg: "prize description cannot be empty"}
	}
	if p.WinnerCount != nil && *p.WinnerCount < 1 {
		return &ValidationError{Field: "winnerCount", Msg: "winner count must be at least 1"}
	}
	if d, ok := p.Remaining(); ok && d <= 0 {
		return &ValidationError{Field: "remainingMs", Msg: "remaining duration must be positive"}
	}
	return nil
}

func validateRequirements(r Requirements) error {
	if r.MinimumLevel != nil && *r.MinimumLevel < 0 {
		return &ValidationError{Field: "minimumLevel", Msg: "minimum level cannot be negative"}
	}
	if r.MinimumInviteCount != nil && *r.MinimumInviteCount < 0 {
		return &ValidationError{Field: "minimumInviteCount", Msg: "minimum invite count cannot be negative"}
	}
	return nil
}

// Setting is a row of the settings table shared by both processes.
type Setting struct {
	ID     uint8  `gorm:"primaryKey"`
	Name   string `gorm:"size:64;uniqueIndex;not null"`
	Value  string `gorm:"type:text;not null"`
	Active uint8  `gorm:"not null;default:1"`
}
