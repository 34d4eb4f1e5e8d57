package competition

import (
	"slices"
	"time"
)

// Status is the lifecycle position of a competition as shown to users.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

const dateLayout = "2006-01-02"

// Competition is a contest run by a team of collaborators.
type Competition struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"time,omitempty"`
	MaxParticipants int       `json:"max_participants"`
	Description     string    `json:"description,omitempty"`
	TeamID          string    `json:"team_id"`
	Finalized       bool      `json:"finalized"`
	Registrations   int       `json:"registrations"`
	Status          Status    `json:"status"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// StatusAt derives the status from the explicit flag and the calendar date.
func (c Competition) StatusAt(now time.Time) Status {
	if c.Finalized {
		return StatusCompleted
	}
	today := now.UTC().Format(dateLayout)
	day := c.Date.UTC().Format(dateLayout)
	switch {
	case day > today:
		return StatusUpcoming
	case day == today:
		return StatusOngoing
	default:
		return StatusCompleted
	}
}

// IsFinalized reports whether the competition no longer accepts changes to
// its roster: it was closed explicitly or its date has passed.
func (c Competition) IsFinalized(now time.Time) bool {
	return c.StatusAt(now) == StatusCompleted
}

// Full reports whether the registration cap has been reached. Zero means no cap.
func (c Competition) Full() bool {
	return c.MaxParticipants > 0 && c.Registrations >= c.MaxParticipants
}

// Team is a group of collaborators that organizes competitions.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// HasMember reports whether userID belongs to the team.
func (t Team) HasMember(userID string) bool {
	return userID != "" && slices.Contains(t.Members, userID)
}

// Registration enrolls a participant in a competition.
type Registration struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competition_id"`
	ParticipantID string    `json:"participant_id"`
	Category      string    `json:"category,omitempty"`
	RegisteredBy  string    `json:"registered_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sponsorship records a sponsor's contribution, in cents.
type Sponsorship struct {
	ID            string    `json:"id"`
	CompetitionID string    `json:"competition_id"`
	SponsorID     string    `json:"sponsor_id"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
