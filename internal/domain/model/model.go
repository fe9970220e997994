// Package model holds the domain entities shared by the matching core and its adapters.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Proficiency is a skill level. Higher ranks satisfy lower requirements.
type Proficiency string

const (
	Beginner     Proficiency = "BEGINNER"
	Intermediate Proficiency = "INTERMEDIATE"
	Advanced     Proficiency = "ADVANCED"
	Expert       Proficiency = "EXPERT"
)

// Rank orders proficiencies; unknown levels rank 0.
func (p Proficiency) Rank() int {
	switch p {
	case Beginner:
		return 1
	case Intermediate:
		return 2
	case Advanced:
		return 3
	case Expert:
		return 4
	default:
		return 0
	}
}

// Satisfies reports whether p meets or exceeds required.
func (p Proficiency) Satisfies(required Proficiency) bool {
	return p.Rank() >= required.Rank()
}

// ParseProficiency accepts any casing. Empty input yields Beginner.
func ParseProficiency(s string) (Proficiency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Beginner, nil
	}
	p := Proficiency(s)
	if p.Rank() == 0 {
		return "", fmt.Errorf("%w: unknown proficiency %q", ErrInvalid, s)
	}
	return p, nil
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectClosed    ProjectStatus = "CLOSED"
	ProjectCancelled ProjectStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectClosed, ProjectCancelled:
		return true
	}
	return false
}

// AvailabilityStatus describes whether a volunteer takes on new work.
type AvailabilityStatus string

const (
	Available   AvailabilityStatus = "AVAILABLE"
	Busy        AvailabilityStatus = "BUSY"
	Unavailable AvailabilityStatus = "UNAVAILABLE"
)

// Coordinates is a WGS84 point in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude/longitude bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// VolunteerSkill is one skill held by a volunteer.
type VolunteerSkill struct {
	Name  string      `json:"name"`
	Level Proficiency `json:"level"`
	Years int         `json:"years,omitempty"`
}

// Availability is a volunteer's declared capacity.
type Availability struct {
	Status       AvailabilityStatus `json:"status"`
	HoursPerWeek float64            `json:"hours_per_week"`
}

// VolunteerProfile is the volunteer side of a match.
type VolunteerProfile struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id,omitempty"`
	Name         string           `json:"name"`
	Email        string           `json:"email,omitempty"`
	Skills       []VolunteerSkill `json:"skills"`
	Interests    []string         `json:"interests"`
	Location     *Coordinates     `json:"location,omitempty"`
	Availability Availability     `json:"availability"`
	TotalHours   float64          `json:"total_hours"`
	ImpactScore  float64          `json:"impact_score"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ProjectSkill is a skill a project asks for.
type ProjectSkill struct {
	Name     string      `json:"name"`
	Level    Proficiency `json:"level"`
	Required bool        `json:"required"`
}

// Project is the organization side of a match.
type Project struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Category       string         `json:"category"`
	Tags           []string       `json:"tags,omitempty"`
	Skills         []ProjectSkill `json:"skills"`
	Location       *Coordinates   `json:"location,omitempty"`
	HoursPerWeek   float64        `json:"hours_per_week"`
	DurationWeeks  int            `json:"duration_weeks,omitempty"`
	Capacity       int            `json:"capacity"`
	AppliedCount   int            `json:"applied_count"`
	Status         ProjectStatus  `json:"status"`
	ContactEmail   string         `json:"contact_email,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsFull reports whether the project has no open seats. Zero capacity means unlimited.
func (p Project) IsFull() bool {
	return p.Capacity > 0 && p.AppliedCount >= p.Capacity
}

// MatchFactors are the five independent sub-scores of a match.
type MatchFactors struct {
	Skills       float64 `json:"skills"`
	Location     float64 `json:"location"`
	Interests    float64 `json:"interests"`
	Availability float64 `json:"availability"`
	Experience   float64 `json:"experience"`
}

// Total is the exact, unrounded aggregate.
func (f MatchFactors) Total() float64 {
	return f.Skills + f.Location + f.Interests + f.Availability + f.Experience
}

// Rounded returns a copy with each factor rounded to two decimals.
func (f MatchFactors) Rounded() MatchFactors {
	return MatchFactors{
		Skills:       Round(f.Skills, 2),
		Location:     Round(f.Location, 2),
		Interests:    Round(f.Interests, 2),
		Availability: Round(f.Availability, 2),
		Experience:   Round(f.Experience, 2),
	}
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// MatchResult is a scored candidate. It is computed on demand and never stored.
type MatchResult[T any] struct {
	Entity  T            `json:"entity"`
	Score   float64      `json:"score"`
	Factors MatchFactors `json:"factors"`
	Reason  string       `json:"reason"`
}

type (
	ProjectMatch   = MatchResult[Project]
	VolunteerMatch = MatchResult[VolunteerProfile]
)
