// Package scoring computes the five-factor match score between a volunteer and a project.
//
// Every factor is independent, bounded by its weight, and contributes zero
// when its inputs are missing.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/vmatch/internal/domain/model"
)

const (
	defaultNearKm          = 5.0
	defaultMaxKm           = 100.0
	defaultHoursCeiling    = 200.0
	defaultImpactCeiling   = 100.0
	requiredSkillWeight    = 1.0
	optionalSkillWeight    = 0.5
	underLevelCredit       = 0.5
	tagOverlapShare        = 0.5
	busyAvailabilityFactor = 0.5
	totalWeight            = 100.0
)

// Weights caps each factor. They must be non-negative and sum to 100.
type Weights struct {
	Skills       float64 `koanf:"skills" json:"skills"`
	Location     float64 `koanf:"location" json:"location"`
	Interests    float64 `koanf:"interests" json:"interests"`
	Availability float64 `koanf:"availability" json:"availability"`
	Experience   float64 `koanf:"experience" json:"experience"`
}

// DefaultWeights favors location and interest fit.
func DefaultWeights() Weights {
	return Weights{Skills: 20, Location: 25, Interests: 25, Availability: 15, Experience: 15}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Location + w.Interests + w.Availability + w.Experience
}

// Validate enforces non-negative weights summing to 100.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Skills, w.Location, w.Interests, w.Availability, w.Experience} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
		}
	}
	if math.Abs(w.Sum()-totalWeight) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %g, want 100", ErrInvalidWeights, w.Sum())
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the factor weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Validate() == nil {
			e.weights = w
		}
	}
}

// WithDistanceBounds sets the full-score radius and the zero-score radius in kilometers.
func WithDistanceBounds(nearKm, maxKm float64) Option {
	return func(e *Engine) {
		if nearKm >= 0 && maxKm > nearKm {
			e.nearKm = nearKm
			e.maxKm = maxKm
		}
	}
}

// WithExperienceCeilings sets the hours and impact values at which experience saturates.
func WithExperienceCeilings(hours, impact float64) Option {
	return func(e *Engine) {
		if hours > 0 {
			e.hoursCeiling = hours
		}
		if impact > 0 {
			e.impactCeiling = impact
		}
	}
}

// Scorer scores a volunteer against a project.
type Scorer interface {
	Score(v model.VolunteerProfile, p model.Project) model.MatchFactors
}

// Engine is a stateless Scorer; it is safe for concurrent use.
type Engine struct {
	weights       Weights
	nearKm        float64
	maxKm         float64
	hoursCeiling  float64
	impactCeiling float64
}

// NewEngine creates an Engine with default weights and bounds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:       DefaultWeights(),
		nearKm:        defaultNearKm,
		maxKm:         defaultMaxKm,
		hoursCeiling:  defaultHoursCeiling,
		impactCeiling: defaultImpactCeiling,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights { return e.weights }

// Score computes every factor for the pair.
func (e *Engine) Score(v model.VolunteerProfile, p model.Project) model.MatchFactors { //nolint:gocritic // hugeParam: snapshots are passed by value
	return model.MatchFactors{
		Skills:       e.skills(v.Skills, p.Skills),
		Location:     e.location(v.Location, p.Location),
		Interests:    e.interests(v.Interests, p.Category, p.Tags),
		Availability: e.availability(v.Availability, p.HoursPerWeek),
		Experience:   e.experience(v.TotalHours, v.ImpactScore),
	}
}

// skills credits each project skill the volunteer holds: full credit at or above
// the required level, partial credit below it. Required skills count double.
func (e *Engine) skills(have []model.VolunteerSkill, want []model.ProjectSkill) float64 {
	if len(have) == 0 || len(want) == 0 {
		return 0
	}
	held := make(map[string]model.Proficiency, len(have))
	for _, s := range have {
		key := normalize(s.Name)
		if cur, ok := held[key]; !ok || s.Level.Rank() > cur.Rank() {
			held[key] = s.Level
		}
	}

	var earned, possible float64
	for _, s := range want {
		w := optionalSkillWeight
		if s.Required {
			w = requiredSkillWeight
		}
		possible += w
		level, ok := held[normalize(s.Name)]
		if !ok {
			continue
		}
		if level.Satisfies(s.Level) {
			earned += w
		} else {
			earned += w * underLevelCredit
		}
	}
	return e.weights.Skills * earned / possible
}

func (e *Engine) location(a, b *model.Coordinates) float64 {
	if a == nil || b == nil {
		return 0
	}
	d := HaversineKm(*a, *b)
	switch {
	case math.IsNaN(d) || math.IsInf(d, 0):
		return 0
	case d <= e.nearKm:
		return e.weights.Location
	case d >= e.maxKm:
		return 0
	default:
		return e.weights.Location * (e.maxKm - d) / (e.maxKm - e.nearKm)
	}
}

// interests gives full weight when the category is an interest, otherwise a
// share of half the weight proportional to matching tags.
func (e *Engine) interests(interests []string, category string, tags []string) float64 {
	if len(interests) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(interests))
	for _, i := range interests {
		set[normalize(i)] = struct{}{}
	}
	if c := normalize(category); c != "" {
		if _, ok := set[c]; ok {
			return e.weights.Interests
		}
	}
	if len(tags) == 0 {
		return 0
	}
	var hits int
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		k := normalize(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			hits++
		}
	}
	return e.weights.Interests * tagOverlapShare * float64(hits) / float64(len(seen))
}

func (e *Engine) availability(a model.Availability, projectHours float64) float64 {
	if a.HoursPerWeek <= 0 || projectHours <= 0 {
		return 0
	}
	fit := math.Min(1, a.HoursPerWeek/projectHours) * e.weights.Availability
	switch a.Status {
	case model.Busy:
		return fit * busyAvailabilityFactor
	case model.Unavailable:
		return 0
	default:
		return fit
	}
}

func (e *Engine) experience(hours, impact float64) float64 {
	ratio := math.Max(math.Max(hours, 0)/e.hoursCeiling, math.Max(impact, 0)/e.impactCeiling)
	return e.weights.Experience * math.Min(1, ratio)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
