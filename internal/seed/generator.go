// Package seed generates synthetic volunteers and projects for demos and load tests.
//
// Output is deterministic for a given seed, so a demo catalog can be rebuilt
// byte-for-byte on another machine.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vmatch/internal/domain/model"
)

const (
	defaultSeed        = 42
	defaultRemoteRatio = 0.15
	jitterDegrees      = 0.2
	maxSkillsPerEntity = 4
	maxInterests       = 3
	maxTags            = 3
)

// Volunteer experience tiers.
const (
	tierNewcomer = iota
	tierRegular
	tierCommitted
	tierVeteran
	tierCount
)

const (
	newcomerHoursMax   = 20.0
	regularHoursMin    = 20.0
	regularHoursRange  = 60.0
	committedHoursMin  = 80.0
	committedHoursSpan = 120.0
	veteranHoursMin    = 200.0
	veteranHoursRange  = 300.0
	impactPerHour      = 0.35
)

var idNamespace = uuid.MustParse("6f1c2a52-4e0b-4b8e-9f3b-6c2d7a1e5f90")

var skillCatalog = []string{
	"teaching", "tutoring", "first aid", "cooking", "driving",
	"web development", "graphic design", "fundraising", "translation", "photography",
	"gardening", "carpentry", "event planning", "data entry", "social media",
}

var categories = []string{
	"education", "health", "environment", "animals",
	"community", "arts", "disaster relief", "technology",
}

var tagPool = []string{
	"children", "seniors", "outdoors", "weekend", "remote",
	"urban", "rural", "food", "literacy", "mentoring", "climate",
}

var titleNouns = []string{
	"Drive", "Workshop", "Program", "Cleanup", "Clinic", "Campaign", "Club", "Festival",
}

var cities = []model.Coordinates{
	{Lat: 40.7128, Lng: -74.0060},
	{Lat: 34.0522, Lng: -118.2437},
	{Lat: 41.8781, Lng: -87.6298},
	{Lat: 51.5074, Lng: -0.1278},
	{Lat: 52.5200, Lng: 13.4050},
	{Lat: 48.8566, Lng: 2.3522},
}

var levels = []model.Proficiency{model.Beginner, model.Intermediate, model.Advanced, model.Expert}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed fixes the random source.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithClock sets the timestamp stamped on generated records.
func WithClock(now time.Time) Option {
	return func(g *Generator) {
		if !now.IsZero() {
			g.now = now
		}
	}
}

// WithRemoteRatio sets the share of records without a location.
func WithRemoteRatio(r float64) Option {
	return func(g *Generator) {
		if r >= 0 && r <= 1 {
			g.remoteRatio = r
		}
	}
}

// Generator builds synthetic catalog records. It is not safe for concurrent use.
type Generator struct {
	seed        uint64
	now         time.Time
	remoteRatio float64
	rng         *rand.Rand
}

// NewGenerator creates a generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		seed:        defaultSeed,
		now:         time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		remoteRatio: defaultRemoteRatio,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.rng = rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data
	return g
}

// Volunteers returns n synthetic volunteer profiles with unique ids.
func (g *Generator) Volunteers(n int) []model.VolunteerProfile {
	out := make([]model.VolunteerProfile, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, g.volunteer(i))
	}
	return out
}

// Projects returns n synthetic ACTIVE projects with unique ids.
func (g *Generator) Projects(n int) []model.Project {
	out := make([]model.Project, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, g.project(i))
	}
	return out
}

func (g *Generator) volunteer(index int) model.VolunteerProfile {
	hours := g.experienceHours()
	skills := make([]model.VolunteerSkill, 0, maxSkillsPerEntity)
	for _, name := range g.pick(skillCatalog, 1+g.rng.IntN(maxSkillsPerEntity)) {
		skills = append(skills, model.VolunteerSkill{
			Name:  name,
			Level: levels[g.rng.IntN(len(levels))],
			Years: g.rng.IntN(10),
		})
	}
	status := model.Available
	if g.rng.Float64() < 0.1 {
		status = model.Busy
	}
	id := g.id("volunteer", index)
	return model.VolunteerProfile{
		ID:        id,
		Name:      "Volunteer " + strconv.Itoa(index+1),
		Email:     "volunteer" + strconv.Itoa(index+1) + "@example.org",
		Skills:    skills,
		Interests: g.pick(categories, 1+g.rng.IntN(maxInterests)),
		Location:  g.location(),
		Availability: model.Availability{
			Status:       status,
			HoursPerWeek: float64(2 + g.rng.IntN(19)),
		},
		TotalHours:  model.Round(hours, 1),
		ImpactScore: model.Round(hours*impactPerHour*(0.5+g.rng.Float64()), 1),
		CreatedAt:   g.now.Add(time.Duration(index) * time.Minute),
		UpdatedAt:   g.now.Add(time.Duration(index) * time.Minute),
	}
}

func (g *Generator) project(index int) model.Project {
	category := categories[g.rng.IntN(len(categories))]
	skills := make([]model.ProjectSkill, 0, maxSkillsPerEntity)
	for _, name := range g.pick(skillCatalog, g.rng.IntN(maxSkillsPerEntity)) {
		skills = append(skills, model.ProjectSkill{
			Name:     name,
			Level:    levels[g.rng.IntN(len(levels)-1)],
			Required: g.rng.Float64() < 0.5,
		})
	}
	created := g.now.Add(time.Duration(index) * time.Hour)
	return model.Project{
		ID:             g.id("project", index),
		OrganizationID: g.id("org", g.rng.IntN(max(index/3, 1))),
		Title:          fmt.Sprintf("%s %s #%d", titleCase(category), titleNouns[g.rng.IntN(len(titleNouns))], index+1),
		Description:    "Synthetic " + category + " project.",
		Category:       category,
		Tags:           g.pick(tagPool, g.rng.IntN(maxTags+1)),
		Skills:         skills,
		Location:       g.location(),
		HoursPerWeek:   float64(1 + g.rng.IntN(15)),
		DurationWeeks:  1 + g.rng.IntN(26),
		Capacity:       g.rng.IntN(11),
		Status:         model.ProjectActive,
		ContactEmail:   "org" + strconv.Itoa(index+1) + "@example.org",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

// experienceHours spreads volunteers across tiers, newcomers most common.
func (g *Generator) experienceHours() float64 {
	switch g.rng.IntN(tierCount + 1) {
	case tierNewcomer, tierCount:
		return g.rng.Float64() * newcomerHoursMax
	case tierRegular:
		return regularHoursMin + g.rng.Float64()*regularHoursRange
	case tierCommitted:
		return committedHoursMin + g.rng.Float64()*committedHoursSpan
	case tierVeteran:
		return veteranHoursMin + g.rng.Float64()*veteranHoursRange
	default:
		return 0
	}
}

func (g *Generator) location() *model.Coordinates {
	if g.rng.Float64() < g.remoteRatio {
		return nil
	}
	c := cities[g.rng.IntN(len(cities))]
	return &model.Coordinates{
		Lat: model.Round(c.Lat+(g.rng.Float64()*2-1)*jitterDegrees, 5),
		Lng: model.Round(c.Lng+(g.rng.Float64()*2-1)*jitterDegrees, 5),
	}
}

// pick returns n distinct entries of pool in random order.
func (g *Generator) pick(pool []string, n int) []string {
	n = min(n, len(pool))
	out := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

// id derives a stable UUID from the seed, so reruns upsert instead of duplicating.
func (g *Generator) id(kind string, index int) string {
	name := kind + ":" + strconv.FormatUint(g.seed, 10) + ":" + strconv.Itoa(index)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
