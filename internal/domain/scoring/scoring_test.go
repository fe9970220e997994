package scoring_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func at(lat, lng float64) *model.Coordinates {
	return &model.Coordinates{Lat: lat, Lng: lng}
}

func TestEngine_Scenario(t *testing.T) {
	Convey("Given a first-aid volunteer next to a healthcare project", t, func() {
		engine := scoring.NewEngine()
		v := model.VolunteerProfile{
			ID:        "v1",
			Skills:    []model.VolunteerSkill{{Name: "first-aid", Level: model.Intermediate}},
			Interests: []string{"healthcare"},
			Location:  at(0, 0),
		}
		p := model.Project{
			ID:       "p1",
			Category: "healthcare",
			Skills:   []model.ProjectSkill{{Name: "first-aid", Level: model.Beginner, Required: true}},
			Location: at(0, 0),
		}

		Convey("When scored", func() {
			f := engine.Score(v, p)
			w := engine.Weights()

			Convey("Then skills, location and interests are at maximum", func() {
				So(f.Skills, ShouldEqual, w.Skills)
				So(f.Location, ShouldEqual, w.Location)
				So(f.Interests, ShouldEqual, w.Interests)
			})

			Convey("And the aggregate lacks only availability and experience", func() {
				So(f.Availability, ShouldEqual, 0)
				So(f.Experience, ShouldEqual, 0)
				So(f.Total(), ShouldEqual, 100-w.Availability-w.Experience)
			})
		})
	})
}

func TestEngine_Skills(t *testing.T) {
	Convey("Given a project requiring three skills", t, func() {
		engine := scoring.NewEngine()
		p := model.Project{Skills: []model.ProjectSkill{
			{Name: "cooking", Level: model.Beginner, Required: true},
			{Name: "driving", Level: model.Intermediate, Required: true},
			{Name: "logistics", Level: model.Advanced, Required: true},
		}}
		held := []model.VolunteerSkill{
			{Name: "Cooking", Level: model.Expert},
			{Name: "driving", Level: model.Intermediate},
			{Name: "logistics", Level: model.Advanced},
		}

		Convey("Then the factor is zero with none of them", func() {
			v := model.VolunteerProfile{Skills: []model.VolunteerSkill{{Name: "painting", Level: model.Expert}}}
			So(engine.Score(v, p).Skills, ShouldEqual, 0)
		})

		Convey("Then each added skill at sufficient level strictly increases the factor", func() {
			prev := -1.0
			for n := 0; n <= len(held); n++ {
				v := model.VolunteerProfile{Skills: held[:n]}
				got := engine.Score(v, p).Skills
				So(got, ShouldBeGreaterThan, prev)
				prev = got
			}
			So(prev, ShouldAlmostEqual, 20, 1e-9)
		})

		Convey("Then a skill below the required level earns half credit", func() {
			v := model.VolunteerProfile{Skills: []model.VolunteerSkill{{Name: "logistics", Level: model.Beginner}}}
			So(engine.Score(v, p).Skills, ShouldAlmostEqual, 20.0*0.5/3, 1e-9)
		})

		Convey("Then optional skills weigh half of required ones", func() {
			mixed := model.Project{Skills: []model.ProjectSkill{
				{Name: "a", Level: model.Beginner, Required: true},
				{Name: "b", Level: model.Beginner},
			}}
			v := model.VolunteerProfile{Skills: []model.VolunteerSkill{{Name: "b", Level: model.Beginner}}}
			So(engine.Score(v, mixed).Skills, ShouldAlmostEqual, 20*0.5/1.5, 1e-9)
		})

		Convey("Then a project without skills contributes zero", func() {
			v := model.VolunteerProfile{Skills: held}
			So(engine.Score(v, model.Project{}).Skills, ShouldEqual, 0)
		})
	})
}

func TestEngine_Location(t *testing.T) {
	Convey("Given volunteers at increasing distance", t, func() {
		engine := scoring.NewEngine()
		p := model.Project{Location: at(0, 0)}

		Convey("Then missing coordinates contribute exactly zero", func() {
			So(engine.Score(model.VolunteerProfile{}, p).Location, ShouldEqual, 0)
			So(engine.Score(model.VolunteerProfile{Location: at(0, 0)}, model.Project{}).Location, ShouldEqual, 0)
		})

		Convey("Then the factor never increases with distance", func() {
			prev := 26.0
			for i := 0; i <= 120; i++ {
				v := model.VolunteerProfile{Location: at(0, float64(i)*0.01)}
				got := engine.Score(v, p).Location
				So(got, ShouldBeLessThanOrEqualTo, prev)
				So(got, ShouldBeGreaterThanOrEqualTo, 0)
				prev = got
			}
			So(prev, ShouldEqual, 0)
		})

		Convey("Then a point halfway out decays linearly", func() {
			v := model.VolunteerProfile{Location: at(0, 0.5)}
			d := scoring.HaversineKm(*v.Location, *p.Location)
			So(d, ShouldAlmostEqual, 55.6, 0.1)
			So(engine.Score(v, p).Location, ShouldAlmostEqual, 25*(100-d)/95, 1e-9)
		})

		Convey("Then custom bounds are honored", func() {
			tight := scoring.NewEngine(scoring.WithDistanceBounds(1, 10))
			v := model.VolunteerProfile{Location: at(0, 0.5)}
			So(tight.Score(v, p).Location, ShouldEqual, 0)
		})
	})
}

func TestEngine_InterestsAvailabilityExperience(t *testing.T) {
	Convey("Given the remaining factors", t, func() {
		engine := scoring.NewEngine()

		Convey("Interests fall back to tag overlap when the category does not match", func() {
			v := model.VolunteerProfile{Interests: []string{"Youth", "sports"}}
			p := model.Project{Category: "education", Tags: []string{"youth", "reading"}}
			So(engine.Score(v, p).Interests, ShouldAlmostEqual, 25*0.5*0.5, 1e-9)
			So(engine.Score(model.VolunteerProfile{}, p).Interests, ShouldEqual, 0)
		})

		Convey("Availability scales with covered hours and status", func() {
			p := model.Project{HoursPerWeek: 10}
			v := model.VolunteerProfile{Availability: model.Availability{Status: model.Available, HoursPerWeek: 5}}
			So(engine.Score(v, p).Availability, ShouldEqual, 7.5)

			v.Availability.HoursPerWeek = 40
			So(engine.Score(v, p).Availability, ShouldEqual, 15)

			v.Availability.Status = model.Busy
			So(engine.Score(v, p).Availability, ShouldEqual, 7.5)

			v.Availability.Status = model.Unavailable
			So(engine.Score(v, p).Availability, ShouldEqual, 0)

			So(engine.Score(v, model.Project{}).Availability, ShouldEqual, 0)
		})

		Convey("Experience saturates above the ceiling", func() {
			So(engine.Score(model.VolunteerProfile{TotalHours: 100}, model.Project{}).Experience, ShouldEqual, 7.5)
			So(engine.Score(model.VolunteerProfile{TotalHours: 100, ImpactScore: 80}, model.Project{}).Experience, ShouldEqual, 12)
			So(engine.Score(model.VolunteerProfile{TotalHours: 10_000}, model.Project{}).Experience, ShouldEqual, 15)
			So(engine.Score(model.VolunteerProfile{TotalHours: -5}, model.Project{}).Experience, ShouldEqual, 0)
		})
	})
}

func TestEngine_Bounds(t *testing.T) {
	Convey("Given a fully matching pair", t, func() {
		engine := scoring.NewEngine()
		v := model.VolunteerProfile{
			Skills:       []model.VolunteerSkill{{Name: "x", Level: model.Expert}},
			Interests:    []string{"c"},
			Location:     at(10, 10),
			Availability: model.Availability{Status: model.Available, HoursPerWeek: 100},
			TotalHours:   1e6,
			ImpactScore:  1e6,
		}
		p := model.Project{
			Category:     "c",
			Skills:       []model.ProjectSkill{{Name: "x", Level: model.Expert, Required: true}},
			Location:     at(10, 10),
			HoursPerWeek: 1,
		}

		Convey("Then the total is exactly 100 and no factor exceeds its weight", func() {
			f := engine.Score(v, p)
			So(f.Total(), ShouldAlmostEqual, 100, 1e-9)
			So(f.Skills, ShouldBeLessThanOrEqualTo, 20)
			So(f.Experience, ShouldBeLessThanOrEqualTo, 15)
		})
	})
}

func finiteWithin(v, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= hi
}

func TestEngine_FarAndAntipodal(t *testing.T) {
	Convey("Given pairs spread across the globe", t, func() {
		engine := scoring.NewEngine()
		w := engine.Weights()
		v := model.VolunteerProfile{
			Skills:       []model.VolunteerSkill{{Name: "x", Level: model.Beginner}},
			Interests:    []string{"t"},
			Availability: model.Availability{Status: model.Available, HoursPerWeek: 3},
			TotalHours:   50,
		}
		p := model.Project{
			Category:     "c",
			Tags:         []string{"t", "u"},
			Skills:       []model.ProjectSkill{{Name: "x", Level: model.Advanced, Required: true}},
			HoursPerWeek: 8,
		}

		Convey("Then every factor is finite and bounded for antipodal points", func() {
			var bad []string
			for lat := -90.0; lat <= 90; lat += 1.5 {
				for lng := -180.0; lng <= 180; lng += 4.5 {
					v.Location = at(lat, lng)
					p.Location = at(-lat, lng+180)
					f := engine.Score(v, p)
					ok := finiteWithin(f.Skills, w.Skills) &&
						finiteWithin(f.Location, w.Location) &&
						finiteWithin(f.Interests, w.Interests) &&
						finiteWithin(f.Availability, w.Availability) &&
						finiteWithin(f.Experience, w.Experience) &&
						finiteWithin(f.Total(), 100)
					if !ok {
						bad = append(bad, fmt.Sprintf("%v vs %v: %+v", *v.Location, *p.Location, f))
					}
				}
			}
			So(bad, ShouldBeEmpty)
		})

		Convey("Then known antipodal and polar pairs are half the circumference apart", func() {
			pairs := [][2]*model.Coordinates{
				{at(-88.5, -180), at(88.5, 0)},
				{at(10, 0), at(-10, 180)},
				{at(90, 0), at(-90, 0)},
				{at(0, 0), at(0, 180)},
			}
			for _, pair := range pairs {
				d := scoring.HaversineKm(*pair[0], *pair[1])
				So(d, ShouldAlmostEqual, math.Pi*6371, 0.01)
				v.Location, p.Location = pair[0], pair[1]
				So(engine.Score(v, p).Location, ShouldEqual, 0)
			}
		})

		Convey("Then distance grows and the factor shrinks along the equator out to 20000 km", func() {
			prevD, prevF := -1.0, w.Location+1
			p.Location = at(0, 0)
			for lng := 0.0; lng <= 180; lng += 0.25 {
				v.Location = at(0, lng)
				d := scoring.HaversineKm(*v.Location, *p.Location)
				f := engine.Score(v, p).Location
				So(math.IsNaN(d), ShouldBeFalse)
				So(d, ShouldBeGreaterThanOrEqualTo, prevD)
				So(f, ShouldBeLessThanOrEqualTo, prevF)
				prevD, prevF = d, f
			}
			So(prevD, ShouldBeGreaterThan, 20000)
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given weights", t, func() {
		So(scoring.DefaultWeights().Validate(), ShouldBeNil)

		bad := scoring.Weights{Skills: 50, Location: 50, Interests: 10}
		So(errors.Is(bad.Validate(), scoring.ErrInvalidWeights), ShouldBeTrue)

		neg := scoring.Weights{Skills: -10, Location: 60, Interests: 50}
		So(neg.Validate(), ShouldNotBeNil)

		Convey("When invalid weights are passed as an option", func() {
			e := scoring.NewEngine(scoring.WithWeights(bad))

			Convey("Then the defaults are kept", func() {
				So(e.Weights(), ShouldResemble, scoring.DefaultWeights())
			})
		})

		Convey("When valid custom weights are passed", func() {
			w := scoring.Weights{Skills: 40, Location: 20, Interests: 20, Availability: 10, Experience: 10}
			e := scoring.NewEngine(scoring.WithWeights(w))
			v := model.VolunteerProfile{Skills: []model.VolunteerSkill{{Name: "x", Level: model.Expert}}}
			p := model.Project{Skills: []model.ProjectSkill{{Name: "x", Level: model.Beginner, Required: true}}}

			So(e.Score(v, p).Skills, ShouldEqual, 40)
		})
	})
}
