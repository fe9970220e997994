package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestProficiency(t *testing.T) {
	convey.Convey("Given proficiency levels", t, func() {
		convey.Convey("Then they are ordered beginner to expert", func() {
			convey.So(model.Beginner.Rank(), convey.ShouldBeLessThan, model.Intermediate.Rank())
			convey.So(model.Intermediate.Rank(), convey.ShouldBeLessThan, model.Advanced.Rank())
			convey.So(model.Advanced.Rank(), convey.ShouldBeLessThan, model.Expert.Rank())
			convey.So(model.Expert.Satisfies(model.Beginner), convey.ShouldBeTrue)
			convey.So(model.Beginner.Satisfies(model.Advanced), convey.ShouldBeFalse)
		})

		convey.Convey("When parsing", func() {
			p, err := model.ParseProficiency(" advanced ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(p, convey.ShouldEqual, model.Advanced)

			p, err = model.ParseProficiency("")
			convey.So(err, convey.ShouldBeNil)
			convey.So(p, convey.ShouldEqual, model.Beginner)

			_, err = model.ParseProficiency("guru")
			convey.So(errors.Is(err, model.ErrInvalid), convey.ShouldBeTrue)
		})
	})
}

func TestMatchFactors(t *testing.T) {
	convey.Convey("Given match factors", t, func() {
		f := model.MatchFactors{Skills: 19.999, Location: 12.346, Interests: 25, Availability: 7.5, Experience: 0.004}

		convey.Convey("Then Total is the exact sum", func() {
			convey.So(f.Total(), convey.ShouldAlmostEqual, 64.849, 1e-9)
		})

		convey.Convey("Then Rounded rounds each factor to two decimals", func() {
			r := f.Rounded()
			convey.So(r.Skills, convey.ShouldEqual, 20.0)
			convey.So(r.Location, convey.ShouldEqual, 12.35)
			convey.So(r.Experience, convey.ShouldEqual, 0.0)
		})

		convey.Convey("Then Round handles one decimal", func() {
			convey.So(model.Round(64.849, 1), convey.ShouldEqual, 64.8)
			convey.So(model.Round(64.86, 1), convey.ShouldEqual, 64.9)
		})
	})
}

func TestProject(t *testing.T) {
	convey.Convey("Given a project", t, func() {
		p := model.Project{ID: "p1", OrganizationID: "o1", Title: "Food bank", Status: model.ProjectActive, Capacity: 2}

		convey.Convey("Then it is full once applications reach capacity", func() {
			convey.So(p.IsFull(), convey.ShouldBeFalse)
			p.AppliedCount = 2
			convey.So(p.IsFull(), convey.ShouldBeTrue)
		})

		convey.Convey("Then zero capacity never fills", func() {
			p.Capacity = 0
			p.AppliedCount = 100
			convey.So(p.IsFull(), convey.ShouldBeFalse)
		})

		convey.Convey("Then validation rejects missing fields and bad values", func() {
			convey.So(p.Validate(), convey.ShouldBeNil)

			bad := p
			bad.Title = " "
			convey.So(errors.Is(bad.Validate(), model.ErrInvalid), convey.ShouldBeTrue)

			bad = p
			bad.Status = "OPEN"
			convey.So(bad.Validate(), convey.ShouldNotBeNil)

			bad = p
			bad.Location = &model.Coordinates{Lat: 91}
			convey.So(bad.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestVolunteerValidate(t *testing.T) {
	convey.Convey("Given a volunteer profile", t, func() {
		v := model.VolunteerProfile{
			ID:           "v1",
			Skills:       []model.VolunteerSkill{{Name: "first-aid", Level: model.Intermediate}},
			Availability: model.Availability{Status: model.Available, HoursPerWeek: 5},
		}

		convey.So(v.Validate(), convey.ShouldBeNil)

		v.Availability.Status = "SOMETIMES"
		convey.So(v.Validate(), convey.ShouldNotBeNil)
	})
}

func TestApplicationTransitions(t *testing.T) {
	convey.Convey("Given a pending application", t, func() {
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		a := model.Application{ID: "a1", Status: model.ApplicationPending}

		convey.Convey("When it is accepted", func() {
			err := a.Transition(model.ApplicationAccepted, now)

			convey.Convey("Then the status and timestamp change", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.Status, convey.ShouldEqual, model.ApplicationAccepted)
				convey.So(a.UpdatedAt, convey.ShouldEqual, now)
			})

			convey.Convey("And a second decision is rejected", func() {
				err := a.Transition(model.ApplicationWithdrawn, now)
				convey.So(errors.Is(err, model.ErrInvalidTransition), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When moving back to pending", func() {
			convey.So(a.Transition(model.ApplicationPending, now), convey.ShouldNotBeNil)
		})
	})
}

func TestNotificationDedupeKey(t *testing.T) {
	convey.Convey("Given notifications about the same subject", t, func() {
		a := model.Notification{RecipientID: "v1", Type: model.NotifyProjectMatch, Data: map[string]any{"subject_id": "p1"}}
		b := a
		b.Title = "different title"

		convey.So(a.DedupeKey(), convey.ShouldEqual, b.DedupeKey())
		convey.So(a.DedupeKey(), convey.ShouldEqual, "v1:project_match:p1")
	})
}
