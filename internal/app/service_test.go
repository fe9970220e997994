package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/vmatch/internal/adapters/chat"
	service "github.com/okian/vmatch/internal/app"
	"github.com/okian/vmatch/internal/domain/matching"
	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: mirrors Notifier
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Channel() string { return "recording" }

func (r *recordingNotifier) ofType(t model.NotificationType) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type stubResponder struct{ reply string }

func (s stubResponder) Reply(context.Context, string) (string, error) { return s.reply, nil }

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newService(n *recordingNotifier, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.NewNop()),
		service.WithNotifier(n),
		service.WithWorkerCount(2),
		service.WithClock(func() time.Time { return t0 }),
	}
	return service.New(append(base, opts...)...)
}

func volunteer(id string, lat float64) model.VolunteerProfile {
	return model.VolunteerProfile{
		ID:           id,
		Name:         "Volunteer " + id,
		Email:        id + "@example.org",
		Skills:       []model.VolunteerSkill{{Name: "first-aid", Level: model.Advanced}},
		Interests:    []string{"healthcare"},
		Location:     &model.Coordinates{Lat: lat},
		Availability: model.Availability{Status: model.Available, HoursPerWeek: 10},
	}
}

func project(title string, capacity int) model.Project {
	return model.Project{
		OrganizationID: "org-1",
		Title:          title,
		Category:       "healthcare",
		Skills:         []model.ProjectSkill{{Name: "first-aid", Level: model.Beginner, Required: true}},
		Location:       &model.Coordinates{},
		HoursPerWeek:   10,
		Capacity:       capacity,
		ContactEmail:   "org@example.org",
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := newService(&recordingNotifier{})

		Convey("Then operations fail before Start", func() {
			_, err := svc.GetProject(ctx, "p1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Running(), ShouldBeTrue)

			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["channel"], ShouldEqual, "recording")
			So(stats["projects"], ShouldEqual, 0)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the service reports stopped", func() {
				So(svc.Running(), ShouldBeFalse)
				_, err := svc.GetVolunteer(ctx, "v1")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_ProjectsAndVolunteers(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := newService(&recordingNotifier{}, service.WithNotifyTopK(0))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a project is created", func() {
			in := project("Clinic support", 3)
			in.Status = model.ProjectClosed
			in.AppliedCount = 7
			p, err := svc.CreateProject(ctx, in)

			Convey("Then it gets an id and starts active and empty", func() {
				So(err, ShouldBeNil)
				So(p.ID, ShouldNotBeEmpty)
				So(p.Status, ShouldEqual, model.ProjectActive)
				So(p.AppliedCount, ShouldEqual, 0)
				So(p.CreatedAt, ShouldEqual, t0)

				got, err := svc.GetProject(ctx, p.ID)
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Clinic support")
			})

			Convey("And it can be closed once", func() {
				closed, err := svc.UpdateProjectStatus(ctx, p.ID, model.ProjectClosed)
				So(err, ShouldBeNil)
				So(closed.Status, ShouldEqual, model.ProjectClosed)

				_, err = svc.UpdateProjectStatus(ctx, p.ID, model.ProjectCancelled)
				So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
			})

			Convey("And reopening is rejected", func() {
				_, err := svc.UpdateProjectStatus(ctx, p.ID, model.ProjectActive)
				So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
			})

			Convey("And its id cannot be reused", func() {
				again := project("Other", 1)
				again.ID = p.ID
				_, err := svc.CreateProject(ctx, again)
				So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a project is invalid", func() {
			_, err := svc.CreateProject(ctx, model.Project{Title: "No org"})
			So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
		})

		Convey("When a project does not exist", func() {
			_, err := svc.GetProject(ctx, "missing")
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)

			_, err = svc.UpdateProjectStatus(ctx, "missing", model.ProjectClosed)
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a volunteer is saved without availability status or skill level", func() {
			v := volunteer("v1", 0)
			v.Availability.Status = ""
			v.Skills[0].Level = ""
			saved, err := svc.SaveVolunteer(ctx, v)

			Convey("Then defaults are applied", func() {
				So(err, ShouldBeNil)
				So(saved.Availability.Status, ShouldEqual, model.Available)
				So(saved.Skills[0].Level, ShouldEqual, model.Beginner)
			})
		})

		Convey("When a volunteer is invalid", func() {
			v := volunteer("v1", 0)
			v.Location = &model.Coordinates{Lat: 120}
			_, err := svc.SaveVolunteer(ctx, v)
			So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
		})

		Convey("When a volunteer does not exist", func() {
			_, err := svc.GetVolunteer(ctx, "ghost")
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_ProactiveMatching(t *testing.T) {
	Convey("Given volunteers at increasing distance", t, func() {
		ctx := context.Background()
		n := &recordingNotifier{}
		svc := newService(n, service.WithNotifyTopK(2), service.WithCandidatePoolSize(10))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		for _, v := range []model.VolunteerProfile{volunteer("near", 0), volunteer("mid", 0.3), volunteer("far", 5)} {
			_, err := svc.SaveVolunteer(ctx, v)
			So(err, ShouldBeNil)
		}

		Convey("When a project is created", func() {
			p, err := svc.CreateProject(ctx, project("Clinic support", 5))
			So(err, ShouldBeNil)

			Convey("Then only the top volunteers are notified", func() {
				So(eventually(func() bool { return len(n.ofType(model.NotifyProjectMatch)) == 2 }), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)

				sent := n.ofType(model.NotifyProjectMatch)
				So(sent, ShouldHaveLength, 2)
				recipients := map[string]bool{}
				for _, s := range sent {
					recipients[s.RecipientID] = true
					So(s.Data["subject_id"], ShouldEqual, p.ID)
				}
				So(recipients, ShouldResemble, map[string]bool{"near": true, "mid": true})
			})
		})

		Convey("When matching is requested directly", func() {
			p, err := svc.CreateProject(ctx, project("Clinic support", 5))
			So(err, ShouldBeNil)

			recs, err := svc.RecommendVolunteers(ctx, p.ID, 3)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 3)
			So(recs[0].Entity.ID, ShouldEqual, "near")

			matches, err := svc.FindMatches(ctx, "far", 10)
			So(err, ShouldBeNil)
			So(matches, ShouldHaveLength, 1)

			_, err = svc.FindMatches(ctx, "far", 0)
			So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestService_Applications(t *testing.T) {
	Convey("Given a project and two volunteers", t, func() {
		ctx := context.Background()
		n := &recordingNotifier{}
		svc := newService(n, service.WithNotifyTopK(0))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		p, err := svc.CreateProject(ctx, project("Food bank", 1))
		So(err, ShouldBeNil)
		for _, id := range []string{"v1", "v2"} {
			_, err := svc.SaveVolunteer(ctx, volunteer(id, 0))
			So(err, ShouldBeNil)
		}

		Convey("When a volunteer applies", func() {
			a, err := svc.Apply(ctx, p.ID, "v1", "  happy to help ")

			Convey("Then the application is pending and the organization is notified", func() {
				So(err, ShouldBeNil)
				So(a.Status, ShouldEqual, model.ApplicationPending)
				So(a.Message, ShouldEqual, "happy to help")
				So(eventually(func() bool { return len(n.ofType(model.NotifyNewApplication)) == 1 }), ShouldBeTrue)
				sent := n.ofType(model.NotifyNewApplication)[0]
				So(sent.RecipientID, ShouldEqual, "org-1")
				So(sent.RecipientEmail, ShouldEqual, "org@example.org")
			})

			Convey("And the project fills up", func() {
				got, err := svc.GetProject(ctx, p.ID)
				So(err, ShouldBeNil)
				So(got.AppliedCount, ShouldEqual, 1)

				_, err = svc.Apply(ctx, p.ID, "v2", "")
				So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
			})

			Convey("And applying twice is rejected", func() {
				_, err := svc.Apply(ctx, p.ID, "v1", "")
				So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
			})

			Convey("And the project no longer shows up in the volunteer's matches", func() {
				matches, err := svc.FindMatches(ctx, "v1", 10)
				So(err, ShouldBeNil)
				So(matches, ShouldBeEmpty)
			})

			Convey("And the organization accepts it", func() {
				updated, err := svc.UpdateApplication(ctx, a.ID, model.ApplicationAccepted)
				So(err, ShouldBeNil)
				So(updated.Status, ShouldEqual, model.ApplicationAccepted)

				So(eventually(func() bool { return len(n.ofType(model.NotifyApplicationStatus)) == 1 }), ShouldBeTrue)
				sent := n.ofType(model.NotifyApplicationStatus)[0]
				So(sent.RecipientID, ShouldEqual, "v1")
				So(sent.RecipientEmail, ShouldEqual, "v1@example.org")
				So(sent.Message, ShouldContainSubstring, "Food bank")

				Convey("Then a second decision is rejected", func() {
					_, err := svc.UpdateApplication(ctx, a.ID, model.ApplicationWithdrawn)
					So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
				})
			})

			Convey("And the volunteer withdraws without a notification", func() {
				updated, err := svc.UpdateApplication(ctx, a.ID, model.ApplicationWithdrawn)
				So(err, ShouldBeNil)
				So(updated.Status, ShouldEqual, model.ApplicationWithdrawn)
				time.Sleep(20 * time.Millisecond)
				So(n.ofType(model.NotifyApplicationStatus), ShouldBeEmpty)
			})
		})

		Convey("When the project is closed", func() {
			_, err := svc.UpdateProjectStatus(ctx, p.ID, model.ProjectClosed)
			So(err, ShouldBeNil)

			_, err = svc.Apply(ctx, p.ID, "v1", "")
			So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
		})

		Convey("When the anchors do not exist", func() {
			_, err := svc.Apply(ctx, p.ID, "ghost", "")
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)

			_, err = svc.Apply(ctx, "nope", "v1", "")
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)

			_, err = svc.UpdateApplication(ctx, "nope", model.ApplicationAccepted)
			So(errors.Is(err, matching.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the status is unknown", func() {
			_, err := svc.UpdateApplication(ctx, "any", "MAYBE")
			So(errors.Is(err, matching.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestService_Chat(t *testing.T) {
	Convey("Given services with and without a responder", t, func() {
		ctx := context.Background()

		disabled := newService(&recordingNotifier{})
		So(disabled.Start(ctx), ShouldBeNil)
		defer func() { _ = disabled.Stop(ctx) }()
		_, err := disabled.Chat(ctx, "hi")
		So(errors.Is(err, chat.ErrDisabled), ShouldBeTrue)

		svc := newService(&recordingNotifier{}, service.WithResponder(stubResponder{reply: "hello"}))
		_, err = svc.Chat(ctx, "hi")
		So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

		So(svc.Start(ctx), ShouldBeNil)
		reply, err := svc.Chat(ctx, "hi")
		So(err, ShouldBeNil)
		So(reply, ShouldEqual, "hello")

		Convey("When the service is stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then chat is refused like every other operation", func() {
				_, err := svc.Chat(ctx, "hi")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}
