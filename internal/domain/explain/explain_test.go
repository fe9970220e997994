package explain_test

import (
	"testing"

	"github.com/okian/vmatch/internal/domain/explain"
	"github.com/okian/vmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExplain(t *testing.T) {
	Convey("Given match factors", t, func() {
		Convey("When nothing crosses a threshold", func() {
			Convey("Then the default phrase is returned", func() {
				So(explain.Explain(model.MatchFactors{}), ShouldEqual, explain.DefaultReason)
				So(explain.Explain(model.MatchFactors{Skills: 15, Availability: 10}), ShouldEqual, explain.DefaultReason)
			})
		})

		Convey("When every factor is high", func() {
			f := model.MatchFactors{Skills: 20, Location: 25, Interests: 25, Availability: 15, Experience: 15}

			Convey("Then all phrases are joined in factor order", func() {
				So(explain.Explain(f), ShouldEqual,
					"Has required skills, Located nearby, Interested in this cause, Availability fits the schedule, Experienced volunteer")
			})
		})

		Convey("When only some factors are high", func() {
			f := model.MatchFactors{Skills: 2, Location: 16, Interests: 0, Availability: 3, Experience: 10.5}

			Convey("Then only those phrases appear", func() {
				So(explain.Explain(f), ShouldEqual, "Located nearby, Experienced volunteer")
			})
		})

		Convey("Then the result is deterministic", func() {
			f := model.MatchFactors{Skills: 18, Interests: 20}
			So(explain.Explain(f), ShouldEqual, explain.Explain(f))
		})
	})
}
