// Package explain turns match factors into a short human-readable reason.
package explain

import (
	"strings"

	"github.com/okian/vmatch/internal/domain/model"
)

// DefaultReason is returned when no factor crosses its threshold.
const DefaultReason = "Potential match based on profile"

const separator = ", "

type rule struct {
	value     func(model.MatchFactors) float64
	threshold float64
	phrase    string
}

// rules are evaluated in factor order: skills, location, interests, availability, experience.
var rules = []rule{
	{func(f model.MatchFactors) float64 { return f.Skills }, 15, "Has required skills"},
	{func(f model.MatchFactors) float64 { return f.Location }, 15, "Located nearby"},
	{func(f model.MatchFactors) float64 { return f.Interests }, 15, "Interested in this cause"},
	{func(f model.MatchFactors) float64 { return f.Availability }, 10, "Availability fits the schedule"},
	{func(f model.MatchFactors) float64 { return f.Experience }, 10, "Experienced volunteer"},
}

// Explain joins the phrase of every factor strictly above its threshold.
func Explain(f model.MatchFactors) string {
	phrases := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.value(f) > r.threshold {
			phrases = append(phrases, r.phrase)
		}
	}
	if len(phrases) == 0 {
		return DefaultReason
	}
	return strings.Join(phrases, separator)
}
