package actionable

import (
	"fmt"

	"palatlas-go/internal/types"
)

// SaturationThreshold is the share of sampled places carrying one category
// above which the category is reported as saturated.
const SaturationThreshold = 0.35

type ActionCard struct {
	Insight string  `json:"insight"`
	Action  string  `json:"action"`
	Impact  string  `json:"impact"`
	Segment string  `json:"segment,omitempty"`
	Share   float64 `json:"share"`
}

func Generate(s types.Summary) ActionCard {
	sampled := len(s.Places)
	top := s.PlaceCategories.Top(1)
	if sampled == 0 || len(top) == 0 {
		return ActionCard{
			Insight: "Not enough place data to assess category concentration",
			Action:  "Widen the query limit or try a neighbouring locality",
			Impact:  "Low immediate intervention",
		}
	}
	worst := top[0].Category
	share := float64(top[0].Count) / float64(sampled)
	if share >= SaturationThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("High concentration of %s businesses (%.0f%% of sampled places)", worst, share*100),
			Action:  fmt.Sprintf("Differentiate on experience or price before entering %s; look for adjacent under-served categories", worst),
			Impact:  "Avoid a saturated segment and lower customer acquisition cost",
			Segment: worst,
			Share:   share,
		}
	}
	return ActionCard{
		Insight: "No dominant business category detected",
		Action:  "Monitor category mix and validate demand with a small pilot",
		Impact:  "Balanced market with room for new entrants",
		Segment: worst,
		Share:   share,
	}
}
