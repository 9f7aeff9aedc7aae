package scoring

import (
	"math"

	"github.com/sells-group/lead-cli/internal/jsontext"
	"github.com/sells-group/lead-cli/internal/model"
)

const (
	MinScore = 0.0
	MaxScore = 10.0
)

var (
	angelScoreKeys = []string{"angelScore", "angel_score", "angel"}
	icpScoreKeys   = []string{"icpScore", "icp_score", "icp"}
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(v float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, v))
}

func lookup(obj map[string]any, keys []string, def float64) float64 {
	for _, k := range keys {
		if raw, ok := obj[k]; ok {
			if n, ok := jsontext.Number(raw); ok {
				return Clamp(n)
			}
			return Clamp(def)
		}
	}
	return Clamp(def)
}

// Parse extracts and normalises the scores in a model reply. A missing or
// non-numeric sub-score takes def. It reports false when the reply holds no
// JSON object at all.
func Parse(reply string, def float64) (model.ScoreResult, bool) {
	obj, ok := jsontext.ExtractObject(reply)
	if !ok {
		return model.NewScoreResult(Clamp(def), Clamp(def)), false
	}
	return model.NewScoreResult(lookup(obj, angelScoreKeys, def), lookup(obj, icpScoreKeys, def)), true
}
