package search

import (
	"math"
	"strings"
)

// Scoring bounds. A field score is always within [0, MaxScore]; a combined
// score never drops below MinCombinedScore so that candidates matched only
// through a filter still rank above nothing at all.
const (
	MaxScore         = 100.0
	PartialScoreCap  = 95.0
	MinCombinedScore = 1.0
)

// fieldWeights maps logical field names to their salience during score
// combination. Identity-like fields (names, codes) dominate diffuse matches
// in long free text. Unlisted fields weigh 1.0.
var fieldWeights = map[string]float64{
	"name":           5.0,
	"code":           5.0,
	"course_name":    4.0,
	"course_code":    4.0,
	"professor_name": 4.0,
	"semester":       3.0,
	"description":    2.0,
	"lab":            2.0,
	"summary":        1.5,
	"content":        1.0,
}

// FieldWeight returns the combination weight for a logical field name.
func FieldWeight(field string) float64 {
	if w, ok := fieldWeights[field]; ok {
		return w
	}
	return 1.0
}

// ScoreField scores a token sequence against a single text field.
//
// An exact match of the space-joined phrase scores MaxScore. Otherwise the
// score is proportional to the number of tokens found as substrings, capped
// at PartialScoreCap so partial matches never tie with an exact phrase.
// Empty text or no matches score zero. Deterministic for identical inputs.
func ScoreField(tokens []string, text string) float64 {
	if text == "" || len(tokens) == 0 {
		return 0
	}

	text = strings.ToLower(text)
	if strings.Contains(text, strings.Join(tokens, " ")) {
		return MaxScore
	}

	matched := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return math.Min(PartialScoreCap, MaxScore*float64(matched)/float64(len(tokens)))
}

// Combine merges per-field scores into one composite score in
// [MinCombinedScore, MaxScore].
//
// Zero-score fields carry no signal and are discarded; if nothing remains the
// floor is returned. Remaining scores are averaged weighted by FieldWeight
// and rounded to one decimal place.
func Combine(scores map[string]float64) float64 {
	var weightedSum, totalWeight float64
	for field, score := range scores {
		if score == 0 {
			continue
		}
		w := FieldWeight(field)
		weightedSum += score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return MinCombinedScore
	}

	combined := math.Round(weightedSum/totalWeight*10) / 10
	if combined < MinCombinedScore {
		return MinCombinedScore
	}
	if combined > MaxScore {
		return MaxScore
	}
	return combined
}
