package biz

import (
	"math"

	"github.com/kart-io/evidence-x/internal/model"
)

// Default label thresholds, in percent.
const (
	DefaultHighThreshold   = 85.0
	DefaultMediumThreshold = 70.0
)

// Scorer labels evidence and aggregates it into an answer confidence.
// A percentage above high is High, above medium is Medium, otherwise Low.
type Scorer struct {
	high   float64
	medium float64
}

// NewScorer creates a scorer. Non-positive thresholds use the defaults.
func NewScorer(high, medium float64) *Scorer {
	if high <= 0 {
		high = DefaultHighThreshold
	}
	if medium <= 0 || medium >= high {
		medium = min(DefaultMediumThreshold, high)
	}
	return &Scorer{high: high, medium: medium}
}

// Percent converts a similarity to a percentage rounded to 1e-9, so that
// 0.86 compares as exactly 86.
func Percent(similarity float64) float64 {
	return math.Round(similarity*100*1e9) / 1e9
}

// MatchLabel returns the label for a similarity score.
func (s *Scorer) MatchLabel(similarity float64) model.MatchLabel {
	p := Percent(similarity)
	switch {
	case p > s.high:
		return model.MatchHigh
	case p > s.medium:
		return model.MatchMedium
	default:
		return model.MatchLow
	}
}

// Annotate fills MatchPercent, Label and Status of every item.
func (s *Scorer) Annotate(items []model.EvidenceItem) {
	for i := range items {
		label := s.MatchLabel(items[i].Score)
		items[i].MatchPercent = Percent(items[i].Score)
		items[i].Label = label
		items[i].Status = label.Status()
	}
}

// Score returns the mean similarity of items as a percentage. Empty
// evidence yields the No Evidence state rather than a zero score.
func (s *Scorer) Score(items []model.EvidenceItem) model.Confidence {
	if len(items) == 0 {
		return model.Confidence{Label: model.ConfidenceNoEvidence}
	}

	var sum float64
	for _, item := range items {
		sum += item.Score
	}
	mean := sum / float64(len(items))

	return model.Confidence{
		Score:       Percent(mean),
		Label:       model.ConfidenceLabel(s.MatchLabel(mean)),
		HasEvidence: true,
	}
}
