package interview

import (
	"math"

	"talentloop/internal/types"
)

const (
	DefaultHRStatus     = "In Review"
	DefaultResponseTime = "Within 3-5 business days"
)

// ToScorecard converts a server summary on a 0-10 scale into the 0-100
// scorecard shown by the results view
func ToScorecard(s types.Summary) types.Scorecard {
	sc := types.Scorecard{
		OverallScore:         int(scale(s.OverallScore)),
		CommunicationScore:   scale(s.SkillWiseScores.Communication),
		TechnicalScore:       scale(s.SkillWiseScores.RoleSpecificKnowledge),
		ConfidenceScore:      scale(s.SkillWiseScores.Confidence),
		Strengths:            s.Strengths,
		Improvements:         s.ImprovementAreas,
		HRStatus:             s.FinalRecommendation,
		ExpectedResponseTime: s.ExpectedResponseTime,
	}
	if sc.Strengths == nil {
		sc.Strengths = []string{}
	}
	if sc.Improvements == nil {
		sc.Improvements = []string{}
	}
	if sc.HRStatus == "" {
		sc.HRStatus = DefaultHRStatus
	}
	if sc.ExpectedResponseTime == "" {
		sc.ExpectedResponseTime = DefaultResponseTime
	}
	return sc
}

func scale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v * 10)
}
