package model

import (
	U "attribution/util"
)

// QualityScore grades one batch of order insights. Component scores and
// the overall score are percentages in [0, 100]; the overall score weighs
// completeness 0.4, consistency 0.3 and accuracy 0.3.
type QualityScore struct {
	Completeness float64 `json:"completeness_score"`
	Consistency  float64 `json:"consistency_score"`
	Accuracy     float64 `json:"accuracy_score"`
	Overall      float64 `json:"overall_score"`

	RecordsChecked int64 `json:"records_checked"`
}

const (
	qualityWeightCompleteness = 0.4
	qualityWeightConsistency  = 0.3
	qualityWeightAccuracy     = 0.3
)

// ScoreBatch computes the quality score over a resolved batch. An empty
// batch scores 0 on every axis rather than an artificial 100.
func ScoreBatch(insights []OrderInsight) QualityScore {
	score := QualityScore{RecordsChecked: int64(len(insights))}
	if len(insights) == 0 {
		return score
	}

	var complete, consistent, accurate int64
	for i := range insights {
		insight := &insights[i]

		if insight.OrderID != "" && !insight.OrderDate.IsZero() && insight.OrderValue > 0 {
			complete++
		}

		// Attribution flag and attribution source must agree.
		if insight.IsAttributed == (insight.AttributionSource != "") {
			consistent++
		}

		// Missing unit costs count as zero, which still satisfies the
		// value ordering below.
		if insight.TotalCogs >= 0 && insight.OrderValue >= insight.TotalCogs {
			accurate++
		}
	}

	total := float64(len(insights))
	score.Completeness = U.FloatRoundOff(U.SafeDivide(float64(complete), total)*100, 4)
	score.Consistency = U.FloatRoundOff(U.SafeDivide(float64(consistent), total)*100, 4)
	score.Accuracy = U.FloatRoundOff(U.SafeDivide(float64(accurate), total)*100, 4)

	overall := qualityWeightCompleteness*score.Completeness +
		qualityWeightConsistency*score.Consistency +
		qualityWeightAccuracy*score.Accuracy
	if overall < 0 {
		overall = 0
	} else if overall > 100 {
		overall = 100
	}
	score.Overall = U.FloatRoundOff(overall, 4)
	return score
}
