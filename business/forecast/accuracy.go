package forecast

import (
	"math"
	"sort"

	"myGreenInsight/domain"
)

const NoComparableData = "no comparable data"

type DayComparison struct {
	Date      string   `json:"date"`
	Predicted float64  `json:"predicted"`
	Actual    float64  `json:"actual"`
	APE       *float64 `json:"ape,omitempty"`
}

type Accuracy struct {
	ComparedDays   int             `json:"compared_days"`
	MAPE           float64         `json:"mape"`
	Accuracy       float64         `json:"accuracy"`
	PredictedTotal float64         `json:"predicted_total"`
	ActualTotal    float64         `json:"actual_total"`
	Days           []DayComparison `json:"days"`
	Message        string          `json:"message,omitempty"`
}

func (a Accuracy) Comparable() bool {
	return a.ComparedDays > 0
}

// Analyze matches predictions with actuals by date. The daily error is
// relative to the prediction, so days predicted at 0 are listed but
// excluded from MAPE. Accuracy is 100 − MAPE clamped to [0, 100].
func Analyze(predicted []domain.DailyForecast, actual map[string]float64) Accuracy {
	res := Accuracy{Days: []DayComparison{}}

	var apeSum float64
	for _, p := range predicted {
		act, ok := actual[p.Date]
		if !ok {
			continue
		}
		day := DayComparison{Date: p.Date, Predicted: p.Predicted, Actual: act}
		res.PredictedTotal += p.Predicted
		res.ActualTotal += act

		if p.Predicted != 0 {
			ape := math.Abs(act-p.Predicted) / math.Abs(p.Predicted) * 100
			day.APE = &ape
			apeSum += ape
			res.ComparedDays++
		}
		res.Days = append(res.Days, day)
	}
	sort.Slice(res.Days, func(i, j int) bool { return res.Days[i].Date < res.Days[j].Date })

	res.PredictedTotal = round2(res.PredictedTotal)
	res.ActualTotal = round2(res.ActualTotal)

	if res.ComparedDays == 0 {
		res.Message = NoComparableData
		return res
	}

	res.MAPE = round2(apeSum / float64(res.ComparedDays))
	res.Accuracy = round2(math.Max(0, math.Min(100, 100-res.MAPE)))
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
