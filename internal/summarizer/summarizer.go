// Package summarizer reduces collections of measurements into aggregate
// statistics. Everything here is a pure function of its input: no I/O,
// no clock, no stored state.
package summarizer

import (
	"math"

	measurementdomain "github.com/wellkit/vitals/internal/measurement/domain"
)

// Trend describes how wellness moved across a window of measurements.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
)

// TeamMetrics holds per-field averages over a measurement window, rounded
// to two decimals. A nil field means no measurement in the window carried
// a value for it.
type TeamMetrics struct {
	AvgHeartRate     *float64 `json:"avg_heart_rate"`
	AvgSDNN          *float64 `json:"avg_sdnn"`
	AvgRMSSD         *float64 `json:"avg_rmssd"`
	AvgStress        *float64 `json:"avg_stress"`
	AvgFatigue       *float64 `json:"avg_fatigue"`
	AvgCognitiveLoad *float64 `json:"avg_cognitive_load"`
	AvgRecovery      *float64 `json:"avg_recovery"`
	AvgWellness      *float64 `json:"avg_wellness"`
	AvgBioAge        *float64 `json:"avg_bio_age"`
}

// Mean returns the arithmetic mean over non-nil values, rounded to two
// decimals, or nil when no value is present.
func Mean(values []*float64) *float64 {
	var sum float64
	var count int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		count++
	}
	if count == 0 {
		return nil
	}
	avg := Round2(sum / float64(count))
	return &avg
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summarize computes per-field averages over the given measurements.
func Summarize(records []*measurementdomain.Measurement) TeamMetrics {
	return TeamMetrics{
		AvgHeartRate:     meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.HeartRate }),
		AvgSDNN:          meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.SDNN }),
		AvgRMSSD:         meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.RMSSD }),
		AvgStress:        meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.Stress }),
		AvgFatigue:       meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.Fatigue }),
		AvgCognitiveLoad: meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.CognitiveLoad }),
		AvgRecovery:      meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.Recovery }),
		AvgWellness:      meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.WellnessIndex }),
		AvgBioAge:        meanOf(records, func(m *measurementdomain.Measurement) *float64 { return m.BioAge }),
	}
}

// TrendDirection compares the newest and oldest wellness_index in the
// window (records ordered newest first). Anything that is not strictly
// improving reads as stable; a declining state is not reported.
func TrendDirection(recordsNewestFirst []*measurementdomain.Measurement) Trend {
	if len(recordsNewestFirst) < 2 {
		return TrendStable
	}
	newest := recordsNewestFirst[0].WellnessIndex
	oldest := recordsNewestFirst[len(recordsNewestFirst)-1].WellnessIndex
	if newest == nil || oldest == nil {
		return TrendStable
	}
	if *newest > *oldest {
		return TrendImproving
	}
	return TrendStable
}

// WindowTrends reduces a window (ordered newest first) into the trends
// block of the employee dashboard. An empty window yields an empty map,
// never an error.
func WindowTrends(recordsNewestFirst []*measurementdomain.Measurement) map[string]any {
	trends := map[string]any{}
	if len(recordsNewestFirst) == 0 {
		return trends
	}

	trends["direction"] = string(TrendDirection(recordsNewestFirst))
	trends["window_size"] = len(recordsNewestFirst)

	metrics := Summarize(recordsNewestFirst)
	if metrics.AvgWellness != nil {
		trends["avg_wellness"] = *metrics.AvgWellness
	}
	if metrics.AvgStress != nil {
		trends["avg_stress"] = *metrics.AvgStress
	}
	if metrics.AvgRecovery != nil {
		trends["avg_recovery"] = *metrics.AvgRecovery
	}
	if metrics.AvgHeartRate != nil {
		trends["avg_heart_rate"] = *metrics.AvgHeartRate
	}

	return trends
}

func meanOf(records []*measurementdomain.Measurement, field func(*measurementdomain.Measurement) *float64) *float64 {
	values := make([]*float64, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		values = append(values, field(record))
	}
	return Mean(values)
}
