package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// detector yields at most one factor.
type detector func(history []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool)

// detectors run in this order; it is also the tiebreak order for equal weights.
var detectors = []detector{
	detectTraffic,
	detectWeather,
	detectTimeOfDay,
	detectHistorical,
	detectRegion,
	detectDriverPerformance,
}

const (
	recentWindow  = 30
	minSampleSize = 5
)

var (
	severeWeather   = map[string]bool{"storm": true, "snow": true, "heavy_rain": true, "ice": true, "hail": true}
	moderateWeather = map[string]bool{"rain": true, "fog": true, "wind": true, "sleet": true}
)

func detectTraffic(_ []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool) {
	if cond.Traffic == nil {
		return models.DelayFactor{}, false
	}
	switch *cond.Traffic {
	case models.TrafficHigh:
		return models.DelayFactor{Type: models.FactorTraffic, Weight: 0.4, Description: "Heavy traffic on the delivery route"}, true
	case models.TrafficMedium:
		return models.DelayFactor{Type: models.FactorTraffic, Weight: 0.2, Description: "Moderate traffic on the delivery route"}, true
	}
	return models.DelayFactor{}, false
}

func detectWeather(_ []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool) {
	if cond.Weather == nil {
		return models.DelayFactor{}, false
	}
	w := strings.ToLower(strings.TrimSpace(*cond.Weather))
	switch {
	case severeWeather[w]:
		return models.DelayFactor{Type: models.FactorWeather, Weight: 0.4, Description: fmt.Sprintf("Severe weather: %s", w)}, true
	case moderateWeather[w]:
		return models.DelayFactor{Type: models.FactorWeather, Weight: 0.25, Description: fmt.Sprintf("Adverse weather: %s", w)}, true
	}
	return models.DelayFactor{}, false
}

func detectTimeOfDay(_ []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool) {
	if cond.HourOfDay == nil {
		return models.DelayFactor{}, false
	}
	h := *cond.HourOfDay
	switch {
	case h < 0 || h > 23:
		return models.DelayFactor{}, false
	case (h >= 7 && h <= 9) || (h >= 17 && h <= 19):
		return models.DelayFactor{Type: models.FactorTimeOfDay, Weight: 0.3, Description: "Delivery falls in rush hour"}, true
	case h >= 11 && h <= 13:
		return models.DelayFactor{Type: models.FactorTimeOfDay, Weight: 0.15, Description: "Delivery falls in the lunch peak"}, true
	}
	return models.DelayFactor{}, false
}

func detectHistorical(history []models.DeliveryHistoryRecord, _ models.CurrentConditions) (models.DelayFactor, bool) {
	recent := mostRecent(history, recentWindow)
	if len(recent) == 0 {
		return models.DelayFactor{}, false
	}

	delayed := 0
	for _, r := range recent {
		if r.IsDelayed() {
			delayed++
		}
	}
	rate := float64(delayed) / float64(len(recent))

	desc := fmt.Sprintf("%.0f%% of the last %d deliveries were delayed", rate*100, len(recent))
	switch {
	case rate > 0.4:
		return models.DelayFactor{Type: models.FactorHistorical, Weight: 0.35, Description: desc}, true
	case rate > 0.25:
		return models.DelayFactor{Type: models.FactorHistorical, Weight: 0.2, Description: desc}, true
	}
	return models.DelayFactor{}, false
}

func detectRegion(history []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool) {
	if cond.Region == "" {
		return models.DelayFactor{}, false
	}

	var sum float64
	n := 0
	for _, r := range history {
		if r.Region == cond.Region {
			sum += r.DelayMinutes
			n++
		}
	}
	if n < minSampleSize {
		return models.DelayFactor{}, false
	}

	avg := sum / float64(n)
	desc := fmt.Sprintf("Region %s averages %.1f minutes of delay", cond.Region, avg)
	switch {
	case avg > 20:
		return models.DelayFactor{Type: models.FactorRegion, Weight: 0.25, Description: desc}, true
	case avg > 10:
		return models.DelayFactor{Type: models.FactorRegion, Weight: 0.15, Description: desc}, true
	}
	return models.DelayFactor{}, false
}

func detectDriverPerformance(history []models.DeliveryHistoryRecord, cond models.CurrentConditions) (models.DelayFactor, bool) {
	if cond.DriverID == "" {
		return models.DelayFactor{}, false
	}

	var sum float64
	n, onTime := 0, 0
	for _, r := range history {
		if r.DriverID != cond.DriverID {
			continue
		}
		sum += r.DelayMinutes
		n++
		if !r.IsDelayed() {
			onTime++
		}
	}
	if n < minSampleSize {
		return models.DelayFactor{}, false
	}

	avg := sum / float64(n)
	rate := float64(onTime) / float64(n)
	slow := avg > 15
	unreliable := rate < 0.7

	desc := fmt.Sprintf("Driver averages %.1f minutes of delay with %.0f%% on time", avg, rate*100)
	switch {
	case slow && unreliable:
		return models.DelayFactor{Type: models.FactorDriverPerformance, Weight: 0.3, Description: desc}, true
	case slow || unreliable:
		return models.DelayFactor{Type: models.FactorDriverPerformance, Weight: 0.15, Description: desc}, true
	}
	return models.DelayFactor{}, false
}

// mostRecent returns up to n records, newest first, without touching the input.
func mostRecent(history []models.DeliveryHistoryRecord, n int) []models.DeliveryHistoryRecord {
	sorted := make([]models.DeliveryHistoryRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
