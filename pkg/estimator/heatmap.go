package estimator

import (
	"time"

	"github.com/rxtx-hosting/mtastats/pkg/store"
)

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// BuildHeatmap averages players per (UTC weekday, UTC hour). It needs more
// than minRecords observations.
func BuildHeatmap(obs []store.Observation, minRecords int) (Heatmap, bool) {
	if len(obs) <= minRecords {
		return Heatmap{}, false
	}

	var sums, counts [7][24]float64
	for _, o := range obs {
		ts := o.Timestamp.UTC()
		d := dayIndex(ts.Weekday())
		sums[d][ts.Hour()] += float64(o.Players)
		counts[d][ts.Hour()]++
	}

	hm := Heatmap{
		Days:   make([]string, len(weekdayOrder)),
		Hours:  make([]int, 24),
		Values: make([][]*float64, len(weekdayOrder)),
	}
	for h := range hm.Hours {
		hm.Hours[h] = h
	}
	for d, wd := range weekdayOrder {
		hm.Days[d] = wd.String()
		hm.Values[d] = make([]*float64, 24)
		for h := 0; h < 24; h++ {
			if counts[d][h] == 0 {
				continue
			}
			mean := sums[d][h] / counts[d][h]
			hm.Values[d][h] = &mean
		}
	}
	return hm, true
}

// Cell returns the mean for (day, hour) and whether any data fell there.
func (h Heatmap) Cell(day time.Weekday, hour int) (float64, bool) {
	if len(h.Values) != len(weekdayOrder) || hour < 0 || hour > 23 {
		return 0, false
	}
	v := h.Values[dayIndex(day)][hour]
	if v == nil {
		return 0, false
	}
	return *v, true
}

func dayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// Busiest returns the cell with the highest mean.
func (h Heatmap) Busiest() (day time.Weekday, hour int, mean float64, ok bool) {
	for _, wd := range weekdayOrder {
		for hr := 0; hr < 24; hr++ {
			v, present := h.Cell(wd, hr)
			if present && (!ok || v > mean) {
				day, hour, mean, ok = wd, hr, v, true
			}
		}
	}
	return day, hour, mean, ok
}
