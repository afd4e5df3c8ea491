package core

import (
	"math"
	"strconv"
	"strings"
	"time"

	"dockcore/pkg/domain"
)

// SummaryRecord pairs a record with its side and evaluated SLA state.
type SummaryRecord struct {
	Side   string
	Record Record
	SLA    SLAInfo
}

// Summary aggregates the board buckets across every side.
type Summary struct {
	OK        []SummaryRecord
	Loading   []SummaryRecord
	Cancelled []SummaryRecord
	Incidents []SummaryRecord

	// CutoffRows holds every record with an active cutoff timer, with the
	// warn/crit split counted separately.
	CutoffRows []SummaryRecord
	CutoffWarn int
	CutoffCrit int

	// WaitRows holds every record with an active wait timer.
	WaitRows []SummaryRecord
	WaitWarn int
	WaitCrit int

	Total int
}

// BuildSummary walks all sides and classifies every record. Pure function
// of (sides, now, thresholds).
func BuildSummary(sides []Side, now time.Time, th Thresholds) Summary {
	var sum Summary
	for _, side := range sides {
		for _, rec := range side.Records {
			sum.Total++
			entry := SummaryRecord{Side: side.Name, Record: rec.Clone(), SLA: EvaluateSLA(rec, now, th)}
			switch rec.Status {
			case domain.StatusOK:
				sum.OK = append(sum.OK, entry)
			case domain.StatusLoading:
				sum.Loading = append(sum.Loading, entry)
			case domain.StatusCancelled:
				sum.Cancelled = append(sum.Cancelled, entry)
			}
			if strings.TrimSpace(rec.Incident) != "" {
				sum.Incidents = append(sum.Incidents, entry)
			}
			if entry.SLA.Cutoff.Level != LevelNone {
				sum.CutoffRows = append(sum.CutoffRows, entry)
				if entry.SLA.Cutoff.Level == LevelCrit {
					sum.CutoffCrit++
				} else {
					sum.CutoffWarn++
				}
			}
			if entry.SLA.Wait.Level != LevelNone {
				sum.WaitRows = append(sum.WaitRows, entry)
				if entry.SLA.Wait.Level == LevelCrit {
					sum.WaitCrit++
				} else {
					sum.WaitWarn++
				}
			}
		}
	}
	return sum
}

// AirTotals sums air-cargo quantities. Cubic meters accept a decimal comma
// and are rounded to two decimals; box counts are whole numbers.
// Unparseable quantities are skipped rather than failing the total.
func AirTotals(items []AirItem) (m3 float64, boxes int) {
	for _, it := range items {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(it.M3), ",", "."), 64); err == nil {
			m3 += v
		}
		if b, err := strconv.Atoi(strings.TrimSpace(it.Boxes)); err == nil {
			boxes += b
		}
	}
	m3 = math.Round(m3*100) / 100
	return m3, boxes
}
