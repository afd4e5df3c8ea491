package core

import (
	"fmt"
	"strings"
	"time"
)

// AlertLevel grades an SLA timer.
type AlertLevel string

// Timer severities. The empty level means the timer is inactive.
const (
	LevelNone AlertLevel = ""
	LevelWarn AlertLevel = "warn"
	LevelCrit AlertLevel = "crit"
)

// Thresholds configure the SLA timers, in whole minutes.
type Thresholds struct {
	// WaitWarn and WaitCrit grade the minutes a truck has held a dock
	// without arriving.
	WaitWarn int
	WaitCrit int
	// CutoffWarn is the pre-cutoff window that raises a warning.
	CutoffWarn int
	// BoardPreWarn is the shorter window used for the dock board icon.
	BoardPreWarn int
}

// DefaultThresholds returns the board defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{WaitWarn: 15, WaitCrit: 30, CutoffWarn: 15, BoardPreWarn: 5}
}

// TimerState is the outcome of one SLA axis.
type TimerState struct {
	Level AlertLevel
	// Minutes is the signed elapsed time: for the wait timer, minutes since
	// the reference instant; for the cutoff timer, now minus the cutoff
	// (negative while the cutoff is still ahead).
	Minutes int
}

// SLAInfo carries both timers plus the human-readable summary. The two axes
// are evaluated independently; callers decide how to combine them.
type SLAInfo struct {
	Wait    TimerState
	Cutoff  TimerState
	Message string
}

// EvaluateSLA computes the wait and cutoff timers for one record at the
// given instant. Unparseable time fields silently disable their axis.
func EvaluateSLA(rec Record, now time.Time, th Thresholds) SLAInfo {
	var info SLAInfo

	departed := strings.TrimSpace(rec.ActualDeparture) != ""
	arrived := strings.TrimSpace(rec.ActualArrival) != ""

	// The wait axis keys on arrival alone. A departure without a logged
	// arrival leaves the timer running; only the cutoff axis looks at it.
	if rec.HasDock() && !arrived {
		ref, ok := time.Time{}, false
		if rec.AssignedAt != nil {
			ref, ok = *rec.AssignedAt, true
		} else {
			ref, ok = ParseFlexibleTime(rec.PlannedArrival, now)
		}
		if ok {
			mins := MinutesBetween(now, ref)
			info.Wait.Minutes = mins
			switch {
			case mins >= th.WaitCrit:
				info.Wait.Level = LevelCrit
			case mins >= th.WaitWarn:
				info.Wait.Level = LevelWarn
			}
		}
	}

	if !departed {
		if cutoff, ok := ParseFlexibleTime(rec.DepartureCutoff, now); ok {
			diff := MinutesBetween(now, cutoff)
			info.Cutoff.Minutes = diff
			switch {
			case diff > 0:
				info.Cutoff.Level = LevelCrit
			case diff >= -th.CutoffWarn:
				info.Cutoff.Level = LevelWarn
			}
		}
	}

	var parts []string
	if info.Wait.Level != LevelNone {
		parts = append(parts, fmt.Sprintf("Espera en muelle %d min", info.Wait.Minutes))
	}
	switch info.Cutoff.Level {
	case LevelCrit:
		parts = append(parts, fmt.Sprintf("Salida tope superada (+%d min)", info.Cutoff.Minutes))
	case LevelWarn:
		parts = append(parts, fmt.Sprintf("Salida tope próxima (%d min)", -info.Cutoff.Minutes))
	}
	info.Message = strings.Join(parts, " · ")
	return info
}

// CutoffBoardLevel grades the cutoff icon shown on a busy dock tile. The
// window is the shorter BoardPreWarn one; a departed record never alerts.
func CutoffBoardLevel(rec Record, now time.Time, th Thresholds) AlertLevel {
	if strings.TrimSpace(rec.ActualDeparture) != "" {
		return LevelNone
	}
	cutoff, ok := ParseFlexibleTime(rec.DepartureCutoff, now)
	if !ok {
		return LevelNone
	}
	diff := MinutesBetween(now, cutoff)
	switch {
	case diff > 0:
		return LevelCrit
	case diff >= -th.BoardPreWarn:
		return LevelWarn
	default:
		return LevelNone
	}
}
