package core

import (
	"time"

	"dockcore/pkg/domain"
)

// DeriveDocks computes the live occupancy of every dock in the universe
// from the records scattered across sides. A pure function of its inputs.
//
// When several records claim the same dock the highest-severity non-free
// claim wins; a free claim never displaces an existing reservation or
// occupation. Double claims can still reach the deriver after overrides
// or snapshot replication; it must never show a held dock as free.
func DeriveDocks(sides []Side, docks DockSet) map[int]DockState {
	states := make(map[int]DockState, docks.Len())
	for _, n := range docks.Numbers() {
		states[n] = DockState{State: domain.DockFree}
	}
	for _, side := range sides {
		for _, rec := range side.Records {
			if rec.Dock == nil || !docks.Contains(*rec.Dock) {
				continue
			}
			state := rec.Occupancy()
			if state == domain.DockFree {
				continue
			}
			current := states[*rec.Dock]
			if state.Rank() > current.State.Rank() {
				claim := rec.Clone()
				states[*rec.Dock] = DockState{State: state, Record: &claim, Side: side.Name}
			}
		}
	}
	return states
}

// BoardTile is one dock on the live board: the derived occupancy plus the
// display extras of the owning record. The cutoff alert uses the short
// BoardPreWarn window, not the summary one.
type BoardTile struct {
	DockState
	CutoffAlert AlertLevel `json:"cutoff_alert,omitempty"`
	AirM3       float64    `json:"air_m3,omitempty"`
	AirBoxes    int        `json:"air_boxes,omitempty"`
}

// BuildBoard derives the dock board shown to operators. Pure function of
// (sides, now, thresholds); free tiles carry no alert and no totals.
func BuildBoard(sides []Side, docks DockSet, now time.Time, th Thresholds) map[int]BoardTile {
	states := DeriveDocks(sides, docks)
	board := make(map[int]BoardTile, len(states))
	for n, st := range states {
		tile := BoardTile{DockState: st}
		if st.Record != nil {
			tile.CutoffAlert = CutoffBoardLevel(*st.Record, now, th)
			tile.AirM3, tile.AirBoxes = AirTotals(st.Record.AirItems)
		}
		board[n] = tile
	}
	return board
}
