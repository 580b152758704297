package decision

import "btc-dca-engine/internal/bands"

// ReplayBearPause recomputes the pause flag from scratch by replaying
// only the pause set/clear rules over band history in date order,
// ignoring eligibility and retrace state. It must agree with the flag
// maintained incrementally by Transition over the same history; the
// replay audit uses that equivalence to detect drifted customer state.
func ReplayBearPause(rows []bands.Row) bool {
	paused := false
	for _, row := range rows {
		if !bands.Finite(row.Close) {
			continue
		}
		if bands.Finite(row.P200) && row.Close > row.P200 {
			paused = true
		}
		if bands.Finite(row.M100) && row.Close < row.M100 {
			paused = false
		}
	}
	return paused
}
