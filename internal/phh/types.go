// Package phh exports recorded hands in the Poker Hand History TOML format.
package phh

// HandHistory represents a single poker hand encoded in PHH format. Stacks and
// blinds are not recorded at the table, so they are written as zeros.
type HandHistory struct {
	Variant           string   `toml:"variant"`
	Table             string   `toml:"table,omitempty"`
	SeatCount         int      `toml:"seat_count,omitempty"`
	Seats             []int    `toml:"seats,omitempty"`
	Antes             []int    `toml:"antes"`
	BlindsOrStraddles []int    `toml:"blinds_or_straddles"`
	MinBet            int      `toml:"min_bet"`
	StartingStacks    []int    `toml:"starting_stacks"`
	Actions           []string `toml:"actions"`
	Players           []string `toml:"players,omitempty"`
	HandID            string   `toml:"hand"`
	Time              string   `toml:"time,omitempty"`
	TimeZone          string   `toml:"time_zone,omitempty"`
	Day               int      `toml:"day,omitempty"`
	Month             int      `toml:"month,omitempty"`
	Year              int      `toml:"year,omitempty"`
	Pot               float64  `toml:"_pot,omitempty"`
	Complete          bool     `toml:"_complete"`
	HandNumber        int      `toml:"_hand_number,omitempty"`
}
