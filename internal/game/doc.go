// Package game holds the recorded data model of a poker session (players,
// hands, hole cards, community cards and the append-only action log) and the
// pure derivations over it.
//
// # Turn order
//
// DeriveTurnOrder replays a street's actions from the authoritative log and
// returns the roster positions that still owe an action. It is recomputed on
// every call so that devices polling stale snapshots converge on the same
// answer:
//
//	order := game.DeriveTurnOrder(hand, game.Flop, roster)
//	if len(order.Active) < 2 {
//	    // everyone else folded, the hand is over
//	}
//	if len(order.ToAct) == 0 {
//	    // street finished, the dealer deals the next one
//	}
//
// A raise, bet or all-in reopens action for every other active player even
// if they already acted on the street. A fold is permanent for the hand.
package game
