package game

import "sort"

// TurnOrder is the result of replaying one street of a hand.
type TurnOrder struct {
	// ToAct holds roster indices that still owe an action this street, ascending.
	ToAct []int
	// Active holds roster indices that have not folded, ascending.
	Active []int
}

// StreetClosed reports whether nobody owes an action on the street.
func (t TurnOrder) StreetClosed() bool {
	return len(t.ToAct) == 0
}

// HandDecided reports whether fewer than two players are still in the hand.
func (t TurnOrder) HandDecided() bool {
	return len(t.Active) < 2
}

// IsActive reports whether the roster index is still in the hand.
func (t TurnOrder) IsActive(idx int) bool {
	return contains(t.Active, idx)
}

// OwesAction reports whether the roster index still has to act.
func (t TurnOrder) OwesAction(idx int) bool {
	return contains(t.ToAct, idx)
}

// NextAfter returns the lowest index in ToAct greater than idx, wrapping to the
// lowest index overall so a late raise sends action back to earlier seats.
func (t TurnOrder) NextAfter(idx int) (int, bool) {
	if len(t.ToAct) == 0 {
		return 0, false
	}
	for _, i := range t.ToAct {
		if i > idx {
			return i, true
		}
	}
	return t.ToAct[0], true
}

// First returns the lowest index still owing action.
func (t TurnOrder) First() (int, bool) {
	if len(t.ToAct) == 0 {
		return 0, false
	}
	return t.ToAct[0], true
}

// DeriveTurnOrder replays the hand's action log for street against the roster.
//
// Players who folded on an earlier street are out for good. Everyone else owes
// an action at the start of the street. Replaying the street in order: a fold
// removes the player from both sets, an aggressive action removes the actor and
// puts every other active player back in ToAct, a check or call only removes
// the actor. Actions by players outside the roster are ignored.
func DeriveTurnOrder(hand Hand, street Street, roster []Player) TurnOrder {
	target := street.Index()

	foldedEarlier := make(map[string]bool)
	for _, a := range hand.Actions {
		if a.Type == Fold && a.Street.Index() < target {
			foldedEarlier[a.PlayerID] = true
		}
	}

	indexOf := make(map[string]int, len(roster))
	active := make(map[int]bool, len(roster))
	for i, p := range roster {
		indexOf[p.ID] = i
		if !foldedEarlier[p.ID] {
			active[i] = true
		}
	}

	toAct := make(map[int]bool, len(active))
	for i := range active {
		toAct[i] = true
	}

	for _, a := range StreetActions(hand, street) {
		idx, ok := indexOf[a.PlayerID]
		if !ok {
			continue
		}
		switch {
		case a.Type == Fold:
			delete(toAct, idx)
			delete(active, idx)
		case a.Type.IsAggressive():
			delete(toAct, idx)
			for other := range active {
				if other != idx {
					toAct[other] = true
				}
			}
		default:
			delete(toAct, idx)
		}
	}

	return TurnOrder{ToAct: sortedKeys(toAct), Active: sortedKeys(active)}
}

// PlayersToAct returns the roster indices still owing an action on street.
func PlayersToAct(hand Hand, street Street, roster []Player) []int {
	return DeriveTurnOrder(hand, street, roster).ToAct
}

// StreetActions returns the street's actions sorted by order.
func StreetActions(hand Hand, street Street) []Action {
	var out []Action
	for _, a := range hand.Actions {
		if a.Street == street {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// LegalActions returns the actions offered to the player on the hand's current
// street: fold, raise and either check or call depending on whether an
// aggressive action is already on the street.
func LegalActions(hand Hand) []ActionType {
	if HasAggressionOnStreet(hand, hand.CurrentStreet) {
		return []ActionType{Fold, Call, Raise}
	}
	return []ActionType{Fold, Check, Raise}
}

// IsLegal reports whether t is currently offered by LegalActions.
func IsLegal(hand Hand, t ActionType) bool {
	for _, a := range LegalActions(hand) {
		if a == t {
			return true
		}
	}
	return false
}

// HasAggressionOnStreet reports whether anyone raised, bet or went all-in on street.
func HasAggressionOnStreet(hand Hand, street Street) bool {
	for _, a := range hand.Actions {
		if a.Street == street && a.Type.IsAggressive() {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
