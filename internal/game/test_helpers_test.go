package game

func testRoster(ids ...string) []Player {
	roster := make([]Player, len(ids))
	for i, id := range ids {
		roster[i] = Player{ID: id, Name: id, SeatNumber: i + 1}
	}
	return roster
}

func testHand(roster []Player) Hand {
	h := Hand{ID: "h1", HandNumber: 1, CurrentStreet: Preflop}
	for _, p := range roster {
		h.PlayerHands = append(h.PlayerHands, PlayerHand{PlayerID: p.ID})
	}
	return h
}

func act(h *Hand, playerID string, t ActionType, street Street) {
	a := Action{PlayerID: playerID, Type: t, Street: street, Order: len(h.Actions)}
	if t.IsAggressive() {
		amount := 100.0
		a.Amount = &amount
	}
	h.Actions = append(h.Actions, a)
}
