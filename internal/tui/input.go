package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/pokerstyle/internal/game"
)

var actionAliases = map[string]game.ActionType{
	"f":      game.Fold,
	"fold":   game.Fold,
	"x":      game.Check,
	"k":      game.Check,
	"check":  game.Check,
	"c":      game.Call,
	"call":   game.Call,
	"r":      game.Raise,
	"raise":  game.Raise,
	"b":      game.Bet,
	"bet":    game.Bet,
	"a":      game.AllIn,
	"allin":  game.AllIn,
	"all-in": game.AllIn,
}

// parseAction reads commands like "call", "r 120" or "all-in 300". Aggressive
// actions need an amount; the others must not have one.
func parseAction(input string) (game.ActionType, *float64, error) {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("enter an action")
	}

	t, ok := actionAliases[parts[0]]
	if !ok {
		return "", nil, fmt.Errorf("unknown action %q", parts[0])
	}

	if !t.IsAggressive() {
		if len(parts) > 1 {
			return "", nil, fmt.Errorf("%s takes no amount", t)
		}
		return t, nil, nil
	}

	if len(parts) != 2 {
		return "", nil, fmt.Errorf("%s needs an amount, e.g. %q", t, parts[0]+" 100")
	}
	amount, err := strconv.ParseFloat(strings.TrimPrefix(parts[1], "$"), 64)
	if err != nil || !game.ValidAmount(amount) {
		return "", nil, fmt.Errorf("invalid amount %q", parts[1])
	}
	return t, &amount, nil
}

// parseTarget reads a hand count.
func parseTarget(input string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, false
	}
	return n, true
}
