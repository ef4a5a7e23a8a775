package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.ctrl.Phase().Step == game.StepComplete {
		b.WriteString(m.results.View())
	} else {
		b.WriteString(PanelStyle.Render(m.renderBody()))
	}
	b.WriteString("\n")

	switch {
	case m.busy != "":
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Working (%s)...", m.busy)))
	case m.err != nil:
		b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
	case m.notice != "":
		b.WriteString(SuccessStyle.Render(m.notice))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(m.help()))
	return b.String()
}

func (m *Model) renderHeader() string {
	s := m.ctrl.Session()
	if s == nil {
		return HeaderStyle.Render("pokerstyle")
	}
	v := m.ctrl.View()
	return HeaderStyle.Render(fmt.Sprintf("pokerstyle  %s  hands %d/%d  %s",
		s.Code, v.CompletedHands, v.TargetHands, s.Status))
}

func (m *Model) renderBody() string {
	p := m.ctrl.Phase()
	v := m.ctrl.View()
	player, _ := m.ctrl.CurrentPlayer()

	switch p.Step {
	case game.StepLoading:
		return "Loading session..."

	case game.StepHandStart:
		var b strings.Builder
		b.WriteString(TitleStyle.Render(fmt.Sprintf("Hand %d of %d", v.CompletedHands+1, v.TargetHands)))
		b.WriteString("\n\n")
		b.WriteString(m.renderPlayers())
		if len(m.options) > 0 {
			opts := make([]string, len(m.options))
			for i, n := range m.options {
				opts[i] = fmt.Sprint(n)
				if n == v.TargetHands {
					opts[i] = ActionsStyle.Render("[" + opts[i] + "]")
				}
			}
			b.WriteString("\nHands to play: " + strings.Join(opts, " "))
		}
		return b.String()

	case game.StepPlayerIntro:
		return fmt.Sprintf("%s\n\n%s",
			TitleStyle.Render("Pass the tablet to "+player.Name),
			fmt.Sprintf("Seat %d, %s. Press Enter when only %s can see the screen.", player.SeatNumber, p.Street, player.Name))

	case game.StepCardInput:
		return fmt.Sprintf("%s\n\nEnter your two hole cards, e.g. \"As Kd\" or \"10h 10c\".\n%s",
			TitleStyle.Render(player.Name+", your cards"),
			m.renderUsed(v.Hand))

	case game.StepActionSelect:
		return m.renderTurn(player, v.Hand, p.Street)

	case game.StepTurnComplete:
		last := "Action recorded"
		if n := len(v.Hand.Actions); n > 0 {
			last = fmt.Sprintf("%s: %s", player.Name, v.Hand.Actions[n-1])
		}
		return fmt.Sprintf("%s\n\nPress Enter and hand the tablet on.", SuccessStyle.Render(last))

	case game.StepDealerTurn:
		return fmt.Sprintf("%s\n\nBoard: %s\nEnter %d card(s) for the %s.\n%s",
			TitleStyle.Render("Dealer: deal the "+strings.ToUpper(string(p.Street))),
			m.formatCards(v.Hand.CommunityCards),
			p.Street.CardsDealt(), p.Street,
			m.renderUsed(v.Hand))

	case game.StepHandComplete:
		return m.renderHandSummary(v.Hand, v.CompletedHands, v.TargetHands)

	case game.StepDiagnosing:
		return TitleStyle.Render("Diagnosing playing styles...")
	}
	return ""
}

func (m *Model) renderPlayers() string {
	s := m.ctrl.Session()
	if s == nil || len(s.Players) == 0 {
		return WarningStyle.Render("No players seated yet") + "\n"
	}
	var b strings.Builder
	for _, p := range s.Players {
		b.WriteString(PlayerInfoStyle.Render(fmt.Sprintf("  Seat %d: %s", p.SeatNumber, p.Name)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTurn(player game.Player, hand game.Hand, street game.Street) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s to act (%s)", player.Name, street)))
	b.WriteString("\n\n")

	hole := []cards.Card(nil)
	if ph, ok := hand.PlayerHand(player.ID); ok {
		hole = ph.HoleCards
	}
	b.WriteString(HandInfoStyle.Render(fmt.Sprintf("Hand: %s  Board: %s  Pot: $%g",
		m.formatCards(hole), m.formatCards(hand.CommunityCards), hand.Pot)))
	b.WriteString("\n")

	for _, a := range game.StreetActions(hand, street) {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("  %s: %s", m.playerName(a.PlayerID), a)))
		b.WriteString("\n")
	}

	var actions []string
	for _, t := range m.ctrl.LegalActions() {
		label := "[" + string(t) + "]"
		switch {
		case t == game.Fold:
			actions = append(actions, ErrorStyle.Render(label))
		case t.IsAggressive():
			actions = append(actions, WarningStyle.Render(fmt.Sprintf("[%s <amount>]", t)))
		default:
			actions = append(actions, SuccessStyle.Render(label))
		}
	}
	b.WriteString("\n")
	b.WriteString(ActionsStyle.Render("Actions: " + strings.Join(actions, " ")))
	return b.String()
}

func (m *Model) renderHandSummary(hand game.Hand, completed, target int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Hand %d complete", hand.HandNumber)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Board: %s  Pot: $%g\n", m.formatCards(hand.CommunityCards), hand.Pot))

	folded := hand.FoldedPlayerIDs()
	for _, ph := range hand.PlayerHands {
		status := "showdown"
		if folded[ph.PlayerID] {
			status = "folded"
		}
		b.WriteString(fmt.Sprintf("  %-12s %s %s\n", m.playerName(ph.PlayerID), m.formatCards(ph.HoleCards), InfoStyle.Render(status)))
	}
	b.WriteString(fmt.Sprintf("\n%d of %d hands played", completed, target))
	return b.String()
}

// renderResults lists every player's diagnosis, ordered by seat.
func (m *Model) renderResults() string {
	s := m.ctrl.Session()
	if s == nil {
		return ""
	}

	players := append([]game.Player(nil), s.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].SeatNumber < players[j].SeatNumber })

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Results"))
	b.WriteString("\n")
	for _, p := range players {
		r, ok := s.DiagnosisResults[p.ID]
		if !ok {
			continue
		}
		b.WriteString("\n")
		b.WriteString(HandInfoStyle.Render(fmt.Sprintf("%s: %s (%s)", p.Name, r.BusinessType, r.PokerStyle)))
		b.WriteString("\n")
		b.WriteString(r.BusinessTypeDescription)
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(fmt.Sprintf("VPIP %.0f%%  PFR %.0f%%  AF %.1f  Fold %.0f%%  C-bet %.0f%%  Showdown %.0f%%  (%d hands)",
			r.Stats.VPIP, r.Stats.PFR, r.Stats.AggressionFactor, r.Stats.FoldPercentage,
			r.Stats.CBetPercentage, r.Stats.ShowdownPercentage, r.Stats.TotalHands)))
		b.WriteString("\n")
		for _, a := range r.Axes {
			b.WriteString(fmt.Sprintf("  %-20s %3d %s\n", a.Label, a.Score, scoreBar(a.Score)))
		}
		if len(r.Strengths) > 0 {
			b.WriteString(SuccessStyle.Render("Strengths: ") + strings.Join(r.Strengths, "; ") + "\n")
		}
		if len(r.Weaknesses) > 0 {
			b.WriteString(WarningStyle.Render("Growth: ") + strings.Join(r.Weaknesses, "; ") + "\n")
		}
		if r.Advice != "" {
			b.WriteString("Advice: " + r.Advice + "\n")
		}
	}
	return b.String()
}

func scoreBar(score int) string {
	n := min(max(score, 0), 100) / 10
	return ActionsStyle.Render(strings.Repeat("#", n)) + InfoStyle.Render(strings.Repeat(".", 10-n))
}

func (m *Model) renderUsed(hand game.Hand) string {
	used := hand.UsedCards()
	if used.Len() == 0 {
		return ""
	}
	var list []cards.Card
	for _, c := range cards.FullDeck() {
		if used.Contains(c) {
			list = append(list, c)
		}
	}
	return InfoStyle.Render("In use: ") + m.formatCards(list)
}

func (m *Model) help() string {
	switch m.ctrl.Phase().Step {
	case game.StepHandStart:
		h := "Enter to deal • number or Tab to change target"
		if m.ctrl.CanDiagnose() {
			h += " • d to diagnose now"
		}
		return h + " • Ctrl+C to quit"
	case game.StepActionSelect:
		return "fold, check, call or raise <amount> • Ctrl+C to quit"
	case game.StepHandComplete:
		h := "Enter for the next hand"
		if m.ctrl.CanDiagnose() {
			h += " • d to diagnose"
		}
		return h + " • Ctrl+C to quit"
	case game.StepComplete:
		return "↑↓ scroll • Enter to exit"
	default:
		return "Enter to continue • Ctrl+C to quit"
	}
}

func (m *Model) playerName(id string) string {
	if s := m.ctrl.Session(); s != nil {
		if p, ok := s.FindPlayer(id); ok {
			return p.Name
		}
	}
	return id
}

// formatCards formats cards with colors
func (m *Model) formatCards(cs []cards.Card) string {
	if len(cs) == 0 {
		return "[]"
	}
	formatted := make([]string, len(cs))
	for i, c := range cs {
		if c.Suit.IsRed() {
			formatted[i] = RedCardStyle.Render(c.String())
		} else {
			formatted[i] = BlackCardStyle.Render(c.String())
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}
