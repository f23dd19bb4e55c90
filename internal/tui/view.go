package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
	"github.com/DoyleJ11/fleet-bracket/internal/style"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9a8d4"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2).Width(32)
	smashStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#34d399")).Bold(true)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true)
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("⚓ Fleet Bracket"))
	b.WriteString("\n\n")

	s := m.snap.Session
	switch st := s.State.(type) {
	case engine.Loading, nil:
		b.WriteString("Loading ship catalog...\n")
	case engine.Failed:
		b.WriteString(errStyle.Render("Could not load the ship catalog."))
		b.WriteString("\n")
		for _, f := range st.Failures {
			b.WriteString("  • " + f + "\n")
		}
		b.WriteString("\n" + m.help(m.keys.Reload, m.keys.Quit))
	case engine.Selecting:
		m.viewSelecting(&b, st.Selection)
	case engine.RoundComplete:
		fmt.Fprintf(&b, "Round complete: %d smashed, %d passed.\n\n", len(st.Selection.Accepted), len(st.Selection.Rejected))
		b.WriteString(m.filterLine() + "\n\n")
		b.WriteString(m.help(m.keys.Tournament, m.keys.Results, m.keys.Restart, m.keys.Faction, m.keys.Type, m.keys.Quit))
	case engine.Results:
		m.viewResults(&b, st.Selection)
	case engine.Bracketing:
		m.viewBracket(&b, st.Tournament)
	case engine.Crowned:
		c := *st.Tournament.Champion
		b.WriteString(smashStyle.Render("👑 Champion") + "\n\n")
		b.WriteString(m.card(c, false) + "\n\n")
		fmt.Fprintf(&b, "Won after %d rounds against %d entrants.\n\n", st.Tournament.RoundNumber, len(st.Tournament.Seed))
		b.WriteString(m.help(m.keys.Redo, m.keys.Restart, m.keys.Quit))
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()))
	}
	return b.String()
}

func (m Model) viewSelecting(b *strings.Builder, sel engine.Selection) {
	b.WriteString(m.filterLine() + "\n")
	fmt.Fprintf(b, "%s %d/%d (%.0f%%)\n\n", progressBar(sel.Progress(), 30), sel.Cursor, len(sel.Queue), sel.Progress())

	cur, _ := sel.Current()
	b.WriteString(m.card(cur, sel.Pending != nil) + "\n")
	if sel.Pending != nil {
		if *sel.Pending == engine.ChoiceSmash {
			b.WriteString(smashStyle.Render("SMASH!"))
		} else {
			b.WriteString(passStyle.Render("PASS"))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.help(m.keys.Pass, m.keys.Smash, m.keys.Faction, m.keys.Type, m.keys.Quit))
}

func (m Model) viewResults(b *strings.Builder, sel engine.Selection) {
	list, label := sel.Accepted, "Smashed"
	if m.tab == tabPassed {
		list, label = sel.Rejected, "Passed"
	}
	fmt.Fprintf(b, "%s (%d)\n", label, len(list))
	if len(list) == 0 {
		b.WriteString(dimStyle.Render("  nothing here") + "\n")
	}
	for _, it := range list {
		fs := style.ForFaction(it.Faction)
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(style.RarityColor(it.Rarity))).Render(it.Name)
		fmt.Fprintf(b, "  %s %s %s\n", fs.Flag, name, dimStyle.Render(it.Type))
	}
	b.WriteString("\n")
	if len(sel.Accepted) < 2 {
		b.WriteString(dimStyle.Render("Smash at least two ships to start a tournament.") + "\n")
	}
	b.WriteString(m.help(m.keys.Tab, m.keys.Tournament, m.keys.Restart, m.keys.Quit))
}

func (m Model) viewBracket(b *strings.Builder, t engine.Tournament) {
	r := t.Round
	fmt.Fprintf(b, "Round %d · match %d of %d", t.RoundNumber, min(r.PairIndex+1, len(r.Pairs)), len(r.Pairs))
	if r.Bye != nil {
		fmt.Fprintf(b, " · %s has a bye", r.Bye.Name)
	}
	b.WriteString("\n\n")

	if pair, ok := r.Current(); ok {
		left := m.card(pair[0], r.Pending != nil && *r.Pending == 0)
		right := m.card(pair[1], r.Pending != nil && *r.Pending == 1)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, left, "  VS  ", right))
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.help(m.keys.PickLeft, m.keys.PickRight, m.keys.Abort, m.keys.Quit))
}

// card draws one ship framed in its faction colour. A highlighted card is
// the one just chosen.
func (m Model) card(it engine.Item, highlight bool) string {
	fs := style.ForFaction(it.Faction)
	border := lipgloss.Color(fs.Accent)
	if highlight {
		border = lipgloss.Color("#fbbf24")
	}
	rarity := lipgloss.NewStyle().Foreground(lipgloss.Color(style.RarityColor(it.Rarity))).Render(it.Rarity)
	body := fmt.Sprintf("%s %s\n%s\n%s · %s", fs.Flag, lipgloss.NewStyle().Bold(true).Render(it.Name), rarity, it.Faction, it.Type)
	if it.Thumbnail == "" || m.snap.Session.BrokenImages[it.ID] {
		body += "\n" + dimStyle.Render("no image")
	}
	return cardStyle.BorderForeground(border).Render(body)
}

func (m Model) filterLine() string {
	f := m.snap.Session.Filter
	return dimStyle.Render(fmt.Sprintf("faction: %s · type: %s", f.Faction, f.Type))
}

func (m Model) help(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return dimStyle.Render(strings.Join(parts, " • "))
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	filled = max(0, min(filled, width))
	return smashStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}
