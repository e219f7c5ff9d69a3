package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles is the panel style set derived from one theme.
type styles struct {
	panel   lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	hint    lipgloss.Style
	good    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	subtle  lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Border),
		label:   lipgloss.NewStyle().Foreground(t.Muted),
		value:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		hint:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		good:    lipgloss.NewStyle().Foreground(t.Good).Bold(true),
		warning: lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		err:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		subtle:  lipgloss.NewStyle().Foreground(t.Border),
	}
}

// ProgressBar renders percent in [0,1] as a bar of width cells.
func (s styles) ProgressBar(percent float64, width int) string {
	filled := min(max(int(percent*float64(width)), 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case percent > 0.8:
		return s.good.Render(bar)
	case percent > 0.4:
		return s.warning.Render(bar)
	}
	return s.err.Render(bar)
}

// Sparkline renders the last width values, scaled between their min and max.
func (s styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		c := string(chars[min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)])
		switch {
		case norm > 0.7:
			b.WriteString(s.good.Render(c))
		case norm > 0.3:
			b.WriteString(s.warning.Render(c))
		default:
			b.WriteString(s.err.Render(c))
		}
	}
	return b.String()
}

func (s styles) Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return s.subtle.Render(left + " ◆ " + right)
}
