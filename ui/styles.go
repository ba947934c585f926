package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ellipsis = "…"

var (
	// State colors
	playingColor = lipgloss.Color("#00FF00")
	pausedColor  = lipgloss.Color("#FFFF00")
	errorColor   = lipgloss.Color("#FF0000")
	idleColor    = lipgloss.Color("#888888")
	busyColor    = lipgloss.Color("#00AAFF")

	fuchsia = lipgloss.Color("#EE6FF8")

	subtleFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(fuchsia).
			Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#FF5F87")).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().Foreground(subtleFg)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"})
	okStyle     = lipgloss.NewStyle().Foreground(playingColor)
	failStyle   = lipgloss.NewStyle().Foreground(errorColor)
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
