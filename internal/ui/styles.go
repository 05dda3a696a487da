package ui

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // confirmations
	ColorWarning   = lipgloss.Color("#FFB800") // pending, wrong network
	ColorError     = lipgloss.Color("#FF4444")
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // token amounts
	ColorMeta      = lipgloss.Color("#555555") // timestamps, hints
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorChain     = lipgloss.Color("#9B5DE5") // network names
	ColorHighlight = lipgloss.Color("#F15BB5") // focused controls
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the zkcstake banner.
func Banner() string {
	art := `
  ███████╗██╗  ██╗ ██████╗
  ╚══███╔╝██║ ██╔╝██╔════╝
    ███╔╝ █████╔╝ ██║
   ███╔╝  ██╔═██╗ ██║
  ███████╗██║  ██╗╚██████╗
  ╚══════╝╚═╝  ╚═╝ ╚═════╝`

	lines := strings.Split(art, "\n")
	for i, l := range lines {
		lines[i] = Fade(l, ColorChain, ColorHighlight)
	}
	tagline := StyleMeta.Render("     zkcstake · approve, stake, delegate")
	return strings.Join(lines, "\n") + "\n" + tagline + "\n"
}

// Fade colours s with a gradient running from one colour to the other.
func Fade(s string, from, to lipgloss.Color) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	blends := gamut.Blends(from, to, len(runes))
	return gradient(lipgloss.NewStyle().Bold(true), runes, blends)
}

func gradient(base lipgloss.Style, runes []rune, colors []color.Color) string {
	var sb strings.Builder
	for i, r := range runes {
		c, _ := colorful.MakeColor(colors[i%len(colors)])
		sb.WriteString(base.Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return sb.String()
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral status line.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a suggestion for what to run next.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a network name.
func ChainName(c string) string { return StyleChain.Render(c) }

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
