package ui

import (
	"strings"

	"github.com/mdp/qrterminal/v3"
)

// QRCode renders text as a half-block QR code for the terminal.
func QRCode(text string) string {
	var sb strings.Builder
	qrterminal.GenerateHalfBlock(text, qrterminal.M, &sb)
	return sb.String()
}
