// Package logutil provides the console logging used by the matcher
// engine's surrounding tooling (the reload supervisor and the dry-run
// report renderer). The core evaluation packages never log; only the
// boundary code that owns a process lifetime does.
package logutil

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// VerbosityLevel represents the logging verbosity
type VerbosityLevel int

const (
	// NormalLevel shows standard output (default)
	NormalLevel VerbosityLevel = iota
	// VerboseLevel shows additional details and timestamps
	VerboseLevel
)

// ANSI color codes
const (
	colorReset       = "\033[0m"
	colorRed         = "\033[91m"
	colorGreen       = "\033[92m"
	colorYellow      = "\033[93m"
	colorCyan        = "\033[96m"
	colorGray        = "\033[90m"
	colorDimGray     = "\033[38;5;240m" // Very dim gray for timestamps
	colorContextGray = "\033[38;5;8m"   // Dim gray for context
	colorBrightWhite = "\033[97m"       // Bright white for node names
	colorNormalWhite = "\033[37m"       // Normal white for messages
	colorBold        = "\033[1m"
)

var (
	// CurrentVerbosity is the current verbosity level
	CurrentVerbosity = NormalLevel
	// ShowTimestamps controls whether timestamps are shown
	ShowTimestamps = false

	// Unicode symbols with colors
	checkMark = colorGreen + "✓" + colorReset  // green checkmark
	warnMark  = colorYellow + "⚠" + colorReset // yellow warning
	crossMark = colorRed + "✗" + colorReset    // red cross
	infoMark  = colorGray + "ℹ" + colorReset   // gray info

	// statusIcons map a rule's evaluation status to a glyph.
	statusIcons = map[string]string{
		"Matched":           "🟢",
		"PartiallyMatched":  "🟡",
		"NotMatched":        "⚪",
		"NotProcessed":      "⚫",
	}

	// statusColors map a rule's evaluation status to a text color.
	statusColors = map[string]string{
		"Matched":          colorGreen,
		"PartiallyMatched": colorYellow,
		"NotMatched":       colorGray,
		"NotProcessed":     colorDimGray,
	}
)

func init() {
	// Simple, consistent log format without default timestamps;
	// we render our own prefixes instead.
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

// SetVerbosity sets the current verbosity level
func SetVerbosity(level VerbosityLevel) {
	CurrentVerbosity = level
}

// SetTimestamps enables or disables timestamps
func SetTimestamps(enabled bool) {
	ShowTimestamps = enabled
}

func timestamp() string {
	if ShowTimestamps {
		return colorDimGray + time.Now().Format("15:04:05") + colorReset + " "
	}
	return ""
}

func Info(format string, args ...any) {
	if CurrentVerbosity < NormalLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Println(timestamp() + infoMark + " " + msg)
}

func Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(timestamp() + warnMark + " " + msg)
}

func Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Println(timestamp() + crossMark + " " + msg)
}

func Success(format string, args ...any) {
	if CurrentVerbosity < NormalLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Println(timestamp() + checkMark + " " + msg)
}

// Verbose logs a message only in verbose mode
func Verbose(format string, args ...any) {
	if CurrentVerbosity < VerboseLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	log.Println(timestamp() + infoMark + " " + msg)
}

func statusLabel(status string) string {
	color, ok := statusColors[status]
	if !ok {
		color = colorGray
	}
	icon := statusIcons[status]
	if icon == "" {
		icon = "•"
	}
	return icon + " " + color + colorBold + status + colorReset
}

// RuleOutcome logs one rule's evaluation outcome (ruleset name, rule name,
// status, and how many actions were emitted). extra is shown only in
// verbose mode, as a second indented line (e.g. a dropped-action message).
func RuleOutcome(rulesetName, ruleName, status string, actionCount int, extra string) {
	if CurrentVerbosity >= VerboseLevel {
		fmt.Println()
	}

	ts := timestamp()
	label := statusLabel(status)

	nameStyled := colorBrightWhite + colorBold + rulesetName + "." + ruleName + colorReset
	colonStyled := colorBold + ":" + colorReset

	summary := fmt.Sprintf("%d action(s)", actionCount)
	coloredSummary := colorNormalWhite + summary + colorReset

	line := fmt.Sprintf("%s%s %s%s %s", ts, label, nameStyled, colonStyled, coloredSummary)
	log.Println(line)

	if extra != "" && CurrentVerbosity >= VerboseLevel {
		indent := "         "
		if ShowTimestamps {
			indent = "          "
		}
		log.Printf("%s%s└─ %s%s\n", indent, colorContextGray, extra, colorReset)
	}
}

// Context formats a set of key/value pairs for a verbose context line.
func Context(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, " ")
}
