// Package report renders a matcher.ProcessedNode through the console
// logging surface (internal/logutil), the way a dry-run/validation
// front-end reports match outcomes against a sample event (spec §6.1:
// "SkipActions ... Used for dry-run/validation"). The matcher core never
// logs (internal/matcher has no logutil dependency); this package is the
// boundary collaborator that does, keeping with logutil's own layering
// rule that only process-owning code logs.
package report

import (
	"fmt"

	"github.com/danielsvitols/tornado/internal/logutil"
	"github.com/danielsvitols/tornado/internal/matcher"
)

// Print renders node and its descendants to the console at the current
// logutil verbosity.
func Print(node matcher.ProcessedNode) {
	printNode(node)
}

func printNode(node matcher.ProcessedNode) {
	if node.Type == "Ruleset" {
		printRuleset(node)
		return
	}
	printFilter(node)
}

func printFilter(node matcher.ProcessedNode) {
	switch node.FilterStatus {
	case matcher.FilterInactive:
		logutil.Verbose("filter %q is inactive, skipped", node.Name)
		return
	case matcher.FilterNotMatched:
		logutil.Verbose("filter %q did not match", node.Name)
		return
	}

	logutil.Success("filter %q matched, entering %d child node(s)", node.Name, len(node.Nodes))
	for _, child := range node.Nodes {
		printNode(child)
	}
}

func printRuleset(node matcher.ProcessedNode) {
	ctx := extractedVarsContext(node)
	if ctx != "" {
		logutil.Verbose("ruleset %q extracted vars: %s", node.Name, ctx)
	}

	for _, rule := range node.Rules {
		status := rule.Status.String()
		extra := rule.Message
		if rule.Status == matcher.PartiallyMatched && rule.Message == "" {
			extra = "partially matched with no diagnostic message"
			logutil.Error("ruleset %q rule %q: %s", node.Name, rule.Name, extra)
		}
		logutil.RuleOutcome(node.Name, rule.Name, status, len(rule.Actions), extra)
	}
}

func extractedVarsContext(node matcher.ProcessedNode) string {
	if len(node.ExtractedVars) == 0 {
		return ""
	}
	fields := make(map[string]string, len(node.ExtractedVars))
	for k, v := range node.ExtractedVars {
		fields[k] = fmt.Sprint(v)
	}
	return logutil.Context(fields)
}
