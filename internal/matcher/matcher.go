// Package matcher implements the engine's entry point: walking a compiled
// processing tree against a single event and accumulating a structured,
// per-node result (spec §4.6-§4.7, §6.1).
package matcher

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/interpolate"
	"github.com/danielsvitols/tornado/internal/tree"
	"github.com/danielsvitols/tornado/internal/value"
)

// Mode selects whether action payloads are rendered (spec §6.1).
type Mode int

const (
	// Full renders and returns action payloads.
	Full Mode = iota
	// SkipActions performs matching only; every rule's action list is
	// always empty. Used for dry-run/validation.
	SkipActions
)

// FilterStatus is a Filter node's outcome.
type FilterStatus int

const (
	FilterMatched FilterStatus = iota
	FilterNotMatched
	FilterInactive
)

func (s FilterStatus) String() string {
	switch s {
	case FilterMatched:
		return "Matched"
	case FilterNotMatched:
		return "NotMatched"
	case FilterInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// RuleStatus is a single rule's evaluation outcome (spec §4.6).
type RuleStatus int

const (
	NotProcessed RuleStatus = iota
	NotMatched
	PartiallyMatched
	Matched
)

func (s RuleStatus) String() string {
	switch s {
	case NotProcessed:
		return "NotProcessed"
	case NotMatched:
		return "NotMatched"
	case PartiallyMatched:
		return "PartiallyMatched"
	case Matched:
		return "Matched"
	default:
		return "Unknown"
	}
}

// ProcessedAction is a single rendered (or dropped) action.
type ProcessedAction struct {
	ID      string
	Payload value.Value
}

// ProcessedRule is a single rule's record within a processed ruleset
// (spec §6.1: "{name, status, actions: [{id, payload}], message}").
type ProcessedRule struct {
	Name    string
	Status  RuleStatus
	Actions []ProcessedAction
	Message string
}

// ProcessedNode mirrors the shape of the tree node it was produced from
// (spec §6.1).
type ProcessedNode struct {
	Type string // "Filter" or "Ruleset"
	Name string

	// Filter fields.
	FilterStatus FilterStatus
	Nodes        []ProcessedNode

	// Ruleset fields.
	Rules         []ProcessedRule
	ExtractedVars map[string]value.Value
}

// Match walks the compiled tree against a single event, producing a
// ProcessedNode mirroring the tree's shape (spec §4.7, §6.1). The call is
// synchronous, allocates no shared state, and may be invoked concurrently
// by any number of callers against the same immutable root (spec §5).
func Match(ev event.Event, root tree.Node, mode Mode) ProcessedNode {
	return matchNode(ev, root, mode)
}

func matchNode(ev event.Event, n tree.Node, mode Mode) ProcessedNode {
	switch n.Kind {
	case tree.NodeRuleset:
		return matchRuleset(ev, n, mode)
	default:
		return matchFilter(ev, n, mode)
	}
}

func matchFilter(ev event.Event, n tree.Node, mode Mode) ProcessedNode {
	if !n.Active {
		return ProcessedNode{Type: "Filter", Name: n.Name, FilterStatus: FilterInactive}
	}

	status := FilterMatched
	if n.Filter != nil {
		env := accessor.NewEnv()
		if !n.Filter.Eval(ev, env, "") {
			status = FilterNotMatched
		}
	}

	if status != FilterMatched {
		return ProcessedNode{Type: "Filter", Name: n.Name, FilterStatus: status}
	}

	children := make([]ProcessedNode, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, matchNode(ev, child, mode))
	}
	return ProcessedNode{Type: "Filter", Name: n.Name, FilterStatus: status, Nodes: children}
}

// matchRuleset implements the per-ruleset evaluation algorithm (spec
// §4.6). Rules run strictly in declared order: variable visibility and
// the continue_on_match short-circuit both depend on it.
func matchRuleset(ev event.Event, n tree.Node, mode Mode) ProcessedNode {
	env := accessor.NewEnv()
	stopped := false

	rules := make([]ProcessedRule, 0, len(n.Rules))
	for _, rule := range n.Rules {
		if stopped || !rule.Active {
			rules = append(rules, ProcessedRule{Name: rule.Name, Status: NotProcessed})
			continue
		}

		pr := matchRule(ev, rule, env, mode)
		rules = append(rules, pr)

		if pr.Status == Matched && !rule.ContinueOnMatch {
			stopped = true
		}
	}

	return ProcessedNode{
		Type:          "Ruleset",
		Name:          n.Name,
		Rules:         rules,
		ExtractedVars: env.Snapshot(),
	}
}

func matchRule(ev event.Event, rule tree.Rule, env *accessor.Env, mode Mode) ProcessedRule {
	if rule.Where != nil && !rule.Where.Eval(ev, env, rule.Name) {
		return ProcessedRule{Name: rule.Name, Status: NotMatched}
	}

	extracted := make(map[string]value.Value, len(rule.With))
	for _, w := range rule.With {
		v, ok := w.Extractor.Extract(ev, env, rule.Name)
		if !ok {
			return ProcessedRule{
				Name:    rule.Name,
				Status:  PartiallyMatched,
				Message: fmt.Sprintf("extractor for %q did not match", w.Name),
			}
		}
		extracted[w.Name] = v
	}
	for name, v := range extracted {
		env.Set(rule.Name, name, v)
	}

	if mode == SkipActions {
		return ProcessedRule{Name: rule.Name, Status: Matched}
	}

	renderTpl := func(t interpolate.Template) (value.Value, error) {
		return t.Render(ev, env, rule.Name)
	}

	actions := make([]ProcessedAction, 0, len(rule.Actions))
	var message string
	for _, action := range rule.Actions {
		payload, err := action.Payload.Render(renderTpl)
		if err != nil {
			if message == "" {
				message = fmt.Sprintf("action %q: %v", action.ID, err)
			}
			continue
		}
		actions = append(actions, ProcessedAction{ID: action.ID, Payload: payload})
	}

	return ProcessedRule{Name: rule.Name, Status: Matched, Actions: actions, Message: message}
}

// MatchBatch evaluates a batch of events against the same compiled tree
// concurrently, bounded by GOMAXPROCS (teacher's engine evaluates a batch
// of rules sequentially per event; concurrency here runs whole Match calls
// in parallel across independent events, which spec §5 explicitly permits
// since the tree is read-only). Results are returned in the same order as
// events. Match itself never fails; the only error returned is ctx's
// error when ctx is cancelled before every event has been started, in
// which case no results are returned.
func MatchBatch(ctx context.Context, events []event.Event, root tree.Node, mode Mode) ([]ProcessedNode, error) {
	results := make([]ProcessedNode, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))

	for i, ev := range events {
		i, ev := i, ev
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Match(ev, root, mode)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
