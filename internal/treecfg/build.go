package treecfg

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/extractor"
	"github.com/danielsvitols/tornado/internal/interpolate"
	"github.com/danielsvitols/tornado/internal/operator"
	"github.com/danielsvitols/tornado/internal/tree"
	"github.com/danielsvitols/tornado/internal/value"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validateName(kind string, name string, path []string) error {
	if name == "" {
		return &tree.BuildError{Kind: tree.MissingField, Path: path, Detail: kind + " name is required"}
	}
	if !nameRe.MatchString(name) {
		return &tree.BuildError{
			Kind: tree.InvalidName, Path: path,
			Detail: fmt.Sprintf("%s name %q must match [A-Za-z0-9_]+", kind, name),
		}
	}
	return nil
}

// Build compiles a parsed RulesConfig into an immutable processing tree,
// wrapping the top-level sibling nodes in an implicit root filter (spec
// §3.8). Build-time validation failures are all-or-nothing (spec §7:
// "the tree is not partially loaded; the whole load fails").
func Build(cfg *RulesConfig) (tree.Node, error) {
	children := make([]tree.Node, 0, len(cfg.Nodes))
	seen := make(map[string]bool)
	for i, n := range cfg.Nodes {
		path := []string{fmt.Sprintf("nodes[%d]", i)}
		if seen[n.Name] {
			return tree.Node{}, &tree.BuildError{
				Kind: tree.InvalidName, Path: path,
				Detail: fmt.Sprintf("duplicate sibling name %q", n.Name),
			}
		}
		seen[n.Name] = true

		child, err := buildNode(n, path)
		if err != nil {
			return tree.Node{}, err
		}
		children = append(children, child)
	}

	return tree.Node{
		Kind:     tree.NodeFilter,
		Name:     "root",
		Active:   true,
		Filter:   nil,
		Children: children,
	}, nil
}

func buildNode(dto MatcherConfigDto, path []string) (tree.Node, error) {
	switch dto.Type {
	case "Filter":
		return buildFilter(dto, path)
	case "Ruleset":
		return buildRuleset(dto, path)
	default:
		return tree.Node{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path,
			Detail: fmt.Sprintf("unknown node type %q (expected Filter or Ruleset)", dto.Type),
		}
	}
}

func buildFilter(dto MatcherConfigDto, path []string) (tree.Node, error) {
	if err := validateName("filter", dto.Name, path); err != nil {
		return tree.Node{}, err
	}

	var filterOp *operator.Operator
	if dto.Filter != nil {
		op, err := compileOperator(dto.Filter, append(path, "filter"))
		if err != nil {
			return tree.Node{}, err
		}
		filterOp = &op
	}

	children := make([]tree.Node, 0, len(dto.Nodes))
	seen := make(map[string]bool)
	for i, child := range dto.Nodes {
		childPath := append(append([]string{}, path...), fmt.Sprintf("nodes[%d]", i))
		if seen[child.Name] {
			return tree.Node{}, &tree.BuildError{
				Kind: tree.InvalidName, Path: childPath,
				Detail: fmt.Sprintf("duplicate sibling name %q", child.Name),
			}
		}
		seen[child.Name] = true

		built, err := buildNode(child, childPath)
		if err != nil {
			return tree.Node{}, err
		}
		children = append(children, built)
	}

	return tree.Node{
		Kind:        tree.NodeFilter,
		Name:        dto.Name,
		Description: dto.Description,
		Active:      dto.active(),
		Filter:      filterOp,
		Children:    children,
	}, nil
}

func buildRuleset(dto MatcherConfigDto, path []string) (tree.Node, error) {
	if err := validateName("ruleset", dto.Name, path); err != nil {
		return tree.Node{}, err
	}

	rules := make([]tree.Rule, 0, len(dto.Rules))
	seenNames := make(map[string]bool)
	declaredVars := make(map[string]map[string]bool) // rule name -> declared WITH vars

	for i, ruleDto := range dto.Rules {
		rulePath := append(append([]string{}, path...), fmt.Sprintf("rules[%d]", i))
		if err := validateName("rule", ruleDto.Name, rulePath); err != nil {
			return tree.Node{}, err
		}
		if seenNames[ruleDto.Name] {
			return tree.Node{}, &tree.BuildError{
				Kind: tree.InvalidName, Path: rulePath,
				Detail: fmt.Sprintf("duplicate rule name %q", ruleDto.Name),
			}
		}
		seenNames[ruleDto.Name] = true

		rule, refs, err := compileRule(ruleDto, rulePath)
		if err != nil {
			return tree.Node{}, err
		}

		for _, ref := range refs {
			if ref.ruleName == "" {
				continue // bare self-reference, not validated (§4.2)
			}
			vars, ok := declaredVars[ref.ruleName]
			if !ok || !vars[ref.varName] {
				return tree.Node{}, &tree.BuildError{
					Kind: tree.UnknownVariableReference, Path: rulePath,
					Detail: fmt.Sprintf("_variables.%s.%s does not reference a variable declared by an earlier rule", ref.ruleName, ref.varName),
				}
			}
		}

		vars := make(map[string]bool, len(rule.With))
		for _, w := range rule.With {
			vars[w.Name] = true
		}
		declaredVars[ruleDto.Name] = vars

		rules = append(rules, rule)
	}

	return tree.Node{
		Kind:  tree.NodeRuleset,
		Name:  dto.Name,
		Rules: rules,
	}, nil
}

// varRef is an explicit _variables.RULE.NAME reference collected for
// build-time validation.
type varRef struct {
	ruleName string
	varName  string
}

func compileRule(dto RuleDto, path []string) (tree.Rule, []varRef, error) {
	var refs []varRef
	collect := func(a accessor.Accessor) {
		if a.Kind() == accessor.KindExtractedVar {
			refs = append(refs, varRef{ruleName: a.RuleName(), varName: a.VarName()})
		}
	}

	var whereOp *operator.Operator
	if dto.Constraint.Where != nil {
		op, err := compileOperator(dto.Constraint.Where, append(path, "constraint", "WHERE"))
		if err != nil {
			return tree.Rule{}, nil, err
		}
		op.Walk(collect)
		whereOp = &op
	}

	withEntries := dto.Constraint.With.Entries()
	with := make([]tree.NamedExtractor, 0, len(withEntries))
	for _, entry := range withEntries {
		extPath := append(append([]string{}, path...), "constraint", "WITH", entry.Name)
		ex, err := compileExtractor(entry.Extractor, extPath)
		if err != nil {
			return tree.Rule{}, nil, err
		}
		collect(ex.Source)
		with = append(with, tree.NamedExtractor{Name: entry.Name, Extractor: ex})
	}

	actions := make([]tree.ActionTemplate, 0, len(dto.Actions))
	for i, actionDto := range dto.Actions {
		actionPath := append(append([]string{}, path...), "actions", fmt.Sprintf("[%d]", i))
		if actionDto.ID == "" {
			return tree.Rule{}, nil, &tree.BuildError{
				Kind: tree.MissingField, Path: actionPath, Detail: "action id is required",
			}
		}
		payload, err := compilePayloadNode(&actionDto.Payload, actionPath)
		if err != nil {
			return tree.Rule{}, nil, err
		}
		walkPayloadAccessors(payload, collect)
		actions = append(actions, tree.ActionTemplate{ID: actionDto.ID, Payload: payload})
	}

	active := true
	if dto.Active != nil {
		active = *dto.Active
	}

	return tree.Rule{
		Name:            dto.Name,
		Description:     dto.Description,
		ContinueOnMatch: dto.Continue,
		Active:          active,
		Where:           whereOp,
		With:            with,
		Actions:         actions,
	}, refs, nil
}

func walkPayloadAccessors(p tree.PayloadNode, visit func(accessor.Accessor)) {
	switch p.Kind {
	case tree.PayloadString:
		p.Tpl.Walk(visit)
	case tree.PayloadArray:
		for _, elem := range p.Array {
			walkPayloadAccessors(elem, visit)
		}
	case tree.PayloadMap:
		for _, k := range p.MapKeys {
			walkPayloadAccessors(p.Map[k], visit)
		}
	}
}

func compileOperator(dto *OperatorDto, path []string) (operator.Operator, error) {
	switch dto.Type {
	case "AND":
		children := make([]operator.Operator, 0, len(dto.Operators))
		for i, childDto := range dto.Operators {
			child, err := compileOperator(&childDto, append(append([]string{}, path...), fmt.Sprintf("operators[%d]", i)))
			if err != nil {
				return operator.Operator{}, err
			}
			children = append(children, child)
		}
		return operator.And(children...), nil
	case "OR":
		children := make([]operator.Operator, 0, len(dto.Operators))
		for i, childDto := range dto.Operators {
			child, err := compileOperator(&childDto, append(append([]string{}, path...), fmt.Sprintf("operators[%d]", i)))
			if err != nil {
				return operator.Operator{}, err
			}
			children = append(children, child)
		}
		return operator.Or(children...), nil
	case "contain", "equal", "ge", "gt", "le", "lt":
		a, err := compileOperand(dto.First, append(append([]string{}, path...), "first"))
		if err != nil {
			return operator.Operator{}, err
		}
		b, err := compileOperand(dto.Second, append(append([]string{}, path...), "second"))
		if err != nil {
			return operator.Operator{}, err
		}
		switch dto.Type {
		case "contain":
			return operator.Contain(a, b), nil
		case "equal":
			return operator.Equal(a, b), nil
		case "ge":
			return operator.Ge(a, b), nil
		case "gt":
			return operator.Gt(a, b), nil
		case "le":
			return operator.Le(a, b), nil
		case "lt":
			return operator.Lt(a, b), nil
		}
		panic("unreachable")
	case "regex":
		re, err := regexp.Compile(dto.Regex)
		if err != nil {
			return operator.Operator{}, &tree.BuildError{
				Kind: tree.InvalidRegex, Path: path,
				Detail: fmt.Sprintf("pattern %q: %v", dto.Regex, err),
			}
		}
		target, err := compileOperand(dto.Target, append(append([]string{}, path...), "target"))
		if err != nil {
			return operator.Operator{}, err
		}
		return operator.Regex(re, target), nil
	default:
		return operator.Operator{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path,
			Detail: fmt.Sprintf("unknown operator type %q", dto.Type),
		}
	}
}

// compileOperand compiles an OperatorDto's first/second/target field: it
// is either a single "${...}" accessor string, or a bare literal value
// (spec design note: "first/second may be a bare literal value or a
// single accessor. The operand form rejects multi-accessor templates at
// build time").
func compileOperand(raw any, path []string) (accessor.Accessor, error) {
	if s, ok := raw.(string); ok && accessor.IsAccessorSyntax(s) {
		a, err := accessor.Parse(s)
		if err != nil {
			return accessor.Accessor{}, &tree.BuildError{
				Kind: tree.InvalidAccessor, Path: path, Detail: err.Error(),
			}
		}
		return a, nil
	}
	v, err := rawToValue(raw, path)
	if err != nil {
		return accessor.Accessor{}, err
	}
	return accessor.Constant(v), nil
}

func rawToValue(raw any, path []string) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(v), nil
	case string:
		return value.String(v), nil
	case int:
		return value.Int(int64(v)), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Float(v), nil
	case []any:
		out := make([]value.Value, len(v))
		for i, elem := range v {
			ev, err := rawToValue(elem, append(append([]string{}, path...), fmt.Sprintf("[%d]", i)))
			if err != nil {
				return value.Value{}, err
			}
			out[i] = ev
		}
		return value.Array(out), nil
	case map[string]any:
		out := make(map[string]value.Value, len(v))
		for k, elem := range v {
			ev, err := rawToValue(elem, append(append([]string{}, path...), k))
			if err != nil {
				return value.Value{}, err
			}
			out[k] = ev
		}
		return value.Map(out), nil
	default:
		return value.Value{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path,
			Detail: fmt.Sprintf("unsupported literal type %T", raw),
		}
	}
}

func compileExtractor(dto ExtractorDto, path []string) (extractor.Extractor, error) {
	if dto.From == "" {
		return extractor.Extractor{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path, Detail: "extractor 'from' is required",
		}
	}
	src, err := compileOperand(dto.From, append(append([]string{}, path...), "from"))
	if err != nil {
		return extractor.Extractor{}, err
	}

	if dto.Regex.Match == "" {
		return extractor.Extractor{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path, Detail: "extractor regex.match is required",
		}
	}
	re, err := regexp.Compile(dto.Regex.Match)
	if err != nil {
		return extractor.Extractor{}, &tree.BuildError{
			Kind: tree.InvalidRegex, Path: path,
			Detail: fmt.Sprintf("pattern %q: %v", dto.Regex.Match, err),
		}
	}

	if dto.Regex.GroupMatchIdx < 0 || dto.Regex.GroupMatchIdx > re.NumSubexp() {
		return extractor.Extractor{}, &tree.BuildError{
			Kind: tree.InvalidRegex, Path: path,
			Detail: fmt.Sprintf("group_match_idx %d out of range for pattern with %d capture group(s)", dto.Regex.GroupMatchIdx, re.NumSubexp()),
		}
	}

	return extractor.New(src, re, dto.Regex.GroupMatchIdx), nil
}

func compilePayloadNode(node *yaml.Node, path []string) (tree.PayloadNode, error) {
	switch node.Kind {
	case 0:
		return tree.PayloadNode{Kind: tree.PayloadNull}, nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return tree.PayloadNode{Kind: tree.PayloadNull}, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return tree.PayloadNode{}, err
			}
			return tree.PayloadNode{Kind: tree.PayloadBool, Bool: b}, nil
		case "!!int":
			var n int64
			if err := node.Decode(&n); err != nil {
				return tree.PayloadNode{}, err
			}
			return tree.PayloadNode{Kind: tree.PayloadNumber, Number: value.Int(n)}, nil
		case "!!float":
			var n float64
			if err := node.Decode(&n); err != nil {
				return tree.PayloadNode{}, err
			}
			return tree.PayloadNode{Kind: tree.PayloadNumber, Number: value.Float(n)}, nil
		default:
			var s string
			if err := node.Decode(&s); err != nil {
				return tree.PayloadNode{}, err
			}
			tpl, err := interpolate.Compile(s)
			if err != nil {
				return tree.PayloadNode{}, &tree.BuildError{
					Kind: tree.InvalidAccessor, Path: path, Detail: err.Error(),
				}
			}
			return tree.PayloadNode{Kind: tree.PayloadString, Tpl: tpl}, nil
		}
	case yaml.SequenceNode:
		arr := make([]tree.PayloadNode, len(node.Content))
		for i, child := range node.Content {
			elem, err := compilePayloadNode(child, append(append([]string{}, path...), fmt.Sprintf("[%d]", i)))
			if err != nil {
				return tree.PayloadNode{}, err
			}
			arr[i] = elem
		}
		return tree.PayloadNode{Kind: tree.PayloadArray, Array: arr}, nil
	case yaml.MappingNode:
		keys := make([]string, 0, len(node.Content)/2)
		m := make(map[string]tree.PayloadNode, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return tree.PayloadNode{}, err
			}
			child, err := compilePayloadNode(node.Content[i+1], append(append([]string{}, path...), key))
			if err != nil {
				return tree.PayloadNode{}, err
			}
			keys = append(keys, key)
			m[key] = child
		}
		return tree.PayloadNode{Kind: tree.PayloadMap, MapKeys: keys, Map: m}, nil
	default:
		return tree.PayloadNode{}, &tree.BuildError{
			Kind: tree.MissingField, Path: path, Detail: "unsupported payload node",
		}
	}
}
