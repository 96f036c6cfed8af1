package journey

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/wander/internal/action"
	"github.com/roach88/wander/internal/apiclient"
	"github.com/roach88/wander/internal/invariant"
	"github.com/roach88/wander/internal/obs"
	"github.com/roach88/wander/internal/world"
)

// Build turns a loaded journey into executable actions and invariants.
// Actions execute through the apiclient.Client registered as the
// World's API handle.
func Build(j *Journey) ([]*action.Action, []invariant.Invariant, error) {
	actions := make([]*action.Action, 0, len(j.Actions))
	for i := range j.Actions {
		a, err := buildAction(&j.Actions[i])
		if err != nil {
			return nil, nil, err
		}
		actions = append(actions, a)
	}

	invariants := make([]invariant.Invariant, 0, len(j.Invariants))
	for i := range j.Invariants {
		inv, err := buildInvariant(&j.Invariants[i])
		if err != nil {
			return nil, nil, err
		}
		invariants = append(invariants, inv)
	}

	return actions, invariants, nil
}

func buildAction(decl *ActionDecl) (*action.Action, error) {
	var pre []action.Precondition
	for _, r := range decl.Requires {
		pre = append(pre, buildPrecondition(r))
	}

	method, path, body, expect := decl.Method, decl.Path, decl.Body, decl.Expect
	exec := func(ctx context.Context, api any, run *action.Context) (*action.Result, error) {
		client, ok := api.(*apiclient.Client)
		if !ok {
			return nil, fmt.Errorf("journey actions need an *apiclient.Client, got %T", api)
		}
		return client.Do(ctx, method, expandPath(path, run), body, expect...)
	}

	return &action.Action{
		Name:          decl.Name,
		Tags:          decl.Tags,
		Preconditions: pre,
		Execute:       exec,
	}, nil
}

func buildPrecondition(r RequireDecl) action.Precondition {
	return func(s *obs.State, run *action.Context) bool {
		o, ok := s.Observations[r.System]
		if !ok {
			return false
		}
		v, ok := lookupPath(o.Data, r.Path)
		if !ok {
			return false
		}
		if r.Min != nil {
			n, ok := asFloat(v)
			return ok && n >= float64(*r.Min)
		}
		return valuesEqual(v, r.Equals)
	}
}

func buildInvariant(decl *InvariantDecl) (invariant.Invariant, error) {
	sev, err := parseSeverity(decl.Severity)
	if err != nil {
		return invariant.Invariant{}, fmt.Errorf("invariant %s: %w", decl.Name, err)
	}

	system, kind, path, want := decl.System, decl.Kind, decl.Path, decl.Value
	check := func(w *world.World) (bool, error) {
		s, err := w.Observe(context.Background())
		if err != nil {
			return false, fmt.Errorf("observe: %w", err)
		}
		o, ok := s.Observations[system]
		if !ok {
			return false, fmt.Errorf("system %q not registered", system)
		}
		v, ok := lookupPath(o.Data, path)
		if !ok {
			return false, fmt.Errorf("path %q not present in %s observation", path, system)
		}

		switch kind {
		case KindNonNegative:
			n, ok := asFloat(v)
			if !ok {
				return false, fmt.Errorf("path %q is not numeric", path)
			}
			return n >= 0, nil
		case KindAtMost:
			n, ok := asFloat(v)
			if !ok {
				return false, fmt.Errorf("path %q is not numeric", path)
			}
			limit, ok := asFloat(want)
			if !ok {
				return false, fmt.Errorf("at_most value is not numeric")
			}
			return n <= limit, nil
		case KindEquals:
			return valuesEqual(v, want), nil
		default:
			return false, fmt.Errorf("unknown invariant kind %q", kind)
		}
	}

	return invariant.Invariant{
		Name:     decl.Name,
		Check:    check,
		Severity: sev,
		Message:  decl.Message,
		Timing:   invariant.PostAction,
	}, nil
}

// expandPath substitutes {key} segments with values from the run
// context, so created-resource IDs flow into later requests.
func expandPath(path string, run *action.Context) string {
	if !strings.Contains(path, "{") {
		return path
	}
	var b strings.Builder
	rest := path
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])
		key := rest[open+1 : open+end]
		b.WriteString(run.GetString(key))
		rest = rest[open+end+1:]
	}
}

// lookupPath walks a dot-separated key path through nested maps.
func lookupPath(data map[string]any, path string) (any, bool) {
	cur := any(data)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// valuesEqual compares observed values against declared ones, treating
// all numeric types as interchangeable since CUE decodes integers
// differently than observation dumps store them.
func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}
