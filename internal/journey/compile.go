package journey

import (
	"fmt"
	"net/http"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/wander/internal/invariant"
)

// CompileError reports a problem in a journey declaration, with CUE
// position information when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// CompileJourney parses a CUE value into a Journey. The value should be
// the journey struct itself; its label becomes the journey name.
func CompileJourney(v cue.Value) (*Journey, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	j := &Journey{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		j.Name = labels[len(labels)-1].String()
	}

	if err := decodeList(v, "actions", &j.Actions); err != nil {
		return nil, err
	}
	if len(j.Actions) == 0 {
		return nil, &CompileError{Field: "actions", Message: "at least one action is required", Pos: v.Pos()}
	}

	if err := decodeList(v, "invariants", &j.Invariants); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(j.Actions))
	for i, a := range j.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		if a.Name == "" {
			return nil, &CompileError{Field: field, Message: "name is required", Pos: v.Pos()}
		}
		if seen[a.Name] {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("duplicate action name %q", a.Name), Pos: v.Pos()}
		}
		seen[a.Name] = true
		if !allowedMethods[a.Method] {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported method %q", a.Method), Pos: v.Pos()}
		}
		if a.Path == "" {
			return nil, &CompileError{Field: field, Message: "path is required", Pos: v.Pos()}
		}
		for _, r := range a.Requires {
			if r.System == "" || r.Path == "" {
				return nil, &CompileError{Field: field, Message: "requires entries need system and path", Pos: v.Pos()}
			}
		}
	}

	for i, inv := range j.Invariants {
		field := fmt.Sprintf("invariants[%d]", i)
		if inv.Name == "" {
			return nil, &CompileError{Field: field, Message: "name is required", Pos: v.Pos()}
		}
		switch inv.Kind {
		case KindNonNegative:
		case KindAtMost, KindEquals:
			if inv.Value == nil {
				return nil, &CompileError{Field: field, Message: fmt.Sprintf("kind %q requires a value", inv.Kind), Pos: v.Pos()}
			}
		default:
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("unknown kind %q", inv.Kind), Pos: v.Pos()}
		}
		if inv.System == "" || inv.Path == "" {
			return nil, &CompileError{Field: field, Message: "system and path are required", Pos: v.Pos()}
		}
		if _, err := parseSeverity(inv.Severity); err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
	}

	return j, nil
}

// parseSeverity accepts the lower-case spellings journey files use.
func parseSeverity(name string) (invariant.Severity, error) {
	return invariant.ParseSeverity(strings.ToUpper(name))
}

func decodeList(v cue.Value, field string, out any) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	if err := fv.Decode(out); err != nil {
		return &CompileError{Field: field, Message: fmt.Sprintf("decode: %v", err), Pos: fv.Pos()}
	}
	return nil
}

func formatCUEError(err error) error {
	var pos token.Pos
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		pos = errs[0].Position()
	}
	return &CompileError{Field: "cue", Message: err.Error(), Pos: pos}
}
