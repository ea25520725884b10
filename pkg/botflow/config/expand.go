package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// refPattern matches ${NAME}, ${NAME:-default} and ${NAME:?message}.
var refPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([-?])([^}]*))?\}`)

// LookupFunc resolves a variable name, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// UndefinedVariableError is returned when a ${NAME:?message} reference
// names an unset variable.
type UndefinedVariableError struct {
	Names    []string
	Messages []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	parts := make([]string, len(e.Names))
	for i, name := range e.Names {
		parts[i] = name
		if msg := e.Messages[i]; msg != "" {
			parts[i] += ": " + msg
		}
	}
	if len(parts) == 1 {
		return "undefined variable " + parts[0]
	}
	return "undefined variables " + strings.Join(parts, ", ")
}

// ExpandString replaces variable references in s.
//
//	${NAME}          value of NAME, or "" when unset
//	${NAME:-value}   value of NAME, or value when unset or empty
//	${NAME:?message} value of NAME, or an error when unset or empty
func ExpandString(s string, lookup LookupFunc) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var missing UndefinedVariableError
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := refPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		val, ok := lookup(name)
		switch op {
		case "-":
			if !ok || val == "" {
				return arg
			}
		case "?":
			if !ok || val == "" {
				missing.Names = append(missing.Names, name)
				missing.Messages = append(missing.Messages, arg)
				return match
			}
		}
		return val
	})
	if len(missing.Names) > 0 {
		return out, &missing
	}
	return out, nil
}

// Expand returns a copy of c with variable references in every string
// value replaced. Nested maps and lists are walked; other values are
// copied as-is. Expanding parsed values keeps substituted text from
// changing the document structure.
func (c Config) Expand(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out, err := expandValue(c.data, lookup)
	if err != nil {
		return Config{}, err
	}
	return New(out.(map[string]any)), nil
}

func expandValue(v any, lookup LookupFunc) (any, error) {
	switch val := v.(type) {
	case string:
		return ExpandString(val, lookup)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			expanded, err := expandValue(item, lookup)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := expandValue(item, lookup)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}
