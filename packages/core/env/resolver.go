package env

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Func generates the value of a {{name()}} placeholder.
type Func func() string

// WarnFunc receives placeholders that could not be resolved.
type WarnFunc func(format string, args ...any)

// Resolver expands {{...}} placeholders in configuration values and CLI items.
//
//	{{$NAME}}   process environment, then the loaded variables
//	{{name}}    a loaded variable
//	{{uuid()}}  a generator function
//
// Unresolved placeholders are left in place.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     map[string]Func
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		funcs: map[string]Func{
			"uuid":        uuid.NewString,
			"timestamp":   func() string { return strconv.FormatInt(time.Now().Unix(), 10) },
			"timestampMs": func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) },
			"now":         func() string { return time.Now().UTC().Format(time.RFC3339) },
		},
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

// SetVariables adds vars, overwriting existing names.
func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

// Register adds or replaces a generator function.
func (r *Resolver) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// LoadFile merges the variables of a .env file. A missing file is not an error.
func (r *Resolver) LoadFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vars, err := LoadDotEnv(path)
	if err != nil {
		return err
	}
	r.SetVariables(vars)
	return nil
}

func (r *Resolver) Resolve(input string) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		r.mu.RLock()
		defer r.mu.RUnlock()

		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if val := os.Getenv(name); val != "" {
				return val
			}
			if val, ok := r.variables[name]; ok {
				return val
			}
			r.warnLocked("unresolved environment variable: $%s", name)
			return match
		}

		if name, ok := strings.CutSuffix(expr, "()"); ok {
			if fn, ok := r.funcs[name]; ok {
				return fn()
			}
			r.warnLocked("unresolved function call: %s", expr)
			return match
		}

		if val, ok := r.variables[expr]; ok {
			return val
		}
		r.warnLocked("unresolved variable: %s", expr)
		return match
	})
}

func (r *Resolver) warnLocked(format string, args ...any) {
	if r.warnFunc != nil {
		r.warnFunc(format, args...)
	}
}

// ResolveAll resolves every value of values into a new map.
func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}
