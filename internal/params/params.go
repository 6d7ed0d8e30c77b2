// Package params provides a declarative registry of configuration keys.
// Each key maps to a setter and an optional default; variants compose
// registries instead of overriding parse methods.
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Setter stores a raw configuration value.
type Setter func(value interface{}) error

// Field is one registered configuration key.
type Field struct {
	Key     string
	Set     Setter
	Default func()
}

// Registry maps configuration keys to fields. Keys are matched
// case-insensitively since viper lower-cases map keys.
type Registry struct {
	fields map[string]Field
	order  []string
}

// NewRegistry creates a registry holding the given fields.
func NewRegistry(fields ...Field) *Registry {
	r := &Registry{fields: make(map[string]Field)}
	for _, f := range fields {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a field.
func (r *Registry) Register(f Field) *Registry {
	norm := normalize(f.Key)
	if _, exists := r.fields[norm]; !exists {
		r.order = append(r.order, norm)
	}
	r.fields[norm] = f
	return r
}

// Merge registers every field of other on top of r.
func (r *Registry) Merge(other *Registry) *Registry {
	if other == nil {
		return r
	}
	for _, norm := range other.order {
		r.Register(other.fields[norm])
	}
	return r
}

// Keys returns the registered keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.order))
	for _, norm := range r.order {
		keys = append(keys, r.fields[norm].Key)
	}
	return keys
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.fields[normalize(key)]
	return ok
}

// ApplyDefaults runs the default of every field that has one.
func (r *Registry) ApplyDefaults() {
	for _, norm := range r.order {
		if f := r.fields[norm]; f.Default != nil {
			f.Default()
		}
	}
}

// Apply sets every value whose key is registered. Unknown keys and values
// that fail to convert are logged as warnings and returned; they never stop
// the remaining keys from being applied.
func (r *Registry) Apply(logger *zap.Logger, owner string, values map[string]interface{}) []string {
	if logger == nil {
		logger = zap.NewNop()
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		f, ok := r.fields[normalize(key)]
		if !ok {
			msg := fmt.Sprintf("unrecognized key %q found while parsing %s", key, owner)
			logger.Warn(msg,
				zap.String("op", "params.Apply"),
				zap.String("owner", owner),
				zap.String("key", key),
			)
			warnings = append(warnings, msg)
			continue
		}
		if f.Set == nil {
			continue
		}
		if err := f.Set(values[key]); err != nil {
			msg := fmt.Sprintf("invalid value for %q in %s: %v", key, owner, err)
			logger.Warn(msg,
				zap.String("op", "params.Apply"),
				zap.String("owner", owner),
				zap.String("key", key),
				zap.Error(err),
			)
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Float registers a float64 field.
func Float(key string, dst *float64, def float64) Field {
	return Field{
		Key: key,
		Set: func(v interface{}) error {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return err
			}
			*dst = f
			return nil
		},
		Default: func() { *dst = def },
	}
}

// Int registers an int field.
func Int(key string, dst *int, def int) Field {
	return Field{
		Key: key,
		Set: func(v interface{}) error {
			i, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			*dst = i
			return nil
		},
		Default: func() { *dst = def },
	}
}

// Bool registers a bool field.
func Bool(key string, dst *bool, def bool) Field {
	return Field{
		Key: key,
		Set: func(v interface{}) error {
			b, err := cast.ToBoolE(v)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		},
		Default: func() { *dst = def },
	}
}

// String registers a string field.
func String(key string, dst *string, def string) Field {
	return Field{
		Key: key,
		Set: func(v interface{}) error {
			s, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			*dst = s
			return nil
		},
		Default: func() { *dst = def },
	}
}

// Ignore registers a key that is accepted but handled elsewhere.
func Ignore(key string) Field {
	return Field{Key: key}
}

// Reject registers a key that is recognized but may not be set in this
// context; setting it produces a warning carrying reason.
func Reject(key, reason string) Field {
	return Field{
		Key: key,
		Set: func(interface{}) error {
			return fmt.Errorf("%s", reason)
		},
	}
}

// Maps converts a list value (as decoded from YAML) into a slice of
// string-keyed maps.
func Maps(v interface{}) ([]map[string]interface{}, error) {
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Lookup returns the value stored under key, matching case-insensitively.
func Lookup(values map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := values[key]; ok {
		return v, true
	}
	norm := normalize(key)
	for k, v := range values {
		if normalize(k) == norm {
			return v, true
		}
	}
	return nil, false
}
