// Package envconfig fills config structs from environment variables.
package envconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Parse fills v (a pointer to a struct) from its `env` tags.
// Parse errors name the environment variable instead of the Go field.
func Parse(v any) error {
	err := env.Parse(v)
	if err == nil {
		return nil
	}

	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return err
	}

	keys := make(map[string]string)
	collectKeys(reflect.TypeOf(v), keys)

	errs := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var pe env.ParseError
		if errors.As(e, &pe) {
			if key, ok := keys[pe.Name]; ok {
				errs = append(errs, fmt.Errorf("%s: invalid %s value: %w", key, pe.Type, pe.Err))
				continue
			}
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// collectKeys maps field names to env keys, descending into nested structs.
// The outermost field wins when two structs share a field name.
func collectKeys(t reflect.Type, keys map[string]string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	var nested []reflect.Type
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("env"); ok {
			key, _, _ := strings.Cut(tag, ",")
			if _, seen := keys[f.Name]; !seen && key != "" {
				keys[f.Name] = key
			}
			continue
		}
		if f.Type.Kind() == reflect.Struct || f.Type.Kind() == reflect.Pointer {
			nested = append(nested, f.Type)
		}
	}
	for _, n := range nested {
		collectKeys(n, keys)
	}
}
