// Package common provides configuration, logging and small helpers shared by
// every webprobe package.
//
// Scenario field values may contain {name} references which are resolved
// against the variables of the current scenario run before they are typed
// into the page:
//
//	Input: "{email}"   Vars: {"email": "seleniumuser1700000000@example.com"}
//	Output: "seleniumuser1700000000@example.com"
//
// Replacement is case-sensitive. Unknown references are left unchanged and
// logged as warnings.
package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// refPattern matches {name} references; names are alphanumeric plus - and _
var refPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces every {name} in input with vars[name].
// Passwords may legitimately contain braces, so a value is never rescanned.
func ReplaceKeyReferences(input string, vars map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	return refPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		logger.Warn().
			Str("reference", match).
			Msg("Unresolved reference left unchanged")
		return match
	})
}

// ReplaceInMap replaces references in the string values of m in place.
// Nested maps and []interface{} elements are walked recursively.
func ReplaceInMap(m map[string]interface{}, vars map[string]string, logger arbor.ILogger) error {
	for key, value := range m {
		switch v := value.(type) {
		case string:
			m[key] = ReplaceKeyReferences(v, vars, logger)

		case map[string]interface{}:
			if err := ReplaceInMap(v, vars, logger); err != nil {
				return fmt.Errorf("failed to replace in nested map at key '%s': %w", key, err)
			}

		case []interface{}:
			for i, elem := range v {
				switch e := elem.(type) {
				case string:
					v[i] = ReplaceKeyReferences(e, vars, logger)
				case map[string]interface{}:
					if err := ReplaceInMap(e, vars, logger); err != nil {
						return fmt.Errorf("failed to replace in array element at key '%s'[%d]: %w", key, i, err)
					}
				}
			}
		}
	}

	return nil
}

// ReplaceInStruct replaces references in the exported string fields of the
// struct v points to, including nested structs, string maps and string slices.
func ReplaceInStruct(v interface{}, vars map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}

	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	return replaceInStructValue(val, vars, logger)
}

func replaceInStructValue(val reflect.Value, vars map[string]string, logger arbor.ILogger) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		name := typ.Field(i).Name

		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(ReplaceKeyReferences(field.String(), vars, logger))

		case reflect.Struct:
			if err := replaceInStructValue(field, vars, logger); err != nil {
				return fmt.Errorf("failed to replace in nested struct field '%s': %w", name, err)
			}

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				if err := replaceInStructValue(field.Elem(), vars, logger); err != nil {
					return fmt.Errorf("failed to replace in pointer field '%s': %w", name, err)
				}
			}

		case reflect.Map:
			if field.IsNil() || field.Type().Key().Kind() != reflect.String {
				continue
			}
			switch field.Type().Elem().Kind() {
			case reflect.Interface:
				if m, ok := field.Interface().(map[string]interface{}); ok {
					if err := ReplaceInMap(m, vars, logger); err != nil {
						return fmt.Errorf("failed to replace in map field '%s': %w", name, err)
					}
				}
			case reflect.String:
				for _, key := range field.MapKeys() {
					current := field.MapIndex(key).String()
					field.SetMapIndex(key, reflect.ValueOf(ReplaceKeyReferences(current, vars, logger)).Convert(field.Type().Elem()))
				}
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					elem := field.Index(j)
					elem.SetString(ReplaceKeyReferences(elem.String(), vars, logger))
				}
			}
		}
	}

	return nil
}
