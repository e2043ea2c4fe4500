package model

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Property type names understood by the type rules.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeURL     = "url"
	TypeEmail   = "email"
	TypeToken   = "token"
	TypeView    = "viewType"

	enumPrefix = "enum:"
)

// ViewTypes lists the document types accepted by viewType properties.
var ViewTypes = []string{"edit", "list", "show", "html", "layout", "menu", "wizard"}

var tokenPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:\-]*$`)

// typeValidate is shared by every type rule; validator.Validate is safe for concurrent use.
var typeValidate *validator.Validate

func init() {
	typeValidate = validator.New()
	_ = typeValidate.RegisterValidation("token", func(fl validator.FieldLevel) bool {
		return tokenPattern.MatchString(fl.Field().String())
	})
}

// typeRule returns a reason when v does not satisfy the rule, "" otherwise.
type typeRule func(v any) string

var typeRules = map[string]typeRule{
	TypeString:  checkScalar,
	TypeBoolean: checkBoolean,
	TypeInteger: checkInteger,
	TypeNumber:  checkNumber,
	TypeURL:     tagRule(TypeURL, "url"),
	TypeEmail:   tagRule(TypeEmail, "email"),
	TypeToken:   tagRule(TypeToken, "token"),
	TypeView:    tagRule(TypeView, "oneof="+strings.Join(ViewTypes, " ")),
}

// checkType applies the rule registered for typ. Empty values always pass;
// required-ness is checked separately.
func checkType(typ string, v any) []string {
	if isEmpty(v) {
		return nil
	}
	if !isScalar(v) {
		return []string{fmt.Sprintf("expected a scalar value, got %T", v)}
	}
	var rule typeRule
	if strings.HasPrefix(typ, enumPrefix) {
		rule = enumRule(strings.Split(strings.TrimPrefix(typ, enumPrefix), "|"))
	} else {
		rule = typeRules[typ]
	}
	if rule == nil {
		return nil
	}
	if reason := rule(v); reason != "" {
		return []string{reason}
	}
	return nil
}

func checkScalar(v any) string {
	if !isScalar(v) {
		return fmt.Sprintf("expected string, got %T", v)
	}
	return ""
}

func checkBoolean(v any) string {
	switch b := v.(type) {
	case bool:
		return ""
	case string:
		if typeValidate.Var(b, "oneof=true false") == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected boolean, got %v", v)
}

func checkInteger(v any) string {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ""
	case float32:
		if float64(n) == math.Trunc(float64(n)) {
			return ""
		}
	case float64:
		if n == math.Trunc(n) {
			return ""
		}
	case string:
		if typeValidate.Var(n, "number") == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected integer, got %v", v)
}

func checkNumber(v any) string {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return ""
	case string:
		if typeValidate.Var(n, "numeric") == nil {
			return ""
		}
	}
	return fmt.Sprintf("expected number, got %v", v)
}

func tagRule(name, tag string) typeRule {
	return func(v any) string {
		s, ok := v.(string)
		if !ok || typeValidate.Var(s, tag) != nil {
			return fmt.Sprintf("expected %s, got %v", name, v)
		}
		return ""
	}
}

func enumRule(values []string) typeRule {
	return func(v any) string {
		s := fmt.Sprint(v)
		for _, allowed := range values {
			if s == allowed {
				return ""
			}
		}
		return fmt.Sprintf("expected one of %s, got %v", strings.Join(values, ", "), v)
	}
}

// isEmpty mirrors the loose emptiness used throughout the definition format:
// nil, "" and empty collections are empty; false and 0 are values.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsEmpty reports whether v counts as an absent value.
func IsEmpty(v any) bool { return isEmpty(v) }

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// SameValue compares two scalar values by their textual form, so 1, int64(1)
// and "1" are the same value. Definition documents carry attributes as text.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
