package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError is one entry of the details.fields array in a 400 body.
// Field holds the JSON name of the offending field, not the Go name.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON binds and validates the request body into out. On failure
// it writes the 400 response itself and returns false, so handlers can
// bail with a bare return.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", translateBindError(err, out))

		return false
	}

	return true
}

func translateBindError(err error, out interface{}) interface{} {
	root := rootStruct(out)

	var vErrs validator.ValidationErrors

	if errors.As(err, &vErrs) {
		fields := make([]FieldError, 0, len(vErrs))

		for _, ve := range vErrs {
			rule := ve.Tag()
			param := ve.Param()

			fields = append(fields, FieldError{
				Field:   jsonFieldPath(root, validatorPath(root, ve)),
				Rule:    rule,
				Param:   param,
				Message: ruleMessage(rule, param),
			})
		}

		return gin.H{"fields": fields}
	}

	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &typeErr) {
		field := jsonFieldPath(root, strings.Split(typeErr.Field, "."))

		if field == "" {
			field = strings.TrimSpace(typeErr.Field)
		}

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
				},
			},
		}
	}

	var syntaxErr *json.SyntaxError

	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "empty_body"}
	}

	return gin.H{"reason": err.Error()}
}

func rootStruct(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	return t
}

// validatorPath turns a validator namespace like
// "CreateMaterialRequest.SubjectTags[2]" into Go field path segments
// relative to the root struct.
func validatorPath(root reflect.Type, ve validator.FieldError) []string {
	ns := ve.StructNamespace()

	if ns == "" {
		ns = ve.Namespace()
	}

	if ns == "" {
		return []string{ve.Field()}
	}

	parts := strings.Split(ns, ".")

	if root != nil && len(parts) > 0 && parts[0] == root.Name() {
		parts = parts[1:]
	}

	if len(parts) == 0 {
		return []string{ve.Field()}
	}

	return parts
}

// fieldNames caches the Go-name to JSON-name mapping per struct type.
// Request structs are few and bind errors can be hot on public routes.
var fieldNames sync.Map // reflect.Type -> map[string]string

func jsonNamesFor(t reflect.Type) map[string]string {
	if cached, ok := fieldNames.Load(t); ok {
		return cached.(map[string]string)
	}

	names := make(map[string]string, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := sf.Name

		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}

		names[sf.Name] = name
	}

	fieldNames.Store(t, names)

	return names
}

// jsonFieldPath rewrites a Go field path (with optional [i] suffixes)
// into the JSON path clients actually sent.
func jsonFieldPath(root reflect.Type, parts []string) string {
	if len(parts) == 0 {
		return ""
	}

	current := root
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		goName := part
		suffix := ""

		if i := strings.Index(part, "["); i != -1 {
			goName, suffix = part[:i], part[i:]
		}

		jsonName := goName
		var next reflect.Type

		if current = deref(current); current != nil && current.Kind() == reflect.Struct {
			jsonName = jsonNamesFor(current)[goName]

			if jsonName == "" {
				jsonName = goName
			}

			if sf, ok := current.FieldByName(goName); ok {
				next = elemType(sf.Type)
			}
		}

		out = append(out, jsonName+suffix)
		current = next
	}

	return strings.Join(out, ".")
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

func elemType(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}

	return nil
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "datetime":
		return "must match the format " + param
	case "alphanum":
		return "must contain only letters and digits"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}

		return "failed " + rule + " validation"
	}
}
