package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// HomepageHost is the authority used in command schema tags.
const HomepageHost = "bowtie.report"

// Validator checks an instance against a JSON Schema. It returns an error
// when the instance does not conform.
type Validator interface {
	Validate(instance any, schema map[string]any) error
}

// Definition binds a command name to its schemas and to the constructor of
// its response type R.
type Definition[R any] struct {
	name  string
	uri   string
	build func(data []byte) (R, error)
}

// Define creates the Definition for command type C answered by R. An empty
// name is derived from C's type name with KebabName.
func Define[C any, R any](name string, build func(data []byte) (R, error)) *Definition[R] {
	if name == "" {
		name = KebabName(reflect.TypeFor[C]().Name())
	}
	return &Definition[R]{
		name:  name,
		uri:   SchemaTag(name),
		build: build,
	}
}

// Name is the value of the request's "cmd" field.
func (d *Definition[R]) Name() string { return d.name }

// URI is the schema tag for this command.
func (d *Definition[R]) URI() string { return d.uri }

// RequestSchema references the schema requests must satisfy.
func (d *Definition[R]) RequestSchema() map[string]any {
	return map[string]any{"$ref": d.uri}
}

// ResponseSchema references the schema responses must satisfy.
func (d *Definition[R]) ResponseSchema() map[string]any {
	return map[string]any{"$ref": d.uri + "#response"}
}

// Command is a request an implementation answers with R.
type Command[R any] interface {
	Definition() *Definition[R]

	// Fields returns the command's payload, without "cmd".
	Fields() map[string]any
}

var kebabBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// KebabName converts a CamelCase identifier to lowercase words joined by
// hyphens, e.g. StartedDialect becomes started-dialect.
func KebabName(typeName string) string {
	return strings.ToLower(kebabBoundary.ReplaceAllString(typeName, "$1-$2"))
}

// SchemaTag returns the tag URI identifying a command's schemas.
func SchemaTag(name string) string {
	return fmt.Sprintf("tag:%s,2023:ihop:command:%s", HomepageHost, name)
}

// Codec turns commands into validated requests and raw responses into
// typed results.
type Codec struct {
	validator Validator
}

// NewCodec creates a Codec validating every message with v.
func NewCodec(v Validator) *Codec {
	return &Codec{validator: v}
}

// ToRequest builds the request object for cmd and validates it. A request
// failing its schema is a programming error and is always returned.
func ToRequest[R any](c *Codec, cmd Command[R]) (map[string]any, error) {
	def := cmd.Definition()

	request := map[string]any{"cmd": def.name}
	for k, v := range cmd.Fields() {
		request[k] = v
	}

	if err := c.validator.Validate(request, def.RequestSchema()); err != nil {
		return nil, &Error{
			Code:    ErrCodeSchemaInvalid,
			Message: "request does not match its schema",
			Command: def.name,
			Err:     err,
		}
	}
	return request, nil
}

// FromResponse decodes and validates a response to cmd, then builds the
// typed result.
func FromResponse[R any](c *Codec, cmd Command[R], response []byte) (R, error) {
	var zero R
	def := cmd.Definition()

	var instance any
	if err := json.Unmarshal(response, &instance); err != nil {
		return zero, &Error{
			Code:    ErrCodeDecodeFailed,
			Message: "response is not valid JSON",
			Command: def.name,
			Err:     err,
		}
	}

	if err := c.validator.Validate(instance, def.ResponseSchema()); err != nil {
		return zero, &Error{
			Code:    ErrCodeSchemaInvalid,
			Message: "response does not match its schema",
			Command: def.name,
			Err:     err,
		}
	}

	result, err := def.build(response)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			if pe.Command == "" {
				pe.Command = def.name
			}
			return zero, pe
		}
		return zero, &Error{
			Code:    ErrCodeMalformedResponse,
			Message: "cannot build response",
			Command: def.name,
			Err:     err,
		}
	}
	return result, nil
}
