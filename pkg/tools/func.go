package tools

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/comigor/calendar-agent/internal/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report argument names as the model sees them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Func is a Tool whose arguments are the struct A. The advertised schema is
// generated from A, incoming arguments are decoded into it with weak typing
// ("5" fills an int) and checked against its validate tags before run is
// called.
type Func[A any] struct {
	name        string
	description string
	schema      any
	run         func(ctx context.Context, args A) (any, error)
}

var _ Tool = (*Func[struct{}])(nil)

// NewFunc creates a Func tool.
func NewFunc[A any](name, description string, run func(ctx context.Context, args A) (any, error)) *Func[A] {
	var zero A
	var schema any = emptySchema
	def, err := jsonschema.GenerateSchemaForType(zero)
	switch {
	case err != nil:
		logger.L.Error("failed to generate tool schema, using empty object", "tool", name, "error", err)
	// Properties is omitempty, and an object schema without it is rejected
	// by the completions API.
	case len(def.Properties) > 0:
		schema = def
	}
	return &Func[A]{name: name, description: description, schema: schema, run: run}
}

func (f *Func[A]) Name() string        { return f.name }
func (f *Func[A]) Description() string { return f.description }
func (f *Func[A]) Parameters() any     { return f.schema }

func (f *Func[A]) Run(ctx context.Context, raw map[string]any) (any, error) {
	var args A
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &args,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(args); err != nil {
		return nil, argumentError(err)
	}
	return f.run(ctx, args)
}

func argumentError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New("invalid arguments: " + strings.Join(msgs, "; "))
}
