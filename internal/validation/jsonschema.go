package validation

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rendis/flowcanvas/pkg/schema"
)

//go:embed schemas/integration.json
var schemaFS embed.FS

const integrationSchemaURL = "https://flowcanvas.dev/schemas/integration.json"

var printer = message.NewPrinter(language.English)

// Violation is one leaf schema failure. Path uses the step path notation of
// ValidationIssue, e.g. "steps[0].branches[1].name".
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// JSONSchemaValidator checks integration and step documents against the
// embedded schema, and parameter values against small ad-hoc schemas.
type JSONSchemaValidator struct {
	integrationSchema *jsonschema.Schema
	stepSchema        *jsonschema.Schema

	mu     sync.Mutex
	values map[string]*jsonschema.Schema
}

func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	raw, err := schemaFS.ReadFile("schemas/integration.json")
	if err != nil {
		return nil, fmt.Errorf("read integration schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse integration schema: %w", err)
	}

	c := newCompiler()
	if err := c.AddResource(integrationSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add integration schema: %w", err)
	}
	v := &JSONSchemaValidator{values: make(map[string]*jsonschema.Schema)}
	if v.integrationSchema, err = c.Compile(integrationSchemaURL); err != nil {
		return nil, fmt.Errorf("compile integration schema: %w", err)
	}
	if v.stepSchema, err = c.Compile(integrationSchemaURL + "#/$defs/step"); err != nil {
		return nil, fmt.Errorf("compile step schema: %w", err)
	}
	return v, nil
}

func (v *JSONSchemaValidator) ValidateIntegration(in *schema.Integration) error {
	if in == nil {
		return schema.NewError(schema.ErrCodeValidation, "integration is nil")
	}
	return check(v.integrationSchema, in, "")
}

// ValidateStep checks a single step; violation paths start at "step".
func (v *JSONSchemaValidator) ValidateStep(step schema.Step) error {
	return check(v.stepSchema, step, "step")
}

// ValidateValue checks value against a JSON Schema given as raw bytes. An
// empty schema accepts anything. Compiled schemas are kept by content.
func (v *JSONSchemaValidator) ValidateValue(value any, valueSchema []byte) error {
	if len(valueSchema) == 0 {
		return nil
	}
	compiled, err := v.valueSchema(valueSchema)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid value schema").WithCause(err)
	}
	return check(compiled, value, "value")
}

func (v *JSONSchemaValidator) valueSchema(raw []byte) (*jsonschema.Schema, error) {
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:])

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.values[key]; ok {
		return s, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	url := "flowcanvas://values/" + key
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.values[key] = s
	return s, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// check validates the JSON form of value. jsonschema wants numbers as
// json.Number, hence the marshal and reparse.
func check(s *jsonschema.Schema, value any, root string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "document is not serializable").WithCause(err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "document is not valid JSON").WithCause(err)
	}

	err = s.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}

	violations := leaves(verr, root, nil)
	msg := violations[0].String()
	if len(violations) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(violations))
	}
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

func leaves(verr *jsonschema.ValidationError, root string, out []Violation) []Violation {
	if len(verr.Causes) == 0 {
		return append(out, Violation{
			Path:    stepPath(root, verr.InstanceLocation),
			Message: verr.ErrorKind.LocalizedString(printer),
		})
	}
	for _, cause := range verr.Causes {
		out = leaves(cause, root, out)
	}
	return out
}

// stepPath turns a JSON pointer split into tokens, like
// ["steps", "0", "branches", "1"], into "steps[0].branches[1]". The
// document root is "/".
func stepPath(root string, tokens []string) string {
	var b strings.Builder
	b.WriteString(root)
	for _, tok := range tokens {
		if _, err := strconv.Atoi(tok); err == nil {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
