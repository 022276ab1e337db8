package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// YAMLSource is an in-process SourceService. The source text is the neutral
// Integration shape in YAML; no DSL grammar is involved.
type YAMLSource struct {
	// Strict rejects unknown fields when parsing.
	Strict bool
}

// NewYAMLSource returns a YAMLSource that rejects unknown fields.
func NewYAMLSource() *YAMLSource {
	return &YAMLSource{Strict: true}
}

func (s *YAMLSource) FetchIntegrationSourceCode(ctx context.Context, in *schema.Integration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if in == nil {
		in = schema.NewIntegration()
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(in); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeBackend, "encode integration: %v", err).WithCause(err)
	}
	if err := enc.Close(); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeBackend, "encode integration: %v", err).WithCause(err)
	}
	return buf.String(), nil
}

// FetchIntegrationJSON parses source. Empty source yields the empty template.
// A non-empty dsl or namespace overrides the document's metadata, and step
// identities are regenerated.
func (s *YAMLSource) FetchIntegrationJSON(ctx context.Context, source, dsl, namespace string) (*schema.Integration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := schema.NewIntegration()
	if strings.TrimSpace(source) != "" {
		dec := yaml.NewDecoder(strings.NewReader(source))
		dec.KnownFields(s.Strict)
		if err := dec.Decode(in); err != nil && !errors.Is(err, io.EOF) {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "parse integration source: %v", err).WithCause(err)
		}
	}

	if dsl != "" {
		in.Metadata.DSL = dsl
	}
	if namespace != "" {
		in.Metadata.Namespace = namespace
	}
	if in.Steps == nil {
		in.Steps = []schema.Step{}
	}
	if in.Params == nil {
		in.Params = []schema.Parameter{}
	}
	in.Steps = steps.RegenerateIdentities(in.Steps)
	return in, nil
}

var _ SourceService = (*YAMLSource)(nil)
