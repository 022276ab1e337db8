// Package backend defines the external collaborators the editor talks to
// (step catalog, source transform, view definitions, deployments) and
// provides an HTTP client and an in-process YAML source for them.
package backend

import (
	"context"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// DSL describes one output language the backend can render integrations to.
type DSL struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Output      string `json:"output,omitempty" yaml:"output,omitempty"`
	Input       string `json:"input,omitempty" yaml:"input,omitempty"`
	StepKinds   string `json:"stepKinds,omitempty" yaml:"stepKinds,omitempty"`
}

// Capabilities lists the DSLs supported by the backend.
type Capabilities struct {
	DSL []DSL `json:"dsls" yaml:"dsls"`
}

// Deployment is the backend's summary of a running integration. Fields
// other than name and namespace are passed through untouched.
type Deployment struct {
	Name      string         `json:"name"`
	Namespace string         `json:"namespace,omitempty"`
	Status    string         `json:"status,omitempty"`
	Date      string         `json:"date,omitempty"`
	Type      string         `json:"type,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// CatalogService provides the steps that can be placed on the canvas.
type CatalogService interface {
	FetchCapabilities(ctx context.Context) (*Capabilities, error)
	FetchCatalogSteps(ctx context.Context) ([]schema.Step, error)
}

// SourceService converts between the Integration model and its source text.
type SourceService interface {
	FetchIntegrationSourceCode(ctx context.Context, in *schema.Integration) (string, error)
	FetchIntegrationJSON(ctx context.Context, source, dsl, namespace string) (*schema.Integration, error)
}

// ViewsService returns the UI extension views applicable to a step list.
type ViewsService interface {
	FetchViews(ctx context.Context, steps []schema.Step, namespace string) ([]schema.View, error)
}

// DeploymentService manages integrations running on the cluster.
type DeploymentService interface {
	FetchDeployment(ctx context.Context, name, namespace string) (string, error)
	FetchDeployments(ctx context.Context, namespace string) ([]Deployment, error)
	FetchDeploymentLogs(ctx context.Context, name, namespace string, lines int) (string, error)
	StartDeployment(ctx context.Context, in *schema.Integration, name, namespace string) (string, error)
	StopDeployment(ctx context.Context, name, namespace string) error
}
