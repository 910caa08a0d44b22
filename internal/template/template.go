// Package template renders CloudFormation stack descriptions for event
// streams, subscribables and sinks. Every function here is pure: the same
// inputs always produce the same template body.
package template

import (
	"encoding/json"
	"fmt"
)

// Config carries the environment-dependent template parameters.
type Config struct {
	// Environment is the deployment stage, e.g. "dev" or "prod".
	Environment string
	// ShardCount per Kinesis stream; defaults to 1.
	ShardCount int
}

// Dataset is the catalog information a template needs.
type Dataset struct {
	ID           string
	AccessRights string
}

var confidentialityByAccessRights = map[string]string{
	"public":     "green",
	"restricted": "yellow",
	"non-public": "red",
}

// Confidentiality maps the dataset's access rights to its confidentiality colour.
func (d Dataset) Confidentiality() (string, error) {
	c, ok := confidentialityByAccessRights[d.AccessRights]
	if !ok {
		return "", fmt.Errorf("dataset %s: unknown access rights %q", d.ID, d.AccessRights)
	}
	return c, nil
}

// Resource is one CloudFormation resource.
type Resource struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties"`
	DependsOn  string         `json:"DependsOn,omitempty"`
}

// Template is a CloudFormation stack description.
type Template struct {
	Description string              `json:"Description"`
	Resources   map[string]Resource `json:"Resources"`
}

// Body renders the template as a CloudFormation JSON document. Map keys are
// emitted in sorted order, so the body is stable.
func (t *Template) Body() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return string(b), nil
}

// Generator produces stack descriptions.
type Generator struct {
	cfg Config
}

// NewGenerator returns a Generator for cfg.
func NewGenerator(cfg Config) *Generator {
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = 1
	}
	return &Generator{cfg: cfg}
}

const (
	stageRaw       = "raw"
	stageProcessed = "processed"

	eventSourceBatchSize   = 10
	eventSourceBatchWindow = 10
)

func streamName(ds Dataset, stage, version string) (string, error) {
	conf, err := ds.Confidentiality()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("dp.%s.%s.%s.%s.json", conf, ds.ID, stage, version), nil
}

func kinesisArn(stream string) map[string]any {
	return sub("arn:aws:kinesis:${AWS::Region}:${AWS::AccountId}:stream/" + stream)
}

func lambdaArn(function string) map[string]any {
	return sub("arn:aws:lambda:${AWS::Region}:${AWS::AccountId}:function:" + function)
}

func sub(s string) map[string]any { return map[string]any{"Fn::Sub": s} }

func getAtt(resource, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{resource, attr}}
}

func tag(key, value string) map[string]any { return map[string]any{"Key": key, "Value": value} }
