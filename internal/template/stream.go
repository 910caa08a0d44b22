package template

import "fmt"

// Stream describes the Kinesis streams for a dataset version: an optional raw
// stream and an always-present processed stream, each with a pipeline trigger.
func (g *Generator) Stream(ds Dataset, version, requestedBy string, createRaw bool) (*Template, error) {
	resources := map[string]Resource{}

	stages := []struct {
		stage, prefix string
	}{{stageProcessed, "Processed"}}
	if createRaw {
		stages = append(stages, struct{ stage, prefix string }{stageRaw, "Raw"})
	}
	for _, s := range stages {
		name, err := streamName(ds, s.stage, version)
		if err != nil {
			return nil, err
		}
		streamKey := s.prefix + "DataStream"
		resources[streamKey] = g.kinesisStream(name, requestedBy)
		resources[s.prefix+"PipelineTrigger"] = g.pipelineTrigger(name, streamKey)
	}

	return &Template{
		Description: fmt.Sprintf("Kinesis streams and pipeline triggers for %s/%s", ds.ID, version),
		Resources:   resources,
	}, nil
}

func (g *Generator) kinesisStream(name, requestedBy string) Resource {
	return Resource{
		Type: "AWS::Kinesis::Stream",
		Properties: map[string]any{
			"Name":       name,
			"ShardCount": g.cfg.ShardCount,
			"Tags":       []map[string]any{tag("created_by", requestedBy)},
		},
	}
}

func (g *Generator) pipelineTrigger(stream, dependsOn string) Resource {
	return Resource{
		Type: "AWS::Lambda::EventSourceMapping",
		Properties: map[string]any{
			"BatchSize":                      eventSourceBatchSize,
			"Enabled":                        true,
			"EventSourceArn":                 kinesisArn(stream),
			"FunctionName":                   lambdaArn(fmt.Sprintf("pipeline-router-%s-route-kinesis", g.cfg.Environment)),
			"MaximumBatchingWindowInSeconds": eventSourceBatchWindow,
			"StartingPosition":               "LATEST",
		},
		DependsOn: dependsOn,
	}
}
