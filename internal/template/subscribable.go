package template

import "fmt"

// Subscribable describes the event-source mapping from the processed stream
// to the subscription publisher function.
func (g *Generator) Subscribable(ds Dataset, version string) (*Template, error) {
	name, err := streamName(ds, stageProcessed, version)
	if err != nil {
		return nil, err
	}
	return &Template{
		Description: fmt.Sprintf("Subscription event source mapping for %s/%s", ds.ID, version),
		Resources: map[string]Resource{
			"SubscriptionSource": {
				Type: "AWS::Lambda::EventSourceMapping",
				Properties: map[string]any{
					"BatchSize":        eventSourceBatchSize,
					"Enabled":          true,
					"EventSourceArn":   kinesisArn(name),
					"FunctionName":     lambdaArn(fmt.Sprintf("event-data-subscription-%s-publish_event", g.cfg.Environment)),
					"StartingPosition": "LATEST",
				},
			},
		},
	}, nil
}
