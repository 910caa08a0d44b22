// Command event-streams-status is the Lambda subscribed to the CloudFormation
// notification topic. It applies stack outcomes to the stored event streams.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mikecbrant/event-streams/internal/app"
	"github.com/mikecbrant/event-streams/internal/config"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("EVENT_STREAMS_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.NewLogrus(os.Stdout, cfg.LogLevel)
	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("status.init.failed", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
	lambda.Start(a.Handler.HandleSNSEvent)
}
