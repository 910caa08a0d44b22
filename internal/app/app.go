// Package app wires the configured AWS clients into the lifecycle services
// and the notification handler.
package app

import (
	"context"
	"errors"
	"fmt"

	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/mikecbrant/event-streams/internal/awssdk"
	"github.com/mikecbrant/event-streams/internal/awssdk/cloudformation"
	"github.com/mikecbrant/event-streams/internal/awssdk/dynamo"
	"github.com/mikecbrant/event-streams/internal/catalog"
	"github.com/mikecbrant/event-streams/internal/config"
	"github.com/mikecbrant/event-streams/internal/lifecycle"
	"github.com/mikecbrant/event-streams/internal/metrics"
	"github.com/mikecbrant/event-streams/internal/notification"
	"github.com/mikecbrant/event-streams/internal/template"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// Clients are the AWS APIs the service talks to.
type Clients struct {
	Dynamo         dynamo.Client
	CloudFormation cloudformation.Client
	STS            cloudformation.CallerIdentityClient
}

// App is a fully wired service.
type App struct {
	Services *lifecycle.Services
	Handler  *notification.Handler
	Metrics  *metrics.Recorder
}

// Build loads AWS configuration for cfg.Region and wires the service.
func Build(ctx context.Context, cfg config.Config, logger logging.Logger) (*App, error) {
	awsCfg, err := awssdk.LoadDefault(ctx, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = awsCfg.Region
	}
	return New(ctx, cfg, Clients{
		Dynamo:         dynamodb.NewFromConfig(awsCfg),
		CloudFormation: cfn.NewFromConfig(awsCfg),
		STS:            sts.NewFromConfig(awsCfg),
	}, logger)
}

// New wires the service over explicit clients.
func New(ctx context.Context, cfg config.Config, c Clients, logger logging.Logger) (*App, error) {
	if c.Dynamo == nil || c.CloudFormation == nil {
		return nil, errors.New("app: dynamo and cloudformation clients are required")
	}
	logger = logging.OrNop(logger)

	topicARN := cfg.Topic.ARN
	if topicARN == "" {
		if c.STS == nil {
			return nil, errors.New("app: an sts client is required to resolve the notification topic")
		}
		arn, err := cloudformation.ResolveTopicARN(ctx, c.STS, cfg.Region, cfg.Topic.Name)
		if err != nil {
			return nil, err
		}
		topicARN = arn
	}

	rec, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	services := lifecycle.NewServices(lifecycle.Deps{
		Store:            dynamo.NewStore(c.Dynamo, cfg.Table, logger),
		Provisioner:      cloudformation.NewProvisioner(c.CloudFormation, topicARN, logger),
		Templates:        template.NewGenerator(template.Config{Environment: cfg.Environment, ShardCount: cfg.Templates.ShardCount}),
		Catalog:          catalog.NewStatic(cfg.Catalog.AccessRights, cfg.Catalog.DefaultAccessRights),
		Logger:           logger,
		Metrics:          rec,
		MaxWriteAttempts: cfg.Lifecycle.MaxWriteAttempts,
	})
	logger.Info("app.ready", logging.Fields{"environment": cfg.Environment, "table": cfg.Table, "topic": topicARN})
	return &App{
		Services: services,
		Handler:  notification.NewHandler(services.Reconciler, cfg.Lifecycle.ManagedStacks, logger, rec),
		Metrics:  rec,
	}, nil
}
