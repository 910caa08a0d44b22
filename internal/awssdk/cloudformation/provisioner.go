// Package cloudformation provisions event stream stacks through AWS
// CloudFormation. Completion is reported asynchronously through the SNS
// topic registered as the stack's notification target.
package cloudformation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/mikecbrant/event-streams/internal/awssdk"
	awserrors "github.com/mikecbrant/event-streams/internal/awssdk/errors"
	"github.com/mikecbrant/event-streams/internal/utils"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// DefaultTopic is the SNS topic that receives CloudFormation stack events.
const DefaultTopic = "event-stream-api-cloudformation-events"

// Client is the subset of the CloudFormation API used by Provisioner.
type Client interface {
	CreateStack(context.Context, *cfn.CreateStackInput, ...func(*cfn.Options)) (*cfn.CreateStackOutput, error)
	DeleteStack(context.Context, *cfn.DeleteStackInput, ...func(*cfn.Options)) (*cfn.DeleteStackOutput, error)
}

// Provisioner creates and deletes named stacks. Throttled calls are retried
// with exponential backoff before the error is returned.
type Provisioner struct {
	client           Client
	notificationARNs []string
	logger           logging.Logger
	attempts         int
	backoff          time.Duration
}

// Option customises a Provisioner.
type Option func(*Provisioner)

// WithRetry sets how often a throttled call is attempted and the delay before
// the first retry. The delay doubles on every further retry.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *Provisioner) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff >= 0 {
			p.backoff = backoff
		}
	}
}

// NewProvisioner returns a Provisioner that registers notificationARN on
// every stack it creates.
func NewProvisioner(client Client, notificationARN string, logger logging.Logger, opts ...Option) *Provisioner {
	var arns []string
	if notificationARN != "" {
		arns = []string{notificationARN}
	}
	p := &Provisioner{
		client:           client,
		notificationARNs: arns,
		logger:           logging.OrNop(logger),
		attempts:         3,
		backoff:          200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateStack starts creation of a stack. It returns once CloudFormation has
// accepted the request. The template body is sent in compact form.
func (p *Provisioner) CreateStack(ctx context.Context, name, templateBody string, tags map[string]string) error {
	in := &cfn.CreateStackInput{
		StackName:        aws.String(name),
		TemplateBody:     aws.String(utils.NormalizeJSON(templateBody)),
		Capabilities:     []types.Capability{types.CapabilityCapabilityNamedIam},
		NotificationARNs: p.notificationARNs,
		Tags:             stackTags(tags),
	}
	var stackID string
	err := p.retry(ctx, "create", name, func() error {
		out, err := p.client.CreateStack(ctx, in)
		if err == nil {
			stackID = aws.ToString(out.StackId)
		}
		return err
	})
	if err != nil {
		p.logger.Error("cloudformation.create.failed", logging.Fields{"stack": name, "error": err.Error()})
		return fmt.Errorf("create stack %s: %w", name, err)
	}
	p.logger.Info("cloudformation.create", logging.Fields{"stack": name, "stackId": stackID})
	return nil
}

// DeleteStack starts deletion of a stack.
func (p *Provisioner) DeleteStack(ctx context.Context, name string) error {
	err := p.retry(ctx, "delete", name, func() error {
		_, err := p.client.DeleteStack(ctx, &cfn.DeleteStackInput{StackName: aws.String(name)})
		return err
	})
	if err != nil {
		p.logger.Error("cloudformation.delete.failed", logging.Fields{"stack": name, "error": err.Error()})
		return fmt.Errorf("delete stack %s: %w", name, err)
	}
	p.logger.Info("cloudformation.delete", logging.Fields{"stack": name})
	return nil
}

// retry runs call until it succeeds, fails with a non-retryable error or the
// attempts are used up. The returned error is classified.
func (p *Provisioner) retry(ctx context.Context, op, name string, call func() error) error {
	wait := p.backoff
	for attempt := 1; ; attempt++ {
		err := awserrors.Classify(call())
		if err == nil || !awserrors.IsRetryable(err) || attempt >= p.attempts {
			return err
		}
		p.logger.Warn("cloudformation."+op+".retry", logging.Fields{"stack": name, "attempt": attempt, "error": err.Error()})
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
}

func stackTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

// CallerIdentityClient is the subset of the STS API used to find the account.
type CallerIdentityClient interface {
	GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ResolveTopicARN builds the notification topic ARN for topic in the caller's
// account.
func ResolveTopicARN(ctx context.Context, client CallerIdentityClient, region, topic string) (string, error) {
	if region == "" {
		return "", errors.New("cloudformation: region is required to resolve the notification topic")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolve notification topic: %w", awserrors.Classify(err))
	}
	return awssdk.SNSTopicARN(region, aws.ToString(out.Account), topic), nil
}
