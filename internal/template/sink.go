package template

import (
	"fmt"
	"strings"

	"github.com/mikecbrant/event-streams/internal/eventstream"
)

// SinkParams identifies the sink being described.
type SinkParams struct {
	StreamID string
	Dataset  Dataset
	Version  string
	SinkID   string
}

// Sink is the closed set of sink shapes. Each variant owns its resources.
type Sink interface {
	Type() eventstream.SinkType
	resources(g *Generator, p sinkContext) map[string]Resource
}

// S3Sink delivers the processed stream to the dataplatform bucket through Firehose.
type S3Sink struct{}

// ElasticsearchSink delivers the processed stream to a monthly-rotated
// Elasticsearch index through Firehose, backing up failed documents to S3.
type ElasticsearchSink struct{}

func (S3Sink) Type() eventstream.SinkType            { return eventstream.SinkS3 }
func (ElasticsearchSink) Type() eventstream.SinkType { return eventstream.SinkElasticsearch }

// SinkFor returns the variant for t.
func SinkFor(t eventstream.SinkType) (Sink, error) {
	switch t {
	case eventstream.SinkS3:
		return S3Sink{}, nil
	case eventstream.SinkElasticsearch:
		return ElasticsearchSink{}, nil
	}
	return nil, &eventstream.ValidationError{Field: "type", Value: string(t), Reason: "unknown sink type"}
}

// Sink describes the delivery stream and IAM roles for one sink.
func (g *Generator) Sink(kind Sink, p SinkParams) (*Template, error) {
	conf, err := p.Dataset.Confidentiality()
	if err != nil {
		return nil, err
	}
	source, err := streamName(p.Dataset, stageProcessed, p.Version)
	if err != nil {
		return nil, err
	}
	c := sinkContext{SinkParams: p, confidentiality: conf, sourceStream: source}
	return &Template{
		Description: fmt.Sprintf("Firehose for %s: %s", p.StreamID, kind.Type()),
		Resources:   kind.resources(g, c),
	}, nil
}

type sinkContext struct {
	SinkParams
	confidentiality string
	sourceStream    string
}

const (
	datePrefix          = "year=!{timestamp:yyyy}/month=!{timestamp:M}/day=!{timestamp:d}/hour=!{timestamp:H}"
	elasticsearchDomain = "dataplatform-eventdata"
	permissionsBoundary = "arn:aws:iam::${AWS::AccountId}:policy/oslokommune/oslokommune-boundary"
	domainArnBase       = "arn:aws:es:${AWS::Region}:${AWS::AccountId}:domain"
)

func (c sinkContext) deliveryStreamName() string {
	return eventstream.SinkStackName(c.Dataset.ID, c.Version, c.SinkID)
}

func (c sinkContext) errorOutputPrefix() string {
	return fmt.Sprintf("event-stream-sink/error/!{firehose:error-output-type}/%s/%s/%s/", c.Dataset.ID, c.Version, datePrefix)
}

func (c sinkContext) outputPrefix() string {
	return fmt.Sprintf("%s/%s/%s/version=%s", stageProcessed, c.confidentiality, c.Dataset.ID, c.Version)
}

func (c sinkContext) indexName() string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s-%s", stageProcessed, c.confidentiality, c.Dataset.ID, c.Version))
}

// iamName keeps the "-{version}-{sinkId}-{key}" suffix intact and truncates
// the dataset part so the whole name fits in maxLen.
func (c sinkContext) iamName(key string, maxLen int) string {
	prefix := "stream-" + c.Dataset.ID
	suffix := fmt.Sprintf("-%s-%s-%s", c.Version, c.SinkID, key)
	if keep := maxLen - len(suffix); keep < len(prefix) {
		if keep < 0 {
			keep = 0
		}
		prefix = prefix[:keep]
	}
	return prefix + suffix
}

func (g *Generator) bucketArn() string {
	return fmt.Sprintf("arn:aws:s3:::ok-origo-dataplatform-%s", g.cfg.Environment)
}

func (g *Generator) bufferingHints() map[string]any {
	interval := 300
	if g.cfg.Environment == "dev" {
		interval = 60
	}
	return map[string]any{"IntervalInSeconds": interval, "SizeInMBs": 1}
}

func (g *Generator) s3Destination(c sinkContext, roleResource string) map[string]any {
	return map[string]any{
		"BucketARN":         g.bucketArn(),
		"BufferingHints":    g.bufferingHints(),
		"ErrorOutputPrefix": c.errorOutputPrefix(),
		"Prefix":            fmt.Sprintf("%s/%s/", c.outputPrefix(), datePrefix),
		"RoleARN":           getAtt(roleResource, "Arn"),
	}
}

func kinesisSourceConfiguration(c sinkContext, roleResource string) map[string]any {
	return map[string]any{
		"KinesisStreamARN": kinesisArn(c.sourceStream),
		"RoleARN":          getAtt(roleResource, "Arn"),
	}
}

func (g *Generator) firehoseRole(c sinkContext, key string, statements []map[string]any) Resource {
	return Resource{
		Type: "AWS::IAM::Role",
		Properties: map[string]any{
			"PermissionsBoundary": sub(permissionsBoundary),
			"RoleName":            c.iamName(key, 64),
			"Tags":                []map[string]any{tag("datasetId", c.Dataset.ID), tag("version", c.Version)},
			"AssumeRolePolicyDocument": map[string]any{
				"Statement": []map[string]any{{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "firehose.amazonaws.com"},
					"Action":    "sts:AssumeRole",
				}},
			},
			"Policies": []map[string]any{{
				"PolicyName":     c.iamName(key, 128),
				"PolicyDocument": map[string]any{"Statement": statements},
			}},
		},
	}
}

func allow(resource any, actions ...string) map[string]any {
	return map[string]any{"Effect": "Allow", "Action": actions, "Resource": resource}
}

func kinesisReadStatement(c sinkContext) map[string]any {
	return allow(kinesisArn(c.sourceStream),
		"kinesis:GetRecords", "kinesis:GetShardIterator", "kinesis:DescribeStream", "kinesis:ListStreams")
}

func (g *Generator) bucketWriteStatements(c sinkContext) []map[string]any {
	bucket := g.bucketArn()
	return []map[string]any{
		allow(bucket, "s3:GetBucketLocation", "s3:ListBucket"),
		allow([]string{bucket + "/event-stream-sink/error/*", fmt.Sprintf("%s/%s/*", bucket, c.outputPrefix())}, "s3:PutObject"),
	}
}

func (S3Sink) resources(g *Generator, c sinkContext) map[string]Resource {
	const role = "SinkS3ResourceIAM"
	return map[string]Resource{
		"SinkS3Resource": {
			Type: "AWS::KinesisFirehose::DeliveryStream",
			Properties: map[string]any{
				"DeliveryStreamName":               c.deliveryStreamName(),
				"DeliveryStreamType":               "KinesisStreamAsSource",
				"KinesisStreamSourceConfiguration": kinesisSourceConfiguration(c, role),
				"S3DestinationConfiguration":       g.s3Destination(c, role),
			},
		},
		role: g.firehoseRole(c, "s3", append([]map[string]any{kinesisReadStatement(c)}, g.bucketWriteStatements(c)...)),
	}
}

func (ElasticsearchSink) resources(g *Generator, c sinkContext) map[string]Resource {
	const (
		role       = "SinkElasticsearchResourceIAM"
		backupRole = "SinkElasticsearchS3BackupResourceIAM"
	)
	domainArn := fmt.Sprintf("%s/%s", domainArnBase, elasticsearchDomain)
	indexArn := fmt.Sprintf("%s/%s*", domainArn, c.indexName())

	return map[string]Resource{
		"SinkElasticsearchResource": {
			Type: "AWS::KinesisFirehose::DeliveryStream",
			Properties: map[string]any{
				"DeliveryStreamName":               c.deliveryStreamName(),
				"DeliveryStreamType":               "KinesisStreamAsSource",
				"KinesisStreamSourceConfiguration": kinesisSourceConfiguration(c, role),
				"ElasticsearchDestinationConfiguration": map[string]any{
					"BufferingHints":      g.bufferingHints(),
					"DomainARN":           sub(domainArn),
					"IndexName":           c.indexName(),
					"IndexRotationPeriod": "OneMonth",
					"RetryOptions":        map[string]any{"DurationInSeconds": 5},
					"RoleARN":             getAtt(role, "Arn"),
					// Must be empty for Elasticsearch 7.x.
					"TypeName":        "",
					"S3BackupMode":    "FailedDocumentsOnly",
					"S3Configuration": g.s3Destination(c, backupRole),
				},
			},
		},
		role: g.firehoseRole(c, "es", []map[string]any{
			kinesisReadStatement(c),
			allow(sub(domainArn), "es:DescribeElasticsearchDomain"),
			allow(sub(indexArn), "es:ESHttpPost"),
		}),
		backupRole: g.firehoseRole(c, "backup", g.bucketWriteStatements(c)),
	}
}
