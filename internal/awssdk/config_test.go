package awssdk

import "testing"

func TestPartitionForRegion(t *testing.T) {
	cases := map[string]string{
		"eu-west-1":     "aws",
		"cn-north-1":    "aws-cn",
		"us-gov-west-1": "aws-us-gov",
		"":              "aws",
	}
	for region, want := range cases {
		if got := PartitionForRegion(region); got != want {
			t.Fatalf("PartitionForRegion(%q) = %q; want %q", region, got, want)
		}
	}
}

func TestSNSTopicARN(t *testing.T) {
	got := SNSTopicARN("eu-west-1", "123456789012", "event-stream-api-cloudformation-events")
	if got != "arn:aws:sns:eu-west-1:123456789012:event-stream-api-cloudformation-events" {
		t.Fatalf("unexpected arn: %s", got)
	}
}
