package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestStreamKeys(t *testing.T) {
	if StreamPK("ds1/1") != "EVENT_STREAM#ds1/1" {
		t.Fatalf("StreamPK")
	}
	if VersionSK(12) != "VERSION#0000000012" {
		t.Fatalf("VersionSK: %s", VersionSK(12))
	}
	if VersionSK(9) >= VersionSK(10) {
		t.Fatalf("sort keys must order numerically")
	}
	k := StreamVersionKey("ds1/1", 3)
	if sk, ok := k["SK"].(*types.AttributeValueMemberS); !ok || sk.Value != "VERSION#0000000003" {
		t.Fatalf("StreamVersionKey: %#v", k)
	}
}
