package dynamo

import "fmt"

// StreamPK returns the partition key shared by every version of an event stream.
func StreamPK(id string) string { return fmt.Sprintf("EVENT_STREAM#%s", id) }

// VersionSK returns the sort key for one config version. Versions are zero
// padded so lexical order matches numeric order.
func VersionSK(version int) string { return fmt.Sprintf("VERSION#%010d", version) }

// StreamVersionKey returns the full PK/SK pair for one version of a stream.
func StreamVersionKey(id string, version int) Item {
	return Item{
		"PK": StringAttribute(StreamPK(id)),
		"SK": StringAttribute(VersionSK(version)),
	}
}
