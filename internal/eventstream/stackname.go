package eventstream

import (
	"fmt"
	"strings"
)

// StackKind disambiguates which part of the aggregate a stack belongs to. Its
// value is the stack-name prefix.
type StackKind string

const (
	KindStream       StackKind = "event-stream"
	KindSubscribable StackKind = "event-subscribable"
	KindSink         StackKind = "event-sink"
)

// StackRef is a parsed stack name.
type StackRef struct {
	Kind      StackKind
	DatasetID string
	Version   string
	// SubID is the sink id; empty for stream and subscribable stacks.
	SubID string
}

// StreamID returns the id of the owning aggregate.
func (r StackRef) StreamID() string { return StreamID(r.DatasetID, r.Version) }

// String renders the stack name.
func (r StackRef) String() string {
	if r.Kind == KindSink {
		return fmt.Sprintf("%s-%s-%s-%s", r.Kind, r.DatasetID, r.Version, r.SubID)
	}
	return fmt.Sprintf("%s-%s-%s", r.Kind, r.DatasetID, r.Version)
}

// StreamStackName is "event-stream-{datasetId}-{version}".
func StreamStackName(datasetID, version string) string {
	return StackRef{Kind: KindStream, DatasetID: datasetID, Version: version}.String()
}

// SubscribableStackName is "event-subscribable-{datasetId}-{version}".
func SubscribableStackName(datasetID, version string) string {
	return StackRef{Kind: KindSubscribable, DatasetID: datasetID, Version: version}.String()
}

// SinkStackName is "event-sink-{datasetId}-{version}-{sinkId}".
func SinkStackName(datasetID, version, sinkID string) string {
	return StackRef{Kind: KindSink, DatasetID: datasetID, Version: version, SubID: sinkID}.String()
}

// ParseStackName recovers the stack reference from a stack name. The dataset
// id may itself contain hyphens; version and sink id may not.
func ParseStackName(name string) (StackRef, error) {
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return StackRef{}, fmt.Errorf("stack name %q: missing kind prefix", name)
	}
	kind := StackKind(parts[0] + "-" + parts[1])
	rest := parts[2:]

	tail := 1
	switch kind {
	case KindStream, KindSubscribable:
	case KindSink:
		tail = 2
	default:
		return StackRef{}, fmt.Errorf("stack name %q: unknown kind prefix %q", name, kind)
	}
	if len(rest) < tail+1 {
		return StackRef{}, fmt.Errorf("stack name %q: too few components for %s", name, kind)
	}

	ref := StackRef{
		Kind:      kind,
		DatasetID: strings.Join(rest[:len(rest)-tail], "-"),
		Version:   rest[len(rest)-tail],
	}
	if kind == KindSink {
		ref.SubID = rest[len(rest)-1]
	}
	if ref.DatasetID == "" || ref.Version == "" || (kind == KindSink && ref.SubID == "") {
		return StackRef{}, fmt.Errorf("stack name %q: empty component", name)
	}
	return ref, nil
}
