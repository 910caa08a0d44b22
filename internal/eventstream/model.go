// Package eventstream holds the event stream aggregate: the stream itself, its
// embedded Subscribable and its Sink list, persisted and read as one unit.
package eventstream

import (
	"fmt"
	"strings"
	"time"
)

// Status is the provisioning status shared by streams and their sub-resources.
type Status string

const (
	StatusInactive         Status = "INACTIVE"
	StatusCreateInProgress Status = "CREATE_IN_PROGRESS"
	StatusActive           Status = "ACTIVE"
	StatusDeleteInProgress Status = "DELETE_IN_PROGRESS"
	StatusOperationFailed  Status = "OPERATION_FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInactive, StatusCreateInProgress, StatusActive, StatusDeleteInProgress, StatusOperationFailed:
		return true
	}
	return false
}

// SinkType is the closed set of delivery sink kinds.
type SinkType string

const (
	SinkS3            SinkType = "S3"
	SinkElasticsearch SinkType = "ELASTICSEARCH"
)

// SinkTypes lists every supported sink type.
var SinkTypes = []SinkType{SinkS3, SinkElasticsearch}

// ParseSinkType resolves a sink type case-insensitively.
func ParseSinkType(s string) (SinkType, error) {
	want := SinkType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range SinkTypes {
		if t == want {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "type", Value: s, Reason: "unknown sink type"}
}

// Subscribable is the optional subscription hook on the processed stream.
type Subscribable struct {
	Status        Status    `json:"status" dynamodbav:"status"`
	Enabled       bool      `json:"enabled" dynamodbav:"enabled"`
	StackName     string    `json:"stackName,omitempty" dynamodbav:"stack_name,omitempty"`
	StackTemplate string    `json:"-" dynamodbav:"stack_template,omitempty"`
	UpdatedBy     string    `json:"updatedBy,omitempty" dynamodbav:"updated_by,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Sink is a delivery target fed from the processed stream. Sinks are never
// removed from the aggregate, only flagged deleted.
type Sink struct {
	ID            string    `json:"id" dynamodbav:"id"`
	Type          SinkType  `json:"type" dynamodbav:"type"`
	Status        Status    `json:"status" dynamodbav:"status"`
	Deleted       bool      `json:"deleted" dynamodbav:"deleted"`
	StackName     string    `json:"stackName,omitempty" dynamodbav:"stack_name,omitempty"`
	StackTemplate string    `json:"-" dynamodbav:"stack_template,omitempty"`
	UpdatedBy     string    `json:"updatedBy,omitempty" dynamodbav:"updated_by,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// SinkView is the subset of a sink exposed to its owner.
type SinkView struct {
	ID     string   `json:"id"`
	Type   SinkType `json:"type"`
	Status Status   `json:"status"`
}

// View returns the owner-facing projection of the sink.
func (s Sink) View() SinkView {
	return SinkView{ID: s.ID, Type: s.Type, Status: s.Status}
}

// EventStream is the aggregate root, one per (dataset, version).
type EventStream struct {
	ID            string       `json:"id" dynamodbav:"id"`
	ConfigVersion int          `json:"configVersion" dynamodbav:"config_version"`
	CreateRaw     bool         `json:"createRaw" dynamodbav:"create_raw"`
	Deleted       bool         `json:"deleted" dynamodbav:"deleted"`
	Status        Status       `json:"status" dynamodbav:"status"`
	StackName     string       `json:"stackName,omitempty" dynamodbav:"stack_name,omitempty"`
	StackTemplate string       `json:"-" dynamodbav:"stack_template,omitempty"`
	UpdatedBy     string       `json:"updatedBy" dynamodbav:"updated_by"`
	UpdatedAt     time.Time    `json:"updatedAt" dynamodbav:"updated_at"`
	Subscribable  Subscribable `json:"subscribable" dynamodbav:"subscribable"`
	Sinks         []Sink       `json:"sinks" dynamodbav:"sinks"`
}

// StreamView is the owner-facing projection of a stream.
type StreamView struct {
	ID              string    `json:"id"`
	CreateRaw       bool      `json:"createRaw"`
	Status          Status    `json:"status"`
	Deleted         bool      `json:"deleted"`
	Confidentiality string    `json:"confidentiality,omitempty"`
	UpdatedBy       string    `json:"updatedBy"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// View returns the owner-facing projection of the stream.
func (e *EventStream) View() StreamView {
	return StreamView{
		ID:        e.ID,
		CreateRaw: e.CreateRaw,
		Status:    e.Status,
		Deleted:   e.Deleted,
		UpdatedBy: e.UpdatedBy,
		UpdatedAt: e.UpdatedAt,
	}
}

// New returns a fresh, not yet persisted aggregate. The embedded Subscribable
// starts disabled and inactive.
func New(datasetID, version string, createRaw bool, requestedBy string, now time.Time) *EventStream {
	return &EventStream{
		ID:        StreamID(datasetID, version),
		CreateRaw: createRaw,
		Status:    StatusInactive,
		UpdatedBy: requestedBy,
		UpdatedAt: now,
		Subscribable: Subscribable{
			Status:    StatusInactive,
			UpdatedAt: now,
		},
		Sinks: []Sink{},
	}
}

// StreamID returns the aggregate id for a dataset version.
func StreamID(datasetID, version string) string {
	return fmt.Sprintf("%s/%s", datasetID, version)
}

// SplitID is the inverse of StreamID.
func SplitID(id string) (datasetID, version string, err error) {
	i := strings.LastIndex(id, "/")
	if i <= 0 || i == len(id)-1 {
		return "", "", &ValidationError{Field: "id", Value: id, Reason: "expected {datasetId}/{version}"}
	}
	return id[:i], id[i+1:], nil
}

// ValidateKey checks that a (dataset, version) pair can be encoded in stack
// names and ids without ambiguity.
func ValidateKey(datasetID, version string) error {
	if strings.TrimSpace(datasetID) == "" {
		return &ValidationError{Field: "datasetId", Value: datasetID, Reason: "must not be empty"}
	}
	if strings.ContainsAny(datasetID, "/ ") {
		return &ValidationError{Field: "datasetId", Value: datasetID, Reason: "must not contain '/' or spaces"}
	}
	if version == "" || strings.ContainsAny(version, "-/ ") {
		return &ValidationError{Field: "version", Value: version, Reason: "must be non-empty and free of '-', '/' and spaces"}
	}
	return nil
}

// DatasetID returns the dataset part of the id.
func (e *EventStream) DatasetID() string {
	d, _, _ := SplitID(e.ID)
	return d
}

// Version returns the version part of the id.
func (e *EventStream) Version() string {
	_, v, _ := SplitID(e.ID)
	return v
}

// Touch records provenance for a mutation.
func (e *EventStream) Touch(requestedBy string, now time.Time) {
	e.UpdatedBy = requestedBy
	e.UpdatedAt = now
}

// LiveSink returns the non-deleted sink of the given type, if any.
func (e *EventStream) LiveSink(t SinkType) (*Sink, bool) {
	for i := range e.Sinks {
		if e.Sinks[i].Type == t && !e.Sinks[i].Deleted {
			return &e.Sinks[i], true
		}
	}
	return nil, false
}

// SinkByID returns the sink with the given id regardless of its deleted flag.
func (e *EventStream) SinkByID(id string) (*Sink, bool) {
	for i := range e.Sinks {
		if e.Sinks[i].ID == id {
			return &e.Sinks[i], true
		}
	}
	return nil, false
}

// LiveSinks returns the sinks that are not soft-deleted, in creation order.
func (e *EventStream) LiveSinks() []Sink {
	out := make([]Sink, 0, len(e.Sinks))
	for _, s := range e.Sinks {
		if !s.Deleted {
			out = append(out, s)
		}
	}
	return out
}

// HasLiveSubResources reports whether the Subscribable or any sink is in a
// status other than INACTIVE.
func (e *EventStream) HasLiveSubResources() bool {
	if e.Subscribable.Status != StatusInactive {
		return true
	}
	for _, s := range e.Sinks {
		if s.Status != StatusInactive {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e *EventStream) Clone() *EventStream {
	if e == nil {
		return nil
	}
	c := *e
	c.Sinks = append([]Sink(nil), e.Sinks...)
	if c.Sinks == nil {
		c.Sinks = []Sink{}
	}
	return &c
}
