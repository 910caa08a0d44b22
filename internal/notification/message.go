// Package notification turns CloudFormation stack events delivered over SNS
// into reconciler calls.
package notification

import (
	"errors"
	"strings"
)

// RootStackType is the resource type of events about a stack as a whole.
// Events about resources inside a stack carry their own type and are ignored.
const RootStackType = "AWS::CloudFormation::Stack"

// Message is a parsed CloudFormation stack event.
type Message struct {
	StackName      string
	ResourceStatus string
	ResourceType   string
	// Fields holds every key of the message, including the ones above.
	Fields map[string]string
}

// Actionable reports whether the event is about the stack itself.
func (m Message) Actionable() bool { return m.ResourceType == RootStackType }

// ParseMessage parses the SNS body CloudFormation publishes: one Key='value'
// pair per line.
func ParseMessage(body string) (Message, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = unquote(value)
	}
	m := Message{
		StackName:      fields["StackName"],
		ResourceStatus: fields["ResourceStatus"],
		ResourceType:   fields["ResourceType"],
		Fields:         fields,
	}
	if m.StackName == "" {
		return Message{}, errors.New("notification: message has no StackName")
	}
	return m, nil
}

// unquote strips one pair of surrounding single quotes.
func unquote(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		return v[1 : len(v)-1]
	}
	return v
}
