// Package catalog resolves dataset metadata needed to describe stacks.
package catalog

import (
	"context"
	"fmt"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/template"
)

// Catalog looks up datasets.
type Catalog interface {
	// Dataset returns the dataset with the given id, or an error wrapping
	// eventstream.ErrNotFound.
	Dataset(ctx context.Context, id string) (template.Dataset, error)
}

// StaticCatalog serves access rights from configuration. Datasets without an
// explicit entry get DefaultAccessRights; when that is empty they are unknown.
type StaticCatalog struct {
	AccessRights        map[string]string
	DefaultAccessRights string
}

// NewStatic returns a StaticCatalog over a copy of accessRights.
func NewStatic(accessRights map[string]string, defaultAccessRights string) *StaticCatalog {
	m := make(map[string]string, len(accessRights))
	for k, v := range accessRights {
		m[k] = v
	}
	return &StaticCatalog{AccessRights: m, DefaultAccessRights: defaultAccessRights}
}

func (c *StaticCatalog) Dataset(_ context.Context, id string) (template.Dataset, error) {
	rights, ok := c.AccessRights[id]
	if !ok {
		rights = c.DefaultAccessRights
	}
	if rights == "" {
		return template.Dataset{}, fmt.Errorf("%w: dataset %s", eventstream.ErrNotFound, id)
	}
	return template.Dataset{ID: id, AccessRights: rights}, nil
}

var _ Catalog = (*StaticCatalog)(nil)
