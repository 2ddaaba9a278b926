// Package common defines shared identifier and pagination types used across
// the ContentMax platform.
package common

import (
	"github.com/google/uuid"
)

// NodeID identifies a taxonomy node.  It is derived deterministically from
// the node's normalized category path (same path ⇒ same id), which makes
// re-imports idempotent.
type NodeID string

// ProductID is the catalog-assigned product identifier.
type ProductID string

// RunID identifies one pipeline execution.
type RunID string

// NewRunID returns a fresh random RunID.
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// Metadata is an open-ended key-value bag carried by taxonomy nodes.
type Metadata map[string]interface{}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
