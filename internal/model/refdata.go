package model

import "encoding/json"

// Category is an upstream chart-of-accounts category. Categories form a tree
// via ParentID, but upstream is authoritative for the shape; the cache never
// enforces the linkage.
type Category struct {
	ID        string
	ParentID  string
	Name      string
	Type      string
	CanEdit   bool
	CanDelete bool
	Deleted   bool
	Payload   json.RawMessage
}

// Tag is a user-defined label on transactions, mirrored as a flat keyed
// collection.
type Tag struct {
	ID       string
	Name     string
	Type     string
	UseCount int
	Deleted  bool
	Payload  json.RawMessage
}
