package ecoseed

import "github.com/xraph/ecoseed/id"

// ID is the primary identifier type for all Eco-Seed entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
