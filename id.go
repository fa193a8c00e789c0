package continuum

import "github.com/xraph/continuum/id"

// ID is the primary identifier type for all Continuum entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
