package ecoseed

import (
	"github.com/xraph/ecoseed/category"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
	"github.com/xraph/ecoseed/types"
)

// Re-export common types for convenience so callers rarely need the
// sub-packages.

// Profile is re-exported from the profile package.
type Profile = profile.Profile

// Entry is re-exported from the entry package.
type Entry = entry.Entry

// Category is re-exported from the category package.
type Category = category.Category

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	Seeds     = types.Seeds
	HanaMoney = types.HanaMoney
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
