// Package tier defines the subscription tier catalog: the static table
// mapping a tier identifier to its numeric limits.
//
// The catalog is built once at startup and never mutated afterwards.
// An unknown tier identifier is always a configuration bug — lookups
// surface UnknownTierError instead of silently defaulting to the most
// permissive or most restrictive tier.
package tier

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// Limit is a single quota dimension's ceiling. A non-negative value is
// an inclusive maximum; Unlimited means the dimension is never checked.
type Limit int64

// Unlimited marks a dimension with no ceiling.
const Unlimited Limit = -1

// Bounded reports whether the limit carries a numeric ceiling.
func (l Limit) Bounded() bool { return l != Unlimited }

// Allows reports whether n is within the limit. The limit is inclusive:
// n == limit passes, only strictly exceeding it fails.
func (l Limit) Allows(n int64) bool {
	return !l.Bounded() || n <= int64(l)
}

// Value returns the numeric ceiling, or -1 for Unlimited.
func (l Limit) Value() int64 { return int64(l) }

func (l Limit) String() string {
	if !l.Bounded() {
		return "unlimited"
	}
	return fmt.Sprintf("%d", int64(l))
}

// Bytes renders the limit as a human-readable byte size.
func (l Limit) Bytes() string {
	if !l.Bounded() {
		return "unlimited"
	}
	return humanize.IBytes(uint64(l))
}

// Limits holds every quota dimension for one tier. Immutable after
// catalog construction.
type Limits struct {
	MaxProjects                Limit
	MaxCollaboratorsPerProject Limit
	MaxActionsPerMonth         Limit
	MaxStorageBytes            Limit
}

// Built-in tier identifiers. Deployments can override their limits or
// register additional tiers through configuration.
const (
	TierFree      = "free"
	TierStudio    = "studio"
	TierUnlimited = "unlimited"
)

// UnknownTierError reports a lookup for a tier that is not registered.
type UnknownTierError struct {
	TierID string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("tier: unknown tier %q", e.TierID)
}

// Catalog is the read-only tier lookup table.
type Catalog struct {
	limits map[string]Limits
}

// NewCatalog builds a catalog from the given tier table. The map is
// copied; callers cannot mutate the catalog afterwards.
func NewCatalog(limits map[string]Limits) *Catalog {
	m := make(map[string]Limits, len(limits))
	for id, l := range limits {
		m[id] = l
	}
	return &Catalog{limits: m}
}

// DefaultCatalog returns a catalog over the built-in three-tier table.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultTable())
}

// DefaultTable returns a fresh copy of the built-in tier table, for
// callers that layer configured overrides on top before building a
// catalog.
func DefaultTable() map[string]Limits {
	return map[string]Limits{
		TierFree: {
			MaxProjects:                3,
			MaxCollaboratorsPerProject: 2,
			MaxActionsPerMonth:         100,
			MaxStorageBytes:            100 << 20, // 100 MiB
		},
		TierStudio: {
			MaxProjects:                25,
			MaxCollaboratorsPerProject: 10,
			MaxActionsPerMonth:         2000,
			MaxStorageBytes:            5 << 30, // 5 GiB
		},
		TierUnlimited: {
			MaxProjects:                Unlimited,
			MaxCollaboratorsPerProject: Unlimited,
			MaxActionsPerMonth:         Unlimited,
			MaxStorageBytes:            Unlimited,
		},
	}
}

// LimitsFor returns the limits registered for tierID, or UnknownTierError.
func (c *Catalog) LimitsFor(tierID string) (Limits, error) {
	l, ok := c.limits[tierID]
	if !ok {
		return Limits{}, &UnknownTierError{TierID: tierID}
	}
	return l, nil
}

// Has reports whether tierID is registered.
func (c *Catalog) Has(tierID string) bool {
	_, ok := c.limits[tierID]
	return ok
}

// TierIDs returns the registered tier identifiers in sorted order.
func (c *Catalog) TierIDs() []string {
	ids := make([]string, 0, len(c.limits))
	for id := range c.limits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
