package domain

import (
	"fmt"
	"slices"
)

// DefaultUnitCost is charged per metre for diameters missing from the cost table
const DefaultUnitCost = 1.0

// Catalog holds the discrete commercial diameter sets (mm)
type Catalog struct {
	Standard []float64
	Hose     []float64
	UnitCost map[float64]float64
}

// DefaultCatalog returns the commercial PVC set with its relative unit costs
func DefaultCatalog() Catalog {
	return Catalog{
		Standard: []float64{32, 50, 75, 100, 125, 150},
		Hose:     []float64{16, 20},
		UnitCost: map[float64]float64{
			32:  1.0,
			50:  1.8,
			75:  3.2,
			100: 5.5,
			125: 8.0,
			150: 11.0,
		},
	}
}

// Validate checks both sets are non-empty, positive and strictly increasing
func (c Catalog) Validate() error {
	if err := validateSet("standard", c.Standard); err != nil {
		return err
	}
	if err := validateSet("hose", c.Hose); err != nil {
		return err
	}
	for dn, cost := range c.UnitCost {
		if cost < 0 {
			return fmt.Errorf("%w: negative unit cost %g for DN %g", ErrInvalidCatalog, cost, dn)
		}
	}
	return nil
}

func validateSet(name string, set []float64) error {
	if len(set) == 0 {
		return fmt.Errorf("%w: %s set is empty", ErrInvalidCatalog, name)
	}
	for i, d := range set {
		if !(d > 0) {
			return fmt.Errorf("%w: %s set has non-positive diameter %g", ErrInvalidCatalog, name, d)
		}
		if i > 0 && d <= set[i-1] {
			return fmt.Errorf("%w: %s set is not strictly increasing at %g", ErrInvalidCatalog, name, d)
		}
	}
	return nil
}

// SetFor returns the diameter set allowed for a link role
func (c Catalog) SetFor(role LinkRole) []float64 {
	if role == LinkRoleHose {
		return c.Hose
	}
	return c.Standard
}

// Snap returns the smallest diameter in the role's set that is at least mm,
// or the largest one when none suffices
func (c Catalog) Snap(role LinkRole, mm float64) float64 {
	set := c.SetFor(role)
	for _, d := range set {
		if d >= mm {
			return d
		}
	}
	return set[len(set)-1]
}

// Next returns the next larger diameter in the role's set
func (c Catalog) Next(role LinkRole, mm float64) (float64, bool) {
	for _, d := range c.SetFor(role) {
		if d > mm {
			return d, true
		}
	}
	return 0, false
}

// Min returns the smallest diameter in the role's set
func (c Catalog) Min(role LinkRole) float64 {
	return c.SetFor(role)[0]
}

// Max returns the largest diameter in the role's set
func (c Catalog) Max(role LinkRole) float64 {
	set := c.SetFor(role)
	return set[len(set)-1]
}

// Contains reports whether mm belongs to the role's set
func (c Catalog) Contains(role LinkRole, mm float64) bool {
	return slices.Contains(c.SetFor(role), mm)
}

// Index returns the position of mm in the standard set, or -1
func (c Catalog) Index(mm float64) int {
	return slices.Index(c.Standard, mm)
}

// Cost returns the unit cost per metre of a diameter
func (c Catalog) Cost(mm float64) float64 {
	if cost, ok := c.UnitCost[mm]; ok {
		return cost
	}
	return DefaultUnitCost
}
