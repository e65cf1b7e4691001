package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogSnap(t *testing.T) {
	cat := DefaultCatalog()

	tests := []struct {
		name string
		role LinkRole
		mm   float64
		want float64
	}{
		{"below smallest", LinkRoleMain, 10, 32},
		{"exact match", LinkRoleMain, 75, 75},
		{"between sizes", LinkRoleLateral, 76, 100},
		{"above largest", LinkRoleDerivation, 400, 150},
		{"hose small", LinkRoleHose, 12, 16},
		{"hose between", LinkRoleHose, 17, 20},
		{"hose above", LinkRoleHose, 32, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.Snap(tt.role, tt.mm))
		})
	}
}

func TestCatalogNext(t *testing.T) {
	cat := DefaultCatalog()

	next, ok := cat.Next(LinkRoleMain, 50)
	assert.True(t, ok)
	assert.Equal(t, 75.0, next)

	_, ok = cat.Next(LinkRoleMain, 150)
	assert.False(t, ok)

	next, ok = cat.Next(LinkRoleHose, 16)
	assert.True(t, ok)
	assert.Equal(t, 20.0, next)

	_, ok = cat.Next(LinkRoleHose, 20)
	assert.False(t, ok)
}

func TestCatalogLookups(t *testing.T) {
	cat := DefaultCatalog()

	assert.Equal(t, 32.0, cat.Min(LinkRoleMain))
	assert.Equal(t, 150.0, cat.Max(LinkRoleMain))
	assert.Equal(t, 16.0, cat.Min(LinkRoleHose))
	assert.Equal(t, 20.0, cat.Max(LinkRoleHose))

	assert.True(t, cat.Contains(LinkRoleLateral, 125))
	assert.False(t, cat.Contains(LinkRoleHose, 125))

	assert.Equal(t, 2, cat.Index(75))
	assert.Equal(t, -1, cat.Index(60))

	assert.Equal(t, 5.5, cat.Cost(100))
	assert.Equal(t, DefaultUnitCost, cat.Cost(16))
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Catalog)
		wantErr bool
	}{
		{"default is valid", func(*Catalog) {}, false},
		{"empty standard", func(c *Catalog) { c.Standard = nil }, true},
		{"empty hose", func(c *Catalog) { c.Hose = []float64{} }, true},
		{"unsorted", func(c *Catalog) { c.Standard = []float64{50, 32} }, true},
		{"duplicate", func(c *Catalog) { c.Standard = []float64{32, 32} }, true},
		{"non-positive", func(c *Catalog) { c.Hose = []float64{0, 16} }, true},
		{"negative cost", func(c *Catalog) { c.UnitCost[32] = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := DefaultCatalog()
			tt.mutate(&cat)
			err := cat.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidCatalog), "expected ErrInvalidCatalog, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
