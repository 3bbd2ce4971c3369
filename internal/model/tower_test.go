package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTowerLabel(t *testing.T) {
	assert.Equal(t, "A", TowerLabel(1))
	assert.Equal(t, "J", TowerLabel(10))
	assert.Equal(t, "?", TowerLabel(0))
	assert.Equal(t, "?", TowerLabel(11))
	assert.Equal(t, "?", TowerLabel(-3))
}

func TestApartmentLabel(t *testing.T) {
	assert.Equal(t, "A101", ApartmentLabel(1, 1, 1))
	assert.Equal(t, "C704", ApartmentLabel(3, 7, 4))
	assert.Equal(t, "J1402", ApartmentLabel(10, 14, 2))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidTower(1))
	assert.True(t, ValidTower(10))
	assert.False(t, ValidTower(0))
	assert.False(t, ValidTower(11))

	assert.True(t, ValidFloor(14))
	assert.False(t, ValidFloor(15))

	assert.True(t, ValidUnit(4))
	assert.False(t, ValidUnit(5))
}

func TestCanAccessTower(t *testing.T) {
	collector := []RoleAssignment{{Role: RoleCollector, AssignedTowers: []int{1, 2}}}
	admin := []RoleAssignment{{Role: RoleAdmin}}

	assert.True(t, CanAccessTower(collector, 1))
	assert.True(t, CanAccessTower(collector, 2))
	assert.False(t, CanAccessTower(collector, 3))

	// Admins pass for every tower regardless of assignment.
	for tower := 1; tower <= TowerCount; tower++ {
		assert.True(t, CanAccessTower(admin, tower))
	}

	assert.False(t, CanAccessTower(nil, 1))
}
