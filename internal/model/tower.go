package model

import "fmt"

// The residential complex is a fixed grid: ten towers lettered A-J on the
// outside, fourteen floors per tower and four units per floor. These bounds
// are validated at every boundary that accepts tower/floor/unit input.
const (
	TowerCount     = 10 // towers 1..10, displayed as letters A..J
	FloorsPerTower = 14
	UnitsPerFloor  = 4
)

// ValidTower reports whether t is inside the complex.
func ValidTower(t int) bool { return t >= 1 && t <= TowerCount }

// ValidFloor reports whether f is a real floor number.
func ValidFloor(f int) bool { return f >= 1 && f <= FloorsPerTower }

// ValidUnit reports whether u is a real unit number.
func ValidUnit(u int) bool { return u >= 1 && u <= UnitsPerFloor }

// TowerLabel converts a tower number to its display letter (1 -> "A").
// Out-of-range numbers return "?" rather than wrapping into the alphabet.
func TowerLabel(t int) string {
	if !ValidTower(t) {
		return "?"
	}
	return string(rune('A' + t - 1))
}

// ApartmentLabel formats a full apartment reference such as "A1402"
// (tower letter, floor, zero-padded unit).
func ApartmentLabel(tower, floor, unit int) string {
	return fmt.Sprintf("%s%d%02d", TowerLabel(tower), floor, unit)
}
