package domain

import "fmt"

// Unit tags a physical quantity. The pipeline carries units explicitly on
// every coordinate and variable value instead of inspecting data at runtime.
type Unit int

const (
	UnitDimensionless Unit = iota
	UnitMeter
	UnitDegree
	UnitSecond
	UnitKnot
)

// String returns the manifest spelling of the unit.
func (u Unit) String() string {
	switch u {
	case UnitMeter:
		return "meter"
	case UnitDegree:
		return "degree"
	case UnitSecond:
		return "second"
	case UnitKnot:
		return "knot"
	case UnitDimensionless:
		return "dimensionless"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit maps a manifest/bundle spelling back to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "meter", "m":
		return UnitMeter, nil
	case "degree", "deg":
		return UnitDegree, nil
	case "second", "s":
		return UnitSecond, nil
	case "knot", "kt":
		return UnitKnot, nil
	case "dimensionless", "":
		return UnitDimensionless, nil
	default:
		return UnitDimensionless, fmt.Errorf("unknown unit %q", s)
	}
}

// Quantity is a value paired with its unit tag.
type Quantity struct {
	Value float64
	Unit  Unit
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}
