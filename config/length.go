package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unit is the unit of a Length.
type Unit string

const (
	UnitPx Unit = "px"
	UnitVW Unit = "vw" // percent of container width
	UnitVH Unit = "vh" // percent of container height
)

// Length is an object dimension in absolute pixels or container-relative units.
// YAML accepts bare numbers (pixels) or strings like "100px", "8vw", "10vh".
type Length struct {
	Value float64
	Unit  Unit
}

// Px returns an absolute pixel length.
func Px(v float64) Length {
	return Length{Value: v, Unit: UnitPx}
}

// ParseLength parses "100", "100px", "8vw" or "10vh".
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	unit := UnitPx
	for _, u := range []Unit{UnitPx, UnitVW, UnitVH} {
		if strings.HasSuffix(s, string(u)) {
			unit = u
			s = strings.TrimSpace(strings.TrimSuffix(s, string(u)))
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Length{}, fmt.Errorf("parsing length %q: %w", s, err)
	}
	return Length{Value: v, Unit: unit}, nil
}

// Resolve converts the length to pixels for a container of the given size.
func (l Length) Resolve(width, height float64) float64 {
	switch l.Unit {
	case UnitVW:
		return l.Value * width / 100
	case UnitVH:
		return l.Value * height / 100
	default:
		return l.Value
	}
}

func (l Length) String() string {
	if l.Unit == "" {
		return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(UnitPx)
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(l.Unit)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Length) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: length must be a scalar", node.Line)
	}
	parsed, err := ParseLength(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l Length) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}
