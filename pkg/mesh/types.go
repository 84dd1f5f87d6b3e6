package mesh

import (
	"fmt"
	"strings"
)

// Role tags a line element. Only anchor elements take part in connectivity.
type Role string

const (
	RoleAnchor Role = "ANCHOR"
	RoleOther  Role = "OTHER"
)

// Standard master candidate set names.
const (
	WallNodes = "WALL_NODES"
	SoilNodes = "SOIL_NODES"
)

// Point is a position in model space.
type Point struct {
	X, Y, Z float64
}

// Node is a mesh node. Node values are never mutated after loading.
type Node struct {
	ID int64   `json:"id" yaml:"id" validate:"min=1"`
	X  float64 `json:"x" yaml:"x" validate:"finite"`
	Y  float64 `json:"y" yaml:"y" validate:"finite"`
	Z  float64 `json:"z" yaml:"z" validate:"finite"`
}

// Point returns the node position.
func (n Node) Point() Point {
	return Point{X: n.X, Y: n.Y, Z: n.Z}
}

// LineElement is a two-node element. Anchors are chains of these.
type LineElement struct {
	ID    int64 `json:"id" yaml:"id" validate:"min=1"`
	NodeA int64 `json:"node_a" yaml:"node_a" validate:"min=1"`
	NodeB int64 `json:"node_b" yaml:"node_b" validate:"min=1"`
	Role  Role  `json:"role" yaml:"role" validate:"required,oneof=ANCHOR OTHER"`
}

// IsAnchor reports whether the element belongs to an anchor.
func (e LineElement) IsAnchor() bool {
	return e.Role == RoleAnchor
}

// MasterSet is a named, read-only collection of candidate master nodes.
type MasterSet struct {
	Name  string
	Nodes []Node
}

// Len returns the number of candidate nodes.
func (m MasterSet) Len() int {
	return len(m.Nodes)
}

// Model bundles everything the pipeline consumes from the external mesh source.
type Model struct {
	Nodes    []Node        `json:"nodes" yaml:"nodes" validate:"dive"`
	Elements []LineElement `json:"elements" yaml:"elements" validate:"dive"`
	Wall     []Node        `json:"wall_nodes" yaml:"wall_nodes" validate:"dive"`
	Soil     []Node        `json:"soil_nodes" yaml:"soil_nodes" validate:"dive"`
}

// WallSet returns the wall candidates as a named master set.
func (m *Model) WallSet() MasterSet {
	return MasterSet{Name: WallNodes, Nodes: m.Wall}
}

// SoilSet returns the soil candidates as a named master set.
func (m *Model) SoilSet() MasterSet {
	return MasterSet{Name: SoilNodes, Nodes: m.Soil}
}

// AnchorElements returns the elements tagged as anchors, in input order.
func (m *Model) AnchorElements() []LineElement {
	out := make([]LineElement, 0, len(m.Elements))
	for _, e := range m.Elements {
		if e.IsAnchor() {
			out = append(out, e)
		}
	}
	return out
}

// Axis is a signed coordinate axis used to decide which anchor end is "up".
type Axis struct {
	index int // 0=x 1=y 2=z
	sign  float64
}

// Predefined axes.
var (
	AxisX = Axis{index: 0, sign: 1}
	AxisY = Axis{index: 1, sign: 1}
	AxisZ = Axis{index: 2, sign: 1}
)

// ParseAxis accepts "x", "y", "z" with an optional leading sign.
func ParseAxis(s string) (Axis, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	sign := 1.0
	switch {
	case strings.HasPrefix(v, "-"):
		sign = -1
		v = v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	}
	switch v {
	case "x":
		return Axis{index: 0, sign: sign}, nil
	case "y":
		return Axis{index: 1, sign: sign}, nil
	case "z":
		return Axis{index: 2, sign: sign}, nil
	}
	return Axis{}, fmt.Errorf("invalid up axis %q", s)
}

// Project returns the signed coordinate of p along the axis.
func (a Axis) Project(p Point) float64 {
	sign := a.sign
	if sign == 0 {
		sign = 1
	}
	switch a.index {
	case 0:
		return sign * p.X
	case 1:
		return sign * p.Y
	default:
		return sign * p.Z
	}
}

func (a Axis) String() string {
	name := [...]string{"x", "y", "z"}[a.index]
	if a.sign < 0 {
		return "-" + name
	}
	return name
}
