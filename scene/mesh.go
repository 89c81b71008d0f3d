package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Interpolation domains for primvars, matching the host scene-graph
// vocabulary.
const (
	InterpolationConstant = "constant"
	InterpolationUniform  = "uniform"
	InterpolationVertex   = "vertex"
	InterpolationFaceVary = "faceVarying"
)

// Primvars carry per-mesh attribute values with an interpolation domain
// and optional indexing. Vertex-interpolated primvars hold exactly one
// value per point (or index with a matching domain).

type PrimvarVec2 struct {
	Interpolation string
	Values        []mgl32.Vec2
	Indices       []int
}

type PrimvarVec3 struct {
	Interpolation string
	Values        []mgl32.Vec3
	Indices       []int
}

type PrimvarVec4 struct {
	Interpolation string
	Values        []mgl32.Vec4
	Indices       []int
}

type PrimvarFloat struct {
	Interpolation string
	Values        []float32
	Indices       []int
}

// Subset is a named face subset of a mesh bound to its own material.
type Subset struct {
	Name     string
	Material int
	Faces    []int
	Indices  []int
}

type Mesh struct {
	Name string

	// Faces holds the vertex count of each face; Indices the flattened
	// face-vertex indices into Points.
	Faces   []int
	Indices []int
	Points  []mgl32.Vec3

	Normals     PrimvarVec3
	Tangents    PrimvarVec4
	UVs         PrimvarVec2
	ExtraUVSets []PrimvarVec2
	Colors      []PrimvarVec3
	Opacities   []PrimvarFloat

	// Joints and Weights are flattened influence sets:
	// len == len(Points) * InfluenceCount.
	Joints         []int
	Weights        []float32
	InfluenceCount int

	Material int
	Subsets  []Subset

	DoubleSided  bool
	Instanceable bool

	GeomBindTransform mgl64.Mat4
}

func (m *Mesh) IsSkinned() bool {
	return len(m.Joints) > 0
}
