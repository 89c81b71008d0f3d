package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// TimeValuesVec3 is a raw per-channel animation track: Values[k] is the
// sample defined exactly at Times[k].
type TimeValuesVec3 struct {
	Times  []float32
	Values []mgl32.Vec3
}

type TimeValuesQuat struct {
	Times  []float32
	Values []mgl32.Quat
}

// NodeAnimation holds the TRS tracks one animation track contributes to
// a node.
type NodeAnimation struct {
	Translations TimeValuesVec3
	Rotations    TimeValuesQuat
	Scales       TimeValuesVec3
}

func (na *NodeAnimation) IsEmpty() bool {
	return len(na.Translations.Times) == 0 && len(na.Rotations.Times) == 0 &&
		len(na.Scales.Times) == 0
}

// Node is one element of the scene forest. Parent is -1 iff the node
// index is listed in Scene.RootNodes.
type Node struct {
	Name string

	// Path is the synthetic "n<i>" token path assigned during import,
	// unique and stable regardless of user-chosen names.
	Path string

	HasTransform   bool
	Transform      mgl64.Mat4
	WorldTransform mgl64.Mat4

	Translation mgl64.Vec3
	// Rotation stays the zero quaternion when unauthored.
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	Parent   int
	Children []int

	Camera  int
	NGP     int
	IsJoint bool

	StaticMeshes []int
	// SkinnedMeshes maps skeleton index to the meshes it deforms under
	// this node.
	SkinnedMeshes map[int][]int

	// Animations is indexed by animation track.
	Animations []NodeAnimation
}

func (n *Node) HasRotation() bool {
	return n.Rotation.W != 0 || n.Rotation.V[0] != 0 || n.Rotation.V[1] != 0 || n.Rotation.V[2] != 0
}

func (n *Node) IsAnimated() bool {
	for i := range n.Animations {
		if !n.Animations[i].IsEmpty() {
			return true
		}
	}
	return false
}
