package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Skeleton binds a set of joints to skinned meshes. The joint arrays
// (Joints, JointNames, JointParents and the three transform arrays) all
// share one length, and JointParents is topologically sorted so that
// JointParents[i] < i whenever joint i has a parent.
type Skeleton struct {
	Name string

	// Parent is the scene node the skeleton hangs under, -1 for root.
	Parent int

	// Joints holds the synthetic path tokens ("n3/n7/n9"); JointNames
	// the user-facing node names.
	Joints     []string
	JointNames []string

	JointParents []int

	RestTransforms        []mgl64.Mat4
	BindTransforms        []mgl64.Mat4
	InverseBindTransforms []mgl64.Mat4

	// MeshSkinningTargets lists the meshes deformed by this skeleton.
	MeshSkinningTargets []int

	// AnimatedJoints names the joints driven by animation, in the
	// order used by the Animations' per-joint arrays.
	AnimatedJoints []string

	// Animations indexes Scene.Animations, one entry per animation
	// track.
	Animations []int
}

// Animation is a resampled skeletal animation: for every time Times[k]
// each per-joint array holds exactly one sample, time-major.
type Animation struct {
	Name   string
	Joints []string

	Times        []float32
	Translations [][]mgl32.Vec3
	Rotations    [][]mgl32.Quat
	Scales       [][]mgl32.Vec3
}
