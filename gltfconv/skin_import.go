package gltfconv

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/gltfbridge/scene"
)

// skeletonNodePaths assigns every reachable node a synthetic path of
// the form "n0/n4/n7", stable under renames and collisions of the
// user-chosen node names.
func (c *importContext) skeletonNodePaths() []string {
	paths := make([]string, len(c.doc.Nodes))

	var build func(parentIndex, nodeIndex int)
	build = func(parentIndex, nodeIndex int) {
		name := fmt.Sprintf("n%d", nodeIndex)
		if parentIndex >= 0 {
			paths[nodeIndex] = paths[parentIndex] + "/" + name
		} else {
			paths[nodeIndex] = name
		}
		for _, child := range c.doc.Nodes[nodeIndex].Children {
			build(nodeIndex, int(child))
		}
	}
	for _, gs := range c.doc.Scenes {
		for _, rootNodeIndex := range gs.Nodes {
			build(-1, int(rootNodeIndex))
		}
	}
	return paths
}

// importSkeletons fills the skeleton slots reserved before the node
// traversal. Rest transforms come from the joint nodes' translation
// and rotation; bind transforms invert the skin's inverse bind
// matrices.
func (c *importContext) importSkeletons() {
	if len(c.doc.Skins) == 0 {
		return
	}
	paths := c.skeletonNodePaths()

	for skinIndex, skin := range c.doc.Skins {
		skeleton := &c.scene.Skeletons[skinIndex]
		c.skinMap[skinIndex] = skinIndex
		skeleton.Name = skin.Name
		skeleton.Joints = make([]string, len(skin.Joints))
		skeleton.JointNames = make([]string, len(skin.Joints))
		skeleton.JointParents = make([]int, len(skin.Joints))
		skeleton.RestTransforms = make([]mgl64.Mat4, len(skin.Joints))
		skeleton.BindTransforms = make([]mgl64.Mat4, len(skin.Joints))
		skeleton.InverseBindTransforms = make([]mgl64.Mat4, len(skin.Joints))

		jointOrder := make(map[int]int, len(skin.Joints))
		for j, joint := range skin.Joints {
			jointOrder[int(joint)] = j
		}

		for j, joint := range skin.Joints {
			nodeIndex := int(joint)
			gn := c.doc.Nodes[nodeIndex]
			n := &c.scene.Nodes[c.nodeMap[nodeIndex]]
			n.IsJoint = true
			n.Path = paths[nodeIndex]

			skeleton.Joints[j] = paths[nodeIndex]
			skeleton.JointNames[j] = gn.Name
			skeleton.RestTransforms[j] = restTransform(n)

			skeleton.JointParents[j] = -1
			if parent, ok := jointOrder[c.parentMap[nodeIndex]]; ok {
				skeleton.JointParents[j] = parent
			}
		}

		if skin.InverseBindMatrices == nil {
			for j := range skeleton.BindTransforms {
				skeleton.BindTransforms[j] = mgl64.Ident4()
				skeleton.InverseBindTransforms[j] = mgl64.Ident4()
			}
			continue
		}
		ibms, err := ReadAccessorMat4s(c.doc, int(*skin.InverseBindMatrices))
		if err != nil {
			c.warnf("skin %q: cannot read inverse bind matrices: %v", skin.Name, err)
			continue
		}
		for j := range skin.Joints {
			if j >= len(ibms) {
				break
			}
			ibm := mat4To64(ibms[j])
			skeleton.InverseBindTransforms[j] = ibm
			skeleton.BindTransforms[j] = ibm.Inv()
		}
	}
}

// restTransform composes the joint's local translation and rotation.
// Scale does not participate in the rest pose.
func restTransform(n *scene.Node) mgl64.Mat4 {
	m := mgl64.Ident4()
	if n.HasRotation() {
		q := mgl64.Quat{
			W: float64(n.Rotation.W),
			V: mgl64.Vec3{
				float64(n.Rotation.V[0]),
				float64(n.Rotation.V[1]),
				float64(n.Rotation.V[2]),
			},
		}
		m = q.Normalize().Mat4()
	}
	m[12] = n.Translation[0]
	m[13] = n.Translation[1]
	m[14] = n.Translation[2]
	return m
}

func mat4To64(m [16]float32) mgl64.Mat4 {
	var out mgl64.Mat4
	for i := 0; i < 16; i++ {
		out[i] = float64(m[i])
	}
	return out
}
