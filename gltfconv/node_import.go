package gltfconv

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
)

var identityRotation = [4]float32{0, 0, 0, 1}

// importNodes walks the scene graphs depth-first and mirrors every
// glTF node into the scene forest. Nodes carrying both a mesh and a
// skin are collected and resolved after the traversal, once every
// potential skeleton root has been assigned an index.
func (c *importContext) importNodes() {
	var skinnedNodes []int

	var traverse func(parentIndex, nodeIndex int) int
	traverse = func(parentIndex, nodeIndex int) int {
		gn := c.doc.Nodes[nodeIndex]
		sceneIndex, n := c.scene.AddNode()
		c.nodeMap[nodeIndex] = sceneIndex
		c.parentMap[nodeIndex] = parentIndex

		n.Name = gn.Name
		if gn.MatrixOrDefault() != gltf.DefaultMatrix {
			n.HasTransform = true
			m := gn.Matrix
			for i := 0; i < 16; i++ {
				n.Transform[i] = float64(m[i])
			}
		} else {
			n.Translation = mgl64.Vec3{
				float64(gn.Translation[0]),
				float64(gn.Translation[1]),
				float64(gn.Translation[2]),
			}
			if r := gn.RotationOrDefault(); r != identityRotation {
				n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
			}
			n.Scale = mgl32.Vec3(gn.ScaleOrDefault())
		}

		if gn.Camera != nil {
			n.Camera = int(*gn.Camera)
		}
		if ngpExt, ok := extensionValue(gn.Extensions, extNGP); ok {
			ngpIndex, ngp := c.scene.AddNGP()
			n.NGP = ngpIndex
			c.importNGPExtension(ngpExt, ngp)
		}

		if gn.Mesh != nil {
			if gn.Skin != nil {
				// Resolved below, after the whole forest exists.
				skinnedNodes = append(skinnedNodes, nodeIndex)
			} else {
				n.StaticMeshes = c.meshes[int(*gn.Mesh)]
			}
		}

		if parentIndex >= 0 {
			n.Parent = c.nodeMap[parentIndex]
		}
		for _, child := range gn.Children {
			childIndex := traverse(nodeIndex, int(child))
			// AddNode may have grown the arena, reacquire.
			c.scene.Nodes[sceneIndex].Children = append(c.scene.Nodes[sceneIndex].Children, childIndex)
		}
		return sceneIndex
	}

	for _, gs := range c.doc.Scenes {
		for _, rootNodeIndex := range gs.Nodes {
			sceneNodeIndex := traverse(-1, int(rootNodeIndex))
			c.scene.RootNodes = append(c.scene.RootNodes, sceneNodeIndex)
		}
	}

	// A skinned mesh hangs off the root node of its skeleton rather
	// than the node that referenced it: the parent of the skin's
	// skeleton node when present, else the parent of the skinned node,
	// else the skinned node itself.
	for _, nodeIndex := range skinnedNodes {
		gn := c.doc.Nodes[nodeIndex]
		skinIndex := int(*gn.Skin)
		skin := c.doc.Skins[skinIndex]

		skinRootNodeIndex := nodeIndex
		if skin.Skeleton != nil {
			if parentIndex := c.parentMap[int(*skin.Skeleton)]; parentIndex != -1 {
				skinRootNodeIndex = parentIndex
			}
		} else if parentIndex := c.parentMap[nodeIndex]; parentIndex != -1 {
			skinRootNodeIndex = parentIndex
		}

		skeleton := &c.scene.Skeletons[skinIndex]
		skeleton.Parent = c.nodeMap[skinRootNodeIndex]

		for _, m := range c.meshes[int(*gn.Mesh)] {
			if !containsInt(skeleton.MeshSkinningTargets, m) {
				skeleton.MeshSkinningTargets = append(skeleton.MeshSkinningTargets, m)
			}
		}
	}
}

func containsInt(s []int, v int) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
