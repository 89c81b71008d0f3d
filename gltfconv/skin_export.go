package gltfconv

import (
	"fmt"
	"path"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

// exportSkeletons runs after exportNode so c.nodeMap can resolve the
// skeleton parents. Each skeleton gets a "Skel<i>" holder node, its
// joint hierarchy, a skin, one node per skinned mesh and the per-joint
// animation channels.
func (c *exportContext) exportSkeletons(gltfRootNodeIndex int) {
	for i := range c.scene.Skeletons {
		skeleton := &c.scene.Skeletons[i]

		skelNodeIndex := len(c.doc.Nodes)
		c.doc.Nodes = append(c.doc.Nodes, &gltf.Node{
			Name: fmt.Sprintf("Skel%d", i),
		})

		gltfSkeletonParent := gltfRootNodeIndex
		if skeleton.Parent >= 0 {
			gltfSkeletonParent = c.nodeMap[skeleton.Parent]
		}
		if gltfSkeletonParent < 0 {
			gs := c.doc.Scenes[len(c.doc.Scenes)-1]
			gs.Nodes = append(gs.Nodes, uint32(skelNodeIndex))
		} else {
			parent := c.doc.Nodes[gltfSkeletonParent]
			parent.Children = append(parent.Children, uint32(skelNodeIndex))
		}

		ibms := make([]float32, 0, len(skeleton.InverseBindTransforms)*16)
		for _, m := range skeleton.InverseBindTransforms {
			for k := 0; k < 16; k++ {
				ibms = append(ibms, float32(m[k]))
			}
		}
		ibmAccessor := c.addAccessor("inverseBindMatrices", 0, gltf.AccessorMat4,
			gltf.ComponentFloat, len(ibms)/16, floatsToBytes(ibms), false)

		// Joint nodes. JointParents is topologically sorted so the
		// parent node always exists before its children need it.
		jointNodes := make(map[string]int, len(skeleton.Joints))
		jointIndices := make([]uint32, len(skeleton.Joints))
		skelRoot := -1
		rootCount := 0
		for j, jointPath := range skeleton.Joints {
			nodeIndex := len(c.doc.Nodes)
			gn := &gltf.Node{Name: path.Base(jointPath)}
			gn.Translation, gn.Rotation, gn.Scale = decomposeTransform(skeleton.RestTransforms[j])
			c.doc.Nodes = append(c.doc.Nodes, gn)

			jointIndices[j] = uint32(nodeIndex)
			jointNodes[jointPath] = nodeIndex

			if parent := skeleton.JointParents[j]; parent < 0 {
				skelRoot = nodeIndex
				rootCount++
				holder := c.doc.Nodes[skelNodeIndex]
				holder.Children = append(holder.Children, uint32(nodeIndex))
			} else {
				parentNode := c.doc.Nodes[jointNodes[skeleton.Joints[parent]]]
				parentNode.Children = append(parentNode.Children, uint32(nodeIndex))
			}
		}

		skinIndex := len(c.doc.Skins)
		skin := &gltf.Skin{
			Name:   skeleton.Name,
			Joints: jointIndices,
		}
		if ibmAccessor >= 0 {
			skin.InverseBindMatrices = gltf.Index(uint32(ibmAccessor))
		}
		// A multi-root skeleton has no single root to declare.
		if rootCount == 1 {
			skin.Skeleton = gltf.Index(uint32(skelRoot))
		}
		c.doc.Skins = append(c.doc.Skins, skin)
		c.skinMap[i] = skinIndex

		for j, sceneMeshIndex := range skeleton.MeshSkinningTargets {
			meshName := c.scene.Meshes[sceneMeshIndex].Name
			nodeIndex := len(c.doc.Nodes)
			gn := &gltf.Node{
				Name: fmt.Sprintf("skeleton_%d_%d_%s", i, j, meshName),
				Skin: gltf.Index(uint32(skinIndex)),
			}
			c.doc.Nodes = append(c.doc.Nodes, gn)

			if gltfSkeletonParent < 0 {
				gs := c.doc.Scenes[len(c.doc.Scenes)-1]
				gs.Nodes = append(gs.Nodes, uint32(nodeIndex))
			} else {
				parent := c.doc.Nodes[gltfSkeletonParent]
				parent.Children = append(parent.Children, uint32(nodeIndex))
			}

			if primitives := c.primitives[sceneMeshIndex]; len(primitives) > 0 {
				meshIndex := len(c.doc.Meshes)
				c.doc.Meshes = append(c.doc.Meshes, &gltf.Mesh{
					Name:       meshName,
					Primitives: primitives,
				})
				gn.Mesh = gltf.Index(uint32(meshIndex))
			}
		}

		c.exportSkeletonAnimations(skeleton, jointNodes)
	}
}

// exportSkeletonAnimations transposes the time-major joint animation
// samples into per-joint channel buffers and appends them to the
// matching animation track.
func (c *exportContext) exportSkeletonAnimations(skeleton *scene.Skeleton, jointNodes map[string]int) {
	for trackIndex, animationIndex := range skeleton.Animations {
		if animationIndex < 0 || trackIndex >= len(c.doc.Animations) {
			continue
		}
		animation := c.scene.Animations[animationIndex]

		// Track times are in timeCodes, glTF wants seconds.
		secondsPerTimeCode := float32(1)
		if c.scene.TimeCodesPerSecond != 0 {
			secondsPerTimeCode = float32(1 / c.scene.TimeCodesPerSecond)
		}
		boneCount := len(skeleton.AnimatedJoints)
		timesCount := len(animation.Times)

		times := make([]float32, timesCount)
		translations := make([][]float32, boneCount)
		rotations := make([][]float32, boneCount)
		scales := make([][]float32, boneCount)
		for j := 0; j < boneCount; j++ {
			translations[j] = make([]float32, timesCount*3)
			rotations[j] = make([]float32, timesCount*4)
			scales[j] = make([]float32, timesCount*3)
		}
		for t := 0; t < timesCount; t++ {
			times[t] = animation.Times[t] * secondsPerTimeCode
			for j := 0; j < boneCount; j++ {
				tr := animation.Translations[t][j]
				q := animation.Rotations[t][j]
				s := animation.Scales[t][j]
				copy(translations[j][t*3:], tr[:])
				rotations[j][t*4] = q.V[0]
				rotations[j][t*4+1] = q.V[1]
				rotations[j][t*4+2] = q.V[2]
				rotations[j][t*4+3] = q.W
				copy(scales[j][t*3:], s[:])
			}
		}

		timeAccessor := c.addAccessor("times", 0, gltf.AccessorScalar,
			gltf.ComponentFloat, timesCount, floatsToBytes(times), true)
		if timeAccessor < 0 {
			continue
		}

		anim := c.doc.Animations[trackIndex]
		for j := 0; j < boneCount; j++ {
			nodeIndex, ok := jointNodes[skeleton.AnimatedJoints[j]]
			if !ok {
				c.warnf("skeleton %q: animated joint %q is not part of the joint set",
					skeleton.Name, skeleton.AnimatedJoints[j])
				continue
			}
			translationAccessor := c.addAccessor("translations", 0, gltf.AccessorVec3,
				gltf.ComponentFloat, timesCount, floatsToBytes(translations[j]), false)
			rotationAccessor := c.addAccessor("rotations", 0, gltf.AccessorVec4,
				gltf.ComponentFloat, timesCount, floatsToBytes(rotations[j]), false)
			scaleAccessor := c.addAccessor("scales", 0, gltf.AccessorVec3,
				gltf.ComponentFloat, timesCount, floatsToBytes(scales[j]), false)
			if translationAccessor < 0 || rotationAccessor < 0 || scaleAccessor < 0 {
				continue
			}

			addJointChannel := func(accessor int, targetPath gltf.TRSProperty) {
				samplerIndex := len(anim.Samplers)
				anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
					Input:         gltf.Index(uint32(timeAccessor)),
					Output:        gltf.Index(uint32(accessor)),
					Interpolation: gltf.InterpolationLinear,
				})
				anim.Channels = append(anim.Channels, &gltf.Channel{
					Sampler: gltf.Index(uint32(samplerIndex)),
					Target: gltf.ChannelTarget{
						Node: gltf.Index(uint32(nodeIndex)),
						Path: targetPath,
					},
				})
			}
			addJointChannel(translationAccessor, gltf.TRSTranslation)
			addJointChannel(rotationAccessor, gltf.TRSRotation)
			addJointChannel(scaleAccessor, gltf.TRSScale)
		}
	}
}
