package gltfconv

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

// exportOffsetNode emits the correction node that undoes a Z-up axis
// or a non-meter unit scale, or -1 when neither applies.
func (c *exportContext) exportOffsetNode() int {
	upAxisZ := c.scene.UpAxis == scene.UpAxisZ
	scaled := c.scene.MetersPerUnit != 1 && c.scene.MetersPerUnit > 0
	if !upAxisZ && !scaled {
		return -1
	}
	nodeIndex := len(c.doc.Nodes)
	gn := &gltf.Node{Name: "correctionNode"}
	if upAxisZ {
		// -90 degrees around X.
		gn.Rotation = [4]float32{-0.7071068, 0, 0, 0.7071068}
	}
	if scaled {
		s := float32(c.scene.MetersPerUnit)
		gn.Scale = [3]float32{s, s, s}
	}
	c.doc.Nodes = append(c.doc.Nodes, gn)
	return nodeIndex
}

func (c *exportContext) exportCamera(cameraIndex int) int {
	cam := &c.scene.Cameras[cameraIndex]
	gc := &gltf.Camera{Name: cam.Name}
	if cam.Projection == scene.ProjectionPerspective {
		aspect := float32(1)
		if cam.VerticalAperture != 0 {
			aspect = cam.HorizontalAperture / cam.VerticalAperture
		}
		yfov := cam.FOV
		if cam.FocalLength != 0 {
			yfov = 2 * float32(math.Atan(float64(cam.VerticalAperture/(2*cam.FocalLength))))
		}
		gc.Perspective = &gltf.Perspective{
			AspectRatio: gltf.Float(aspect),
			Yfov:        yfov,
			Znear:       cam.NearZ,
			Zfar:        gltf.Float(cam.FarZ),
		}
	} else {
		gc.Orthographic = &gltf.Orthographic{
			Xmag:  cam.HorizontalAperture * 0.1,
			Ymag:  cam.VerticalAperture * 0.1,
			Znear: cam.NearZ,
			Zfar:  cam.FarZ,
		}
	}
	index := len(c.doc.Cameras)
	c.doc.Cameras = append(c.doc.Cameras, gc)
	return index
}

// decomposeTransform factors a matrix into TRS so an animated node can
// keep its rest pose without violating the matrix/animation exclusion.
func decomposeTransform(m mgl64.Mat4) ([3]float32, [4]float32, [3]float32) {
	translation := [3]float32{float32(m[12]), float32(m[13]), float32(m[14])}

	c0 := mgl64.Vec3{m[0], m[1], m[2]}
	c1 := mgl64.Vec3{m[4], m[5], m[6]}
	c2 := mgl64.Vec3{m[8], m[9], m[10]}
	sx, sy, sz := c0.Len(), c1.Len(), c2.Len()
	if m.Det() < 0 {
		sx = -sx
	}
	if sx != 0 {
		c0 = c0.Mul(1 / sx)
	}
	if sy != 0 {
		c1 = c1.Mul(1 / sy)
	}
	if sz != 0 {
		c2 = c2.Mul(1 / sz)
	}
	rot := mgl64.Mat4FromCols(
		c0.Vec4(0), c1.Vec4(0), c2.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	q := mgl64.Mat4ToQuat(rot).Normalize()
	rotation := [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)}
	scale := [3]float32{float32(sx), float32(sy), float32(sz)}
	return translation, rotation, scale
}

// createGltfMesh combines the cached primitives of every static mesh
// of the node into a single glTF mesh.
func (c *exportContext) createGltfMesh(node *scene.Node) int {
	meshIndex := len(c.doc.Meshes)
	gmesh := &gltf.Mesh{Name: node.Name}
	for _, sceneMeshIndex := range node.StaticMeshes {
		gmesh.Primitives = append(gmesh.Primitives, c.primitives[sceneMeshIndex]...)
	}
	c.doc.Meshes = append(c.doc.Meshes, gmesh)
	return meshIndex
}

// exportNode mirrors one scene node, its camera, NGP payload, meshes
// and per-track animation channels into the document. offset is the
// index shift introduced by the correction node.
func (c *exportContext) exportNode(sceneNodeIndex, offset int) {
	node := &c.scene.Nodes[sceneNodeIndex]
	gltfNodeIndex := len(c.doc.Nodes)
	gn := &gltf.Node{Name: node.Name}
	c.doc.Nodes = append(c.doc.Nodes, gn)
	c.nodeMap[sceneNodeIndex] = gltfNodeIndex

	hasAnimation := node.IsAnimated()

	// A node targeted by animation channels must carry TRS, never a
	// matrix.
	matrixSet := false
	if node.HasTransform {
		if !hasAnimation {
			for i := 0; i < 16; i++ {
				gn.Matrix[i] = float32(node.Transform[i])
			}
			matrixSet = true
		} else {
			gn.Translation, gn.Rotation, gn.Scale = decomposeTransform(node.Transform)
		}
	} else {
		rotation := node.Rotation
		if node.HasRotation() {
			rotation = rotation.Normalize()
		} else {
			rotation = mgl32.QuatIdent()
		}
		gn.Translation = [3]float32{
			float32(node.Translation[0]),
			float32(node.Translation[1]),
			float32(node.Translation[2]),
		}
		gn.Rotation = [4]float32{rotation.V[0], rotation.V[1], rotation.V[2], rotation.W}
		gn.Scale = node.Scale
	}

	if node.Camera != -1 {
		gn.Camera = gltf.Index(uint32(c.exportCamera(node.Camera)))
	}
	if node.NGP != -1 {
		payload, transform := c.exportNGPExtension(&c.scene.NGPs[node.NGP])
		if payload != nil {
			if gn.Extensions == nil {
				gn.Extensions = gltf.Extensions{}
			}
			gn.Extensions[extNGP] = payload
			c.useExtension(extNGP, true)
		}
		if transform != nil {
			total := *transform
			if matrixSet {
				var rest mgl64.Mat4
				for i := 0; i < 16; i++ {
					rest[i] = float64(gn.Matrix[i])
				}
				total = transform.Mul4(rest)
			}
			for i := 0; i < 16; i++ {
				gn.Matrix[i] = float32(total[i])
			}
		}
	}
	if len(node.StaticMeshes) > 0 {
		// Skinned meshes are written with the skeletons; only static
		// meshes are attached here.
		if len(node.StaticMeshes) == 1 {
			sceneMeshIndex := node.StaticMeshes[0]
			meshIndex, ok := c.meshMap[sceneMeshIndex]
			if !ok {
				meshIndex = c.createGltfMesh(node)
				c.meshMap[sceneMeshIndex] = meshIndex
			}
			gn.Mesh = gltf.Index(uint32(meshIndex))
		} else {
			// Multiple static meshes combine into one mesh; that case
			// is rare enough to skip instancing.
			gn.Mesh = gltf.Index(uint32(c.createGltfMesh(node)))
		}
	}
	for _, child := range node.Children {
		gn.Children = append(gn.Children, uint32(child+offset))
	}

	if hasAnimation {
		for trackIndex := range node.Animations {
			na := &node.Animations[trackIndex]
			animation := c.doc.Animations[trackIndex]
			if len(na.Translations.Times) > 0 {
				c.addAnimationChannel(animation, gltfNodeIndex, gltf.TRSTranslation,
					na.Translations.Times, "translations", gltf.AccessorVec3,
					vec3sToBytes(na.Translations.Values), len(na.Translations.Values))
			}
			if len(na.Rotations.Times) > 0 {
				c.addAnimationChannel(animation, gltfNodeIndex, gltf.TRSRotation,
					na.Rotations.Times, "rotations", gltf.AccessorVec4,
					quatsToBytes(na.Rotations.Values), len(na.Rotations.Values))
			}
			if len(na.Scales.Times) > 0 {
				c.addAnimationChannel(animation, gltfNodeIndex, gltf.TRSScale,
					na.Scales.Times, "scales", gltf.AccessorVec3,
					vec3sToBytes(na.Scales.Values), len(na.Scales.Values))
			}
		}
	}
}

// addAnimationChannel writes one LINEAR sampler/channel pair with its
// time and value accessors.
func (c *exportContext) addAnimationChannel(animation *gltf.Animation, targetNode int,
	path gltf.TRSProperty, times []float32, valuesName string, valuesType gltf.AccessorType,
	valuesData []byte, valueCount int) {

	timeAccessor := c.addAccessor("times", 0, gltf.AccessorScalar, gltf.ComponentFloat,
		len(times), floatsToBytes(times), true)
	valuesAccessor := c.addAccessor(valuesName, 0, valuesType, gltf.ComponentFloat,
		valueCount, valuesData, false)
	if timeAccessor < 0 || valuesAccessor < 0 {
		return
	}
	samplerIndex := len(animation.Samplers)
	animation.Samplers = append(animation.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(uint32(timeAccessor)),
		Output:        gltf.Index(uint32(valuesAccessor)),
		Interpolation: gltf.InterpolationLinear,
	})
	animation.Channels = append(animation.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(samplerIndex)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(uint32(targetNode)),
			Path: path,
		},
	})
}
