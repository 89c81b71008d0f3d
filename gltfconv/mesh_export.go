package gltfconv

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

// addAccessor is the tolerant wrapper for export: empty or failed
// accessors report -1 so optional attributes just stay absent.
func (c *exportContext) addAccessor(name string, target gltf.Target, typ gltf.AccessorType,
	comp gltf.ComponentType, elementCount int, src []byte, withRange bool) int {

	if elementCount == 0 {
		return -1
	}
	index, err := AddAccessor(c.doc, name, target, typ, comp, elementCount, src, withRange)
	if err != nil {
		c.warnf("failed to write accessor %q: %v", name, err)
		return -1
	}
	return index
}

func matIsZero(m mgl64.Mat4) bool {
	return m == (mgl64.Mat4{})
}

// bakedMeshGeometry applies the geometry bind transform to points and
// normals, leaving the stored mesh untouched.
func bakedMeshGeometry(mesh *scene.Mesh) ([]mgl32.Vec3, []mgl32.Vec3) {
	transform := mesh.GeomBindTransform
	if matIsZero(transform) || transform == mgl64.Ident4() {
		return mesh.Points, mesh.Normals.Values
	}
	points := make([]mgl32.Vec3, len(mesh.Points))
	for i, p := range mesh.Points {
		v := transform.Mul4x1(mgl64.Vec4{float64(p[0]), float64(p[1]), float64(p[2]), 1})
		points[i] = mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	normals := mesh.Normals.Values
	if len(normals) > 0 {
		normalTransform := transform.Inv().Transpose()
		out := make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			v := normalTransform.Mul4x1(mgl64.Vec4{float64(n[0]), float64(n[1]), float64(n[2]), 0})
			w := mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
			if l := w.Len(); l > 0 {
				w = w.Mul(1 / l)
			}
			out[i] = w
		}
		normals = out
	}
	return points, normals
}

// triangleIndices flattens polygon faces into triangle indices with a
// fan per face. Faces without face counts pass through unchanged.
func triangleIndices(faces, indices []int) []uint32 {
	allTriangles := true
	for _, n := range faces {
		if n != 3 {
			allTriangles = false
			break
		}
	}
	if len(faces) == 0 || allTriangles {
		out := make([]uint32, len(indices))
		for i, v := range indices {
			out[i] = uint32(v)
		}
		return out
	}
	var out []uint32
	offset := 0
	for _, n := range faces {
		for k := 2; k < n; k++ {
			out = append(out,
				uint32(indices[offset]),
				uint32(indices[offset+k-1]),
				uint32(indices[offset+k]))
		}
		offset += n
	}
	return out
}

// meshAccessors carries the shared attribute accessors of one mesh,
// reused by all of its primitives.
type meshAccessors struct {
	positions int
	normals   int
	tangents  int
	uvs       []int
	colors    int
	joints    []int
	weights   []int
}

func (c *exportContext) exportPrimitive(meshIndex int, mesh *scene.Mesh, indices []uint32,
	acc *meshAccessors, material int, isSubset bool) *gltf.Primitive {

	primitive := &gltf.Primitive{
		Mode:       gltf.PrimitiveTriangles,
		Attributes: make(map[string]uint32),
	}
	indicesAccessor := c.addAccessor("indices", gltf.TargetElementArrayBuffer,
		gltf.AccessorScalar, gltf.ComponentUint, len(indices), uint32sToBytes(indices), true)
	if indicesAccessor != -1 {
		primitive.Indices = gltf.Index(uint32(indicesAccessor))
	}
	if material != -1 {
		primitive.Material = gltf.Index(uint32(material))
	}
	if acc.positions != -1 {
		primitive.Attributes["POSITION"] = uint32(acc.positions)
	}
	if acc.normals != -1 {
		primitive.Attributes["NORMAL"] = uint32(acc.normals)
	}
	if acc.tangents != -1 {
		primitive.Attributes["TANGENT"] = uint32(acc.tangents)
	}
	for i, a := range acc.uvs {
		primitive.Attributes[fmt.Sprintf("TEXCOORD_%d", i)] = uint32(a)
	}
	if acc.colors != -1 {
		primitive.Attributes["COLOR_0"] = uint32(acc.colors)
	}
	for i, a := range acc.joints {
		primitive.Attributes[fmt.Sprintf("JOINTS_%d", i)] = uint32(a)
	}
	for i, a := range acc.weights {
		primitive.Attributes[fmt.Sprintf("WEIGHTS_%d", i)] = uint32(a)
	}

	// Several meshes can share a material while disagreeing on double
	// sidedness; the last writer wins rather than forking the material.
	if mesh.DoubleSided && material >= 0 && material < len(c.doc.Materials) {
		c.doc.Materials[material].DoubleSided = true
	}
	return primitive
}

// vertexColorData packs the first color and opacity primvars into the
// interleaved COLOR_0 layout. Returns the packed floats and the
// component count (3 or 4), or nil when nothing vertex-interpolated is
// available.
func (c *exportContext) vertexColorData(mesh *scene.Mesh) ([]float32, int) {
	var colorValues []mgl32.Vec3
	var opacityValues []float32
	if len(mesh.Colors) > 0 {
		colorValues = mesh.Colors[0].Values
	}
	if len(mesh.Opacities) > 0 {
		opacityValues = mesh.Opacities[0].Values
	}
	if len(colorValues) == 0 && len(opacityValues) == 0 {
		return nil, 0
	}
	numPoints := len(mesh.Points)

	var colors []float32
	elements := 0
	switch {
	case len(colorValues) == numPoints && len(opacityValues) == numPoints:
		elements = 4
		colors = make([]float32, numPoints*4)
		for i, color := range colorValues {
			colors[4*i+0] = color[0]
			colors[4*i+1] = color[1]
			colors[4*i+2] = color[2]
			colors[4*i+3] = opacityValues[i]
		}
	case len(colorValues) == numPoints:
		elements = 3
		colors = make([]float32, numPoints*3)
		for i, color := range colorValues {
			colors[3*i+0] = color[0]
			colors[3*i+1] = color[1]
			colors[3*i+2] = color[2]
		}
	case len(opacityValues) == numPoints:
		elements = 4
		colors = make([]float32, numPoints*4)
		for i, opacity := range opacityValues {
			colors[4*i+0] = 1
			colors[4*i+1] = 1
			colors[4*i+2] = 1
			colors[4*i+3] = opacity
		}
	default:
		// Constant, uniform or face-varying color primvars would need
		// vertex splitting to survive as glTF vertex colors.
		c.warnf("mesh %q: display color (%d values) or opacity (%d values) is not vertex "+
			"interpolated (%d points), skipping vertex colors",
			mesh.Name, len(colorValues), len(opacityValues), numPoints)
		return nil, 0
	}
	for i, f := range colors {
		if f < 0 {
			colors[i] = 0
		} else if f > 1 {
			colors[i] = 1
		}
	}
	return colors, elements
}

// jointWeightAccessors deduplicates and pads the flattened influence
// sets into VEC4 JOINTS_n/WEIGHTS_n accessor pairs.
func (c *exportContext) jointWeightAccessors(mesh *scene.Mesh) ([]int, []int) {
	if len(mesh.Joints) == 0 || mesh.InfluenceCount <= 0 {
		return nil, nil
	}
	pointCount := len(mesh.Joints) / mesh.InfluenceCount
	valuesPerVertex := mesh.InfluenceCount
	paddedValuesPerVertex := ((valuesPerVertex + 3) / 4) * 4

	jointIndicesValues := make([]uint16, pointCount*paddedValuesPerVertex)
	jointWeightsValues := make([]float32, pointCount*paddedValuesPerVertex)

	// A joint index can appear more than once in the influence set of
	// one vertex; merge the weights onto the first occurrence.
	for i := 0; i < pointCount; i++ {
		srcOffset := valuesPerVertex * i
		dstOffset := paddedValuesPerVertex * i
		for j := 0; j < valuesPerVertex; j++ {
			jointIndex := mesh.Joints[srcOffset+j]
			jointWeight := mesh.Weights[srcOffset+j]
			jointIndicesValues[dstOffset+j] = uint16(jointIndex)
			jointWeightsValues[dstOffset+j] = jointWeight
			if jointWeight > 0 {
				for jj := 0; jj < j; jj++ {
					if uint16(jointIndex) == jointIndicesValues[dstOffset+jj] {
						jointIndicesValues[dstOffset+j] = 0
						jointWeightsValues[dstOffset+j] = 0
						jointWeightsValues[dstOffset+jj] += jointWeight
						break
					}
				}
			}
		}
	}

	var jointsAccessors, weightsAccessors []int
	if paddedValuesPerVertex == 4 {
		jointsAccessors = append(jointsAccessors, c.addAccessor("jointIndices",
			gltf.TargetArrayBuffer, gltf.AccessorVec4, gltf.ComponentUshort,
			pointCount, uint16sToBytes(jointIndicesValues), false))
		weightsAccessors = append(weightsAccessors, c.addAccessor("jointWeights",
			gltf.TargetArrayBuffer, gltf.AccessorVec4, gltf.ComponentFloat,
			pointCount, floatsToBytes(jointWeightsValues), false))
		return jointsAccessors, weightsAccessors
	}

	jointIndices := make([]uint16, pointCount*4)
	jointWeights := make([]float32, pointCount*4)
	setCount := (mesh.InfluenceCount + 3) / 4
	for setID := 0; setID < setCount; setID++ {
		offset := setID * 4
		for i := 0; i < pointCount; i++ {
			k := paddedValuesPerVertex*i + offset
			copy(jointIndices[4*i:4*i+4], jointIndicesValues[k:k+4])
			copy(jointWeights[4*i:4*i+4], jointWeightsValues[k:k+4])
		}
		jointsAccessors = append(jointsAccessors, c.addAccessor(
			fmt.Sprintf("jointIndices_%d", setID),
			gltf.TargetArrayBuffer, gltf.AccessorVec4, gltf.ComponentUshort,
			pointCount, uint16sToBytes(jointIndices), false))
		weightsAccessors = append(weightsAccessors, c.addAccessor(
			fmt.Sprintf("jointWeights_%d", setID),
			gltf.TargetArrayBuffer, gltf.AccessorVec4, gltf.ComponentFloat,
			pointCount, floatsToBytes(jointWeights), false))
	}
	return jointsAccessors, weightsAccessors
}

// exportMeshes fills the per-mesh primitive cache; nodes later combine
// cached primitives into glTF meshes.
func (c *exportContext) exportMeshes() {
	for i := range c.scene.Meshes {
		mesh := &c.scene.Meshes[i]
		if len(mesh.Points) == 0 {
			continue
		}

		points, normals := bakedMeshGeometry(mesh)

		acc := meshAccessors{
			positions: c.addAccessor("positions", gltf.TargetArrayBuffer,
				gltf.AccessorVec3, gltf.ComponentFloat, len(points), vec3sToBytes(points), true),
			normals: c.addAccessor("normals", gltf.TargetArrayBuffer,
				gltf.AccessorVec3, gltf.ComponentFloat, len(normals), vec3sToBytes(normals), true),
			tangents: c.addAccessor("tangents", gltf.TargetArrayBuffer,
				gltf.AccessorVec4, gltf.ComponentFloat, len(mesh.Tangents.Values),
				vec4sToBytes(mesh.Tangents.Values), true),
			colors: -1,
		}

		if a := c.addAccessor("texCoords", gltf.TargetArrayBuffer,
			gltf.AccessorVec2, gltf.ComponentFloat, len(mesh.UVs.Values),
			vec2sToBytes(mesh.UVs.Values), true); a >= 0 {
			acc.uvs = append(acc.uvs, a)
		}
		extraUVs := 0
		for _, uvs := range mesh.ExtraUVSets {
			if a := c.addAccessor(fmt.Sprintf("texCoords%d", extraUVs+1),
				gltf.TargetArrayBuffer, gltf.AccessorVec2, gltf.ComponentFloat,
				len(uvs.Values), vec2sToBytes(uvs.Values), true); a >= 0 {
				acc.uvs = append(acc.uvs, a)
				extraUVs++
			}
		}

		if colors, elements := c.vertexColorData(mesh); elements > 0 {
			typ := gltf.AccessorVec4
			if elements == 3 {
				typ = gltf.AccessorVec3
			}
			acc.colors = c.addAccessor("color_0", gltf.TargetArrayBuffer,
				typ, gltf.ComponentFloat, len(colors)/elements, floatsToBytes(colors), true)
		}

		acc.joints, acc.weights = c.jointWeightAccessors(mesh)

		if len(mesh.Subsets) > 0 {
			for j := range mesh.Subsets {
				subset := &mesh.Subsets[j]
				c.primitives[i] = append(c.primitives[i], c.exportPrimitive(i, mesh,
					triangleIndices(nil, subset.Indices), &acc, subset.Material, true))
			}
		} else {
			c.primitives[i] = append(c.primitives[i], c.exportPrimitive(i, mesh,
				triangleIndices(mesh.Faces, mesh.Indices), &acc, mesh.Material, false))
		}
	}
}
