package gltfconv

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

const maxJointWeightSets = 8

// primitiveAttribute resolves an attribute accessor, -1 when absent.
func primitiveAttribute(primitive *gltf.Primitive, name string) int {
	if accessor, ok := primitive.Attributes[name]; ok {
		return int(accessor)
	}
	return -1
}

// readIndices reads the index accessor, or synthesizes sequential
// indices for non-indexed primitives.
func (c *importContext) readIndices(primitive *gltf.Primitive, vertexCount int) []int {
	if primitive.Indices != nil {
		indices := make([]int, AccessorElementCount(c.doc, int(*primitive.Indices)))
		if err := ReadAccessorInts(c.doc, int(*primitive.Indices), indices); err != nil {
			c.warnf("cannot read indices: %v", err)
		}
		return indices
	}
	indices := make([]int, vertexCount)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func (c *importContext) readVec3Attribute(accessorIndex int) []mgl32.Vec3 {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	flat := make([]float32, count*3)
	if err := ReadAccessorFloats(c.doc, accessorIndex, flat); err != nil {
		c.warnf("cannot read vec3 attribute: %v", err)
		return nil
	}
	out := make([]mgl32.Vec3, count)
	for i := range out {
		out[i] = mgl32.Vec3{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out
}

func (c *importContext) readVec2Attribute(accessorIndex int) []mgl32.Vec2 {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	flat := make([]float32, count*2)
	if err := ReadAccessorFloats(c.doc, accessorIndex, flat); err != nil {
		c.warnf("cannot read vec2 attribute: %v", err)
		return nil
	}
	out := make([]mgl32.Vec2, count)
	for i := range out {
		out[i] = mgl32.Vec2{flat[i*2], flat[i*2+1]}
	}
	return out
}

func (c *importContext) readVec4Attribute(accessorIndex int) []mgl32.Vec4 {
	count := AccessorElementCount(c.doc, accessorIndex)
	if count == 0 {
		return nil
	}
	flat := make([]float32, count*4)
	if err := ReadAccessorFloats(c.doc, accessorIndex, flat); err != nil {
		c.warnf("cannot read vec4 attribute: %v", err)
		return nil
	}
	out := make([]mgl32.Vec4, count)
	for i := range out {
		out[i] = mgl32.Vec4{flat[i*4], flat[i*4+1], flat[i*4+2], flat[i*4+3]}
	}
	return out
}

// triangulateStrip re-indexes a triangle strip into independent
// triangles, flipping winding on odd triangles.
func triangulateStrip(strip []int) []int {
	if len(strip) < 3 {
		return nil
	}
	out := make([]int, 0, 3*(len(strip)-2))
	for i := 0; i < len(strip)-2; i++ {
		out = append(out, strip[i], strip[i+1+(i%2)], strip[i+2-(i%2)])
	}
	return out
}

// triangulateFan re-indexes a triangle fan around its first vertex.
func triangulateFan(fan []int) []int {
	if len(fan) < 3 {
		return nil
	}
	out := make([]int, 0, 3*(len(fan)-2))
	for i := 0; i < len(fan)-2; i++ {
		out = append(out, fan[i+1], fan[i+2], fan[0])
	}
	return out
}

// importMeshes converts every primitive of every glTF mesh into its
// own scene mesh. The per-glTF-mesh grouping survives in c.meshes so
// node binding can attach all primitives.
func (c *importContext) importMeshes() error {
	for i, gmesh := range c.doc.Meshes {
		sceneMeshes := make([]int, len(gmesh.Primitives))
		for j, primitive := range gmesh.Primitives {
			meshIndex, mesh := c.scene.AddMesh()
			sceneMeshes[j] = meshIndex
			mesh.Name = gmesh.Name
			mesh.Instanceable = true

			c.importPrimitive(primitive, meshIndex, mesh)
		}
		c.meshes[i] = sceneMeshes
	}
	return nil
}

func (c *importContext) importPrimitive(primitive *gltf.Primitive, meshIndex int, mesh *scene.Mesh) {
	mesh.Points = c.readVec3Attribute(primitiveAttribute(primitive, "POSITION"))

	if normals := c.readVec3Attribute(primitiveAttribute(primitive, "NORMAL")); normals != nil {
		mesh.Normals = scene.PrimvarVec3{Interpolation: scene.InterpolationVertex, Values: normals}
	}
	if tangents := c.readVec4Attribute(primitiveAttribute(primitive, "TANGENT")); tangents != nil {
		mesh.Tangents = scene.PrimvarVec4{Interpolation: scene.InterpolationVertex, Values: tangents}
	}
	if uvs := c.readVec2Attribute(primitiveAttribute(primitive, "TEXCOORD_0")); uvs != nil {
		mesh.UVs = scene.PrimvarVec2{Interpolation: scene.InterpolationVertex, Values: uvs}
		for n := 1; ; n++ {
			extraIndex := primitiveAttribute(primitive, fmt.Sprintf("TEXCOORD_%d", n))
			if extraIndex < 0 {
				break
			}
			extra := c.readVec2Attribute(extraIndex)
			mesh.ExtraUVSets = append(mesh.ExtraUVSets,
				scene.PrimvarVec2{Interpolation: scene.InterpolationVertex, Values: extra})
		}
	}

	raw := c.readIndices(primitive, len(mesh.Points))
	switch primitive.Mode {
	case gltf.PrimitiveTriangles:
		if len(raw) < 3 {
			c.warnf("triangle primitive has fewer than 3 indices")
		} else if len(raw)%3 != 0 {
			c.warnf("triangle primitive index count %d not divisible by 3", len(raw))
		}
		mesh.Indices = raw
	case gltf.PrimitiveTriangleStrip:
		if mesh.Indices = triangulateStrip(raw); mesh.Indices == nil {
			c.warnf("triangle strip primitive has fewer than 3 indices")
		}
	case gltf.PrimitiveTriangleFan:
		if mesh.Indices = triangulateFan(raw); mesh.Indices == nil {
			c.warnf("triangle fan primitive has fewer than 3 indices")
		}
	default:
		c.warnf("primitive mode %d is not supported, treating as triangles", primitive.Mode)
		mesh.Indices = raw
	}

	mesh.Faces = make([]int, len(mesh.Indices)/3)
	for i := range mesh.Faces {
		mesh.Faces[i] = 3
	}

	c.importJointWeights(primitive, mesh)
	c.importVertexColors(primitive, meshIndex)

	if primitive.Material != nil {
		mesh.Material = int(*primitive.Material)
		mesh.DoubleSided = c.doc.Materials[*primitive.Material].DoubleSided
	}
}

// importJointWeights reads up to eight JOINTS_n/WEIGHTS_n attribute
// pairs into the flat per-vertex influence arrays.
func (c *importContext) importJointWeights(primitive *gltf.Primitive, mesh *scene.Mesh) {
	var jointsIndices, weightsIndices [maxJointWeightSets]int
	jointsIndices[0] = primitiveAttribute(primitive, "JOINTS_0")
	weightsIndices[0] = primitiveAttribute(primitive, "WEIGHTS_0")
	if jointsIndices[0] < 0 && weightsIndices[0] < 0 {
		return
	}

	numSets := 1
	for i := 1; i < maxJointWeightSets; i++ {
		jointsIndices[i] = primitiveAttribute(primitive, fmt.Sprintf("JOINTS_%d", i))
		weightsIndices[i] = primitiveAttribute(primitive, fmt.Sprintf("WEIGHTS_%d", i))
		if jointsIndices[i] < 0 {
			break
		}
		numSets++
	}

	vertexCount := AccessorElementCount(c.doc, jointsIndices[0])
	if vertexCount == 0 {
		return
	}
	for i := 0; i < numSets; i++ {
		jointCount := AccessorElementCount(c.doc, jointsIndices[i])
		weightCount := AccessorElementCount(c.doc, weightsIndices[i])
		if jointCount != weightCount || jointCount != vertexCount {
			c.warnf("mismatched joint and weight counts for mesh %q, dropping skinning", mesh.Name)
			return
		}
	}

	mesh.Joints = make([]int, vertexCount*numSets*4)
	mesh.Weights = make([]float32, vertexCount*numSets*4)

	if numSets == 1 {
		if err := ReadAccessorInts(c.doc, jointsIndices[0], mesh.Joints); err != nil {
			c.warnf("cannot read joints: %v", err)
		}
		if err := ReadAccessorFloats(c.doc, weightsIndices[0], mesh.Weights); err != nil {
			c.warnf("cannot read weights: %v", err)
		}
	} else {
		// Interleave the sets so each vertex carries numSets*4
		// contiguous influences.
		for i := 0; i < numSets; i++ {
			joints := make([]int, vertexCount*4)
			weights := make([]float32, vertexCount*4)
			if err := ReadAccessorInts(c.doc, jointsIndices[i], joints); err != nil {
				c.warnf("cannot read joints set %d: %v", i, err)
			}
			if err := ReadAccessorFloats(c.doc, weightsIndices[i], weights); err != nil {
				c.warnf("cannot read weights set %d: %v", i, err)
			}
			for v := 0; v < vertexCount; v++ {
				copy(mesh.Joints[(v*numSets+i)*4:], joints[v*4:(v+1)*4])
				copy(mesh.Weights[(v*numSets+i)*4:], weights[v*4:(v+1)*4])
			}
		}
	}
	mesh.InfluenceCount = numSets * 4
}

// importVertexColors reads COLOR_0 into a color set plus, for vec4
// sources, an opacity set.
func (c *importContext) importVertexColors(primitive *gltf.Primitive, meshIndex int) {
	colorsIndex := primitiveAttribute(primitive, "COLOR_0")
	if !accessorValid(c.doc, colorsIndex) {
		return
	}
	accessor := c.doc.Accessors[colorsIndex]
	count := int(accessor.Count)
	if count == 0 {
		return
	}
	if !accessor.Normalized && accessor.ComponentType != gltf.ComponentFloat {
		c.warnf("COLOR_0 has non-normalized integer components, colors may be wrong")
	}

	switch accessor.Type {
	case gltf.AccessorVec4:
		flat := make([]float32, count*4)
		if err := ReadAccessorFloats(c.doc, colorsIndex, flat); err != nil {
			c.warnf("cannot read COLOR_0: %v", err)
			return
		}
		colors := make([]mgl32.Vec3, count)
		opacities := make([]float32, count)
		for i := 0; i < count; i++ {
			colors[i] = mgl32.Vec3{flat[i*4], flat[i*4+1], flat[i*4+2]}
			opacities[i] = flat[i*4+3]
		}
		_, colorSet := c.scene.AddColorSet(meshIndex)
		colorSet.Interpolation = scene.InterpolationVertex
		colorSet.Values = colors
		_, opacitySet := c.scene.AddOpacitySet(meshIndex)
		opacitySet.Interpolation = scene.InterpolationVertex
		opacitySet.Values = opacities
	case gltf.AccessorVec3:
		colors := c.readVec3Attribute(colorsIndex)
		if colors == nil {
			return
		}
		_, colorSet := c.scene.AddColorSet(meshIndex)
		colorSet.Interpolation = scene.InterpolationVertex
		colorSet.Values = colors
	default:
		c.warnf("unhandled COLOR_0 accessor type %s", accessor.Type)
	}
}
