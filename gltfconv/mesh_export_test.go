package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func newTestExportContext(sc *scene.Scene) *exportContext {
	return newExportContext(gltf.NewDocument(), sc, ExportOptions{
		EmbedImages:           true,
		UseMaterialExtensions: true,
	})
}

func TestTriangleIndices(t *testing.T) {
	for _, c := range []struct {
		name    string
		faces   []int
		indices []int
		want    []uint32
	}{
		{"passthrough", nil, []int{0, 1, 2, 2, 1, 3}, []uint32{0, 1, 2, 2, 1, 3}},
		{"triangles", []int{3, 3}, []int{0, 1, 2, 2, 1, 3}, []uint32{0, 1, 2, 2, 1, 3}},
		{"quad fan", []int{4}, []int{0, 1, 2, 3}, []uint32{0, 1, 2, 0, 2, 3}},
		{"pentagon fan", []int{5}, []int{4, 5, 6, 7, 8},
			[]uint32{4, 5, 6, 4, 6, 7, 4, 7, 8}},
		{"mixed", []int{3, 4}, []int{0, 1, 2, 3, 4, 5, 6},
			[]uint32{0, 1, 2, 3, 4, 5, 3, 5, 6}},
	} {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, triangleIndices(c.faces, c.indices))
		})
	}
}

func TestBakedMeshGeometry(t *testing.T) {
	mesh := &scene.Mesh{
		Points:  []mgl32.Vec3{{1, 0, 0}},
		Normals: scene.PrimvarVec3{Values: []mgl32.Vec3{{0, 1, 0}}},
	}

	// Unset bind transform passes through.
	points, normals := bakedMeshGeometry(mesh)
	assert.Equal(t, mesh.Points, points)
	assert.Equal(t, mesh.Normals.Values, normals)

	mesh.GeomBindTransform = mgl64.Translate3D(0, 0, 5).Mul4(mgl64.Scale3D(2, 2, 2))
	points, normals = bakedMeshGeometry(mesh)
	assert.InDelta(t, 2, points[0][0], 1e-6)
	assert.InDelta(t, 5, points[0][2], 1e-6)
	// Normals renormalize after the inverse-transpose.
	assert.InDelta(t, 1, normals[0].Len(), 1e-6)
	assert.InDelta(t, 1, normals[0][1], 1e-6)
}

func TestVertexColorDataPacking(t *testing.T) {
	c := newTestExportContext(scene.NewScene())

	mesh := &scene.Mesh{
		Points: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}},
		Colors: []scene.PrimvarVec3{{Values: []mgl32.Vec3{{2, 0.5, -1}, {0, 1, 0}}}},
		Opacities: []scene.PrimvarFloat{
			{Values: []float32{0.25, 0.5}},
		},
	}
	colors, elements := c.vertexColorData(mesh)
	require.Equal(t, 4, elements)
	// Out-of-range components clamp to [0,1].
	assert.Equal(t, []float32{1, 0.5, 0, 0.25, 0, 1, 0, 0.5}, colors)

	mesh.Opacities = nil
	colors, elements = c.vertexColorData(mesh)
	require.Equal(t, 3, elements)
	assert.Len(t, colors, 6)

	mesh.Colors = nil
	mesh.Opacities = []scene.PrimvarFloat{{Values: []float32{0.75, 1}}}
	colors, elements = c.vertexColorData(mesh)
	require.Equal(t, 4, elements)
	assert.Equal(t, []float32{1, 1, 1, 0.75, 1, 1, 1, 1}, colors)

	// Non vertex-interpolated data is skipped.
	mesh.Opacities = []scene.PrimvarFloat{{Values: []float32{0.5}}}
	colors, elements = c.vertexColorData(mesh)
	assert.Nil(t, colors)
	assert.Zero(t, elements)
}

func TestJointWeightAccessorsDedupAndPad(t *testing.T) {
	sc := scene.NewScene()
	c := newTestExportContext(sc)

	mesh := &scene.Mesh{
		Joints:         []int{2, 2, 3, 0, 0, 0},
		Weights:        []float32{0.5, 0.25, 0.25, 1, 0, 0},
		InfluenceCount: 3,
	}
	joints, weights := c.jointWeightAccessors(mesh)
	require.Len(t, joints, 1)
	require.Len(t, weights, 1)

	indices := make([]int, 8)
	require.NoError(t, ReadAccessorInts(c.doc, joints[0], indices))
	weightValues := make([]float32, 8)
	require.NoError(t, ReadAccessorFloats(c.doc, weights[0], weightValues))

	// The duplicate joint 2 merges onto its first occurrence and the
	// fourth lane pads with zeros.
	assert.Equal(t, []int{2, 0, 3, 0, 0, 0, 0, 0}, indices)
	assert.Equal(t, []float32{0.75, 0, 0.25, 0, 1, 0, 0, 0}, weightValues)
}

func TestJointWeightAccessorsMultipleSets(t *testing.T) {
	sc := scene.NewScene()
	c := newTestExportContext(sc)

	mesh := &scene.Mesh{
		Joints:         []int{0, 1, 2, 3, 4, 5},
		Weights:        []float32{0.3, 0.2, 0.2, 0.1, 0.1, 0.1},
		InfluenceCount: 6,
	}
	joints, weights := c.jointWeightAccessors(mesh)
	require.Len(t, joints, 2)
	require.Len(t, weights, 2)

	second := make([]int, 4)
	require.NoError(t, ReadAccessorInts(c.doc, joints[1], second))
	assert.Equal(t, []int{4, 5, 0, 0}, second)
}

func TestExportMeshesSubsets(t *testing.T) {
	sc := scene.NewScene()
	meshIndex, mesh := sc.AddMesh()
	mesh.Points = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	mesh.Subsets = []scene.Subset{
		{Name: "a", Material: -1, Indices: []int{0, 1, 2}},
		{Name: "b", Material: -1, Indices: []int{2, 1, 3}},
	}

	c := newTestExportContext(sc)
	c.exportMeshes()

	require.Len(t, c.primitives[meshIndex], 2)
	for _, primitive := range c.primitives[meshIndex] {
		assert.Equal(t, gltf.PrimitiveTriangles, primitive.Mode)
		_, ok := primitive.Attributes["POSITION"]
		assert.True(t, ok)
		require.NotNil(t, primitive.Indices)
	}
}

func TestExportPrimitiveDoubleSided(t *testing.T) {
	sc := scene.NewScene()
	_, mesh := sc.AddMesh()
	mesh.Points = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh.Indices = []int{0, 1, 2}
	mesh.Material = 0
	mesh.DoubleSided = true

	sc.AddMaterial()
	c := newTestExportContext(sc)
	c.exportMaterials()
	c.exportMeshes()

	assert.True(t, c.doc.Materials[0].DoubleSided)
}
