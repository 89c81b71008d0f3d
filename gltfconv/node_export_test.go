package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func TestExportOffsetNode(t *testing.T) {
	sc := scene.NewScene()
	c := newTestExportContext(sc)
	assert.Equal(t, -1, c.exportOffsetNode())

	sc.UpAxis = scene.UpAxisZ
	c = newTestExportContext(sc)
	index := c.exportOffsetNode()
	require.NotEqual(t, -1, index)
	gn := c.doc.Nodes[index]
	assert.Equal(t, "correctionNode", gn.Name)
	assert.InDelta(t, -0.7071068, gn.Rotation[0], 1e-6)
	assert.InDelta(t, 0.7071068, gn.Rotation[3], 1e-6)
	assert.Equal(t, [3]float32{}, gn.Scale)

	sc.UpAxis = scene.UpAxisY
	sc.MetersPerUnit = 0.01
	c = newTestExportContext(sc)
	index = c.exportOffsetNode()
	require.NotEqual(t, -1, index)
	gn = c.doc.Nodes[index]
	assert.Equal(t, [4]float32{}, gn.Rotation)
	assert.InDelta(t, 0.01, gn.Scale[0], 1e-6)
}

func TestDecomposeTransform(t *testing.T) {
	m := mgl64.Translate3D(1, 2, 3).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(90))).
		Mul4(mgl64.Scale3D(2, 3, 4))

	translation, rotation, scale := decomposeTransform(m)
	assert.InDelta(t, 1, translation[0], 1e-6)
	assert.InDelta(t, 2, translation[1], 1e-6)
	assert.InDelta(t, 3, translation[2], 1e-6)
	assert.InDelta(t, 2, scale[0], 1e-6)
	assert.InDelta(t, 3, scale[1], 1e-6)
	assert.InDelta(t, 4, scale[2], 1e-6)
	// 90 degrees around Y is (0, sin45, 0, cos45).
	assert.InDelta(t, 0, rotation[0], 1e-6)
	assert.InDelta(t, 0.7071068, rotation[1], 1e-6)
	assert.InDelta(t, 0, rotation[2], 1e-6)
	assert.InDelta(t, 0.7071068, rotation[3], 1e-6)
}

func TestExportNodeMatrixVsTRS(t *testing.T) {
	sc := scene.NewScene()
	nodeIndex, n := sc.AddNode()
	n.Name = "static"
	n.HasTransform = true
	n.Transform = mgl64.Translate3D(5, 0, 0)
	sc.RootNodes = append(sc.RootNodes, nodeIndex)

	c := newTestExportContext(sc)
	c.exportNode(nodeIndex, 0)
	gn := c.doc.Nodes[0]
	assert.InDelta(t, 5, gn.Matrix[12], 1e-6)
	assert.Equal(t, [3]float32{}, gn.Translation)

	// An animated node must carry TRS instead of a matrix.
	sc.HasAnimations = true
	sc.AnimationTracks = []scene.AnimationTrack{{Name: "take"}}
	n = &sc.Nodes[nodeIndex]
	n.Animations = []scene.NodeAnimation{{
		Translations: scene.TimeValuesVec3{
			Times:  []float32{0, 1},
			Values: []mgl32.Vec3{{5, 0, 0}, {6, 0, 0}},
		},
	}}

	c = newTestExportContext(sc)
	c.exportAnimationTracks()
	c.exportNode(nodeIndex, 0)
	gn = c.doc.Nodes[0]
	assert.Equal(t, [16]float32{}, gn.Matrix)
	assert.InDelta(t, 5, gn.Translation[0], 1e-6)
	require.Len(t, c.doc.Animations, 1)
	require.Len(t, c.doc.Animations[0].Channels, 1)
	channel := c.doc.Animations[0].Channels[0]
	assert.EqualValues(t, 0, *channel.Target.Node)
}

func TestExportNodeMeshInstancing(t *testing.T) {
	sc := scene.NewScene()
	meshIndex, mesh := sc.AddMesh()
	mesh.Points = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh.Indices = []int{0, 1, 2}

	aIndex, a := sc.AddNode()
	a.Name = "a"
	a.StaticMeshes = []int{meshIndex}
	bIndex, b := sc.AddNode()
	b.Name = "b"
	b.StaticMeshes = []int{meshIndex}
	sc.RootNodes = []int{aIndex, bIndex}

	c := newTestExportContext(sc)
	c.exportMeshes()
	c.exportNode(aIndex, 0)
	c.exportNode(bIndex, 0)

	require.NotNil(t, c.doc.Nodes[0].Mesh)
	require.NotNil(t, c.doc.Nodes[1].Mesh)
	assert.Equal(t, *c.doc.Nodes[0].Mesh, *c.doc.Nodes[1].Mesh)
	assert.Len(t, c.doc.Meshes, 1)
}

func TestExportCamera(t *testing.T) {
	sc := scene.NewScene()
	camIndex, cam := sc.AddCamera()
	cam.Name = "persp"
	cam.Projection = scene.ProjectionPerspective
	cam.HorizontalAperture = 36
	cam.VerticalAperture = 24
	cam.FocalLength = 50
	cam.NearZ = 0.1
	cam.FarZ = 1000

	c := newTestExportContext(sc)
	index := c.exportCamera(camIndex)
	gc := c.doc.Cameras[index]
	require.NotNil(t, gc.Perspective)
	assert.InDelta(t, 1.5, *gc.Perspective.AspectRatio, 1e-6)
	// yfov = 2*atan(24 / (2*50))
	assert.InDelta(t, 0.4734836, gc.Perspective.Yfov, 1e-5)

	orthoIndex, ortho := sc.AddCamera()
	ortho.Projection = scene.ProjectionOrthographic
	ortho.HorizontalAperture = 20
	ortho.VerticalAperture = 10
	index = c.exportCamera(orthoIndex)
	gc = c.doc.Cameras[index]
	require.NotNil(t, gc.Orthographic)
	assert.InDelta(t, 2, gc.Orthographic.Xmag, 1e-6)
	assert.InDelta(t, 1, gc.Orthographic.Ymag, 1e-6)
}
