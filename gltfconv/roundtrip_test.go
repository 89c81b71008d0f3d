package gltfconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func TestRoundTripGeometry(t *testing.T) {
	src := scene.NewScene()
	src.Metadata["copyright"] = "2026 nobody"
	src.Metadata["author"] = "me"
	addCubeNode(src, "cube")

	doc, _, err := Export(src, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	dst, err := Import(doc, "cube.glb", ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, "gltf", dst.Doc)
	assert.Equal(t, scene.UpAxisY, dst.UpAxis)
	assert.Equal(t, "2026 nobody", dst.Metadata["copyright"])
	assert.Equal(t, "me", dst.Metadata["author"])
	assert.Equal(t, "cube.glb", dst.Metadata["filenames"])

	require.Len(t, dst.Meshes, 1)
	mesh := &dst.Meshes[0]
	assert.Len(t, mesh.Points, 8)
	assert.Len(t, mesh.Indices, 36)
	for _, faceSize := range mesh.Faces {
		assert.Equal(t, 3, faceSize)
	}

	found := false
	for i := range dst.Nodes {
		n := &dst.Nodes[i]
		if n.Name != "cube" {
			continue
		}
		found = true
		assert.Equal(t, []int{0}, n.StaticMeshes)
	}
	assert.True(t, found)
}

func TestRoundTripCamera(t *testing.T) {
	src := scene.NewScene()
	camIndex, cam := src.AddCamera()
	cam.Name = "persp"
	cam.Projection = scene.ProjectionPerspective
	cam.HorizontalAperture = 36
	cam.VerticalAperture = 24
	cam.FocalLength = 50
	cam.NearZ = 0.1
	cam.FarZ = 1000

	nodeIndex, n := src.AddNode()
	n.Name = "camNode"
	n.Camera = camIndex
	src.RootNodes = []int{nodeIndex}

	doc, _, err := Export(src, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	dst, err := Import(doc, "cam.gltf", ImportOptions{})
	require.NoError(t, err)

	require.Len(t, dst.Cameras, 1)
	got := &dst.Cameras[0]
	assert.Equal(t, scene.ProjectionPerspective, got.Projection)
	// Apertures are normalized onto a 35mm film back; the focal length
	// that reproduces the field of view survives the trip.
	assert.InDelta(t, 36, got.HorizontalAperture, 1e-3)
	assert.InDelta(t, 24, got.VerticalAperture, 1e-3)
	assert.InDelta(t, 50, got.FocalLength, 1e-2)
	assert.InDelta(t, 0.1, got.NearZ, 1e-6)
	assert.InDelta(t, 1000, got.FarZ, 1e-3)
}

func TestRoundTripMetadataOnly(t *testing.T) {
	src := scene.NewScene()
	addCubeNode(src, "cube")

	doc, _, err := Export(src, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	dst, err := Import(doc, "cube.glb", ImportOptions{MetadataOnly: true})
	require.NoError(t, err)
	assert.Empty(t, dst.Meshes)
	assert.Empty(t, dst.Nodes)
	assert.NotEmpty(t, dst.Metadata["filenames"])
}
