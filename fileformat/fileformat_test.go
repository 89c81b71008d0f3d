package fileformat

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func triangleScene() *scene.Scene {
	sc := scene.NewScene()
	meshIndex, mesh := sc.AddMesh()
	mesh.Name = "tri"
	mesh.Points = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	mesh.Faces = []int{3}
	mesh.Indices = []int{0, 1, 2}

	nodeIndex, n := sc.AddNode()
	n.Name = "tri"
	n.StaticMeshes = []int{meshIndex}
	sc.RootNodes = []int{nodeIndex}
	return sc
}

func TestInitData(t *testing.T) {
	args := InitData(map[string]string{
		"gltfAssetsPath":      "/tmp/assets",
		"writeMaterialX":      "true",
		"gltfAnimationTracks": "1",
		"unknown":             "x",
	})
	assert.Equal(t, "/tmp/assets", args.AssetsPath)
	assert.True(t, args.WriteMaterialX)
	assert.True(t, args.AnimationTracks)

	args = InitData(map[string]string{"writeMaterialX": "nonsense"})
	assert.False(t, args.WriteMaterialX)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".gltf", ".glb"} {
		t.Run(ext, func(t *testing.T) {
			target := filepath.Join(dir, "tri"+ext)
			require.NoError(t, WriteToFile(triangleScene(), target, Args{}, DefaultWriteArgs()))

			assert.True(t, CanRead(target))
			sc, err := Read(target, false, Args{})
			require.NoError(t, err)
			require.Len(t, sc.Meshes, 1)
			assert.Len(t, sc.Meshes[0].Points, 3)
			assert.Equal(t, []int{0, 1, 2}, sc.Meshes[0].Indices)
		})
	}
}

func TestReadMetadataOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "tri.glb")
	require.NoError(t, WriteToFile(triangleScene(), target, Args{}, DefaultWriteArgs()))

	sc, err := Read(target, true, Args{})
	require.NoError(t, err)
	assert.Empty(t, sc.Meshes)
	assert.Contains(t, sc.Metadata["filenames"], "tri.glb")
}
