package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/gltfbridge/scene"
)

func addCubeNode(sc *scene.Scene, name string) int {
	meshIndex, mesh := sc.AddMesh()
	mesh.Name = name
	mesh.Points = cubePoints()
	mesh.Faces = []int{4, 4, 4, 4, 4, 4}
	mesh.Indices = []int{
		0, 1, 3, 2, 4, 6, 7, 5,
		0, 4, 5, 1, 2, 3, 7, 6,
		0, 2, 6, 4, 1, 5, 7, 3,
	}

	nodeIndex, n := sc.AddNode()
	n.Name = name
	n.StaticMeshes = []int{meshIndex}
	sc.RootNodes = append(sc.RootNodes, nodeIndex)
	return nodeIndex
}

func cubePoints() []mgl32.Vec3 {
	points := make([]mgl32.Vec3, 0, 8)
	for i := 0; i < 8; i++ {
		points = append(points, mgl32.Vec3{
			float32(i & 1), float32(i >> 1 & 1), float32(i >> 2 & 1)})
	}
	return points
}

func TestExportDefaultScene(t *testing.T) {
	sc := scene.NewScene()
	addCubeNode(sc, "cube")

	doc, images, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)
	assert.Nil(t, images)

	assert.Equal(t, "gltfbridge 1.0", doc.Asset.Generator)
	require.Len(t, doc.Scenes, 1)
	// Y-up meter scene needs no correction node.
	require.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "cube", doc.Nodes[0].Name)
	require.NotNil(t, doc.Nodes[0].Mesh)
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Meshes[0].Primitives, 1)

	prim := doc.Meshes[0].Primitives[0]
	require.NotNil(t, prim.Indices)
	indexAccessor := doc.Accessors[*prim.Indices]
	assert.EqualValues(t, 36, indexAccessor.Count)
	positions, ok := prim.Attributes["POSITION"]
	require.True(t, ok)
	assert.EqualValues(t, 8, doc.Accessors[positions].Count)
}

func TestExportCorrectionNode(t *testing.T) {
	sc := scene.NewScene()
	sc.UpAxis = scene.UpAxisZ
	sc.MetersPerUnit = 0.01
	addCubeNode(sc, "cube")

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	holder := doc.Nodes[0]
	assert.Equal(t, "correctionNode", holder.Name)
	assert.InDelta(t, -0.7071068, holder.Rotation[0], 1e-6)
	assert.InDelta(t, 0.01, holder.Scale[0], 1e-6)
	// Scene references the holder; the cube shifts by one.
	assert.Equal(t, []uint32{0}, doc.Scenes[0].Nodes)
	assert.Equal(t, []uint32{1}, holder.Children)
	assert.Equal(t, "cube", doc.Nodes[1].Name)
}

func TestExportChildOffset(t *testing.T) {
	sc := scene.NewScene()
	sc.UpAxis = scene.UpAxisZ
	parentIndex := addCubeNode(sc, "parent")
	childIndex, child := sc.AddNode()
	child.Name = "child"
	child.Parent = parentIndex
	sc.Nodes[parentIndex].Children = append(sc.Nodes[parentIndex].Children, childIndex)

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	// correction=0, parent=1, child=2; the parent's child reference
	// carries the correction offset.
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, []uint32{2}, doc.Nodes[1].Children)
	assert.Equal(t, "child", doc.Nodes[2].Name)
}

func TestExportMetadataExtras(t *testing.T) {
	sc := scene.NewScene()
	sc.Metadata["copyright"] = "2026 nobody"
	sc.Metadata["generator"] = "somethingelse 9.9"
	sc.Metadata["filenames"] = "a.bin"
	sc.Metadata["hasAdobeProperties"] = "true"
	sc.Metadata["author"] = "me"

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	assert.Equal(t, "2026 nobody", doc.Asset.Copyright)
	assert.Equal(t, "gltfbridge 1.0", doc.Asset.Generator)
	extras, ok := doc.Asset.Extras.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"author": "me"}, extras)
}

func TestExportMetadataNoExtras(t *testing.T) {
	sc := scene.NewScene()
	sc.Metadata["generator"] = "somethingelse 9.9"

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)
	assert.Nil(t, doc.Asset.Extras)
}

func TestExportAnimationTrackReservation(t *testing.T) {
	sc := scene.NewScene()
	sc.HasAnimations = true
	sc.AnimationTracks = []scene.AnimationTrack{{Name: "walk"}, {Name: "run"}}

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)
	require.Len(t, doc.Animations, 2)
	assert.Equal(t, "walk", doc.Animations[0].Name)
	assert.Equal(t, "run", doc.Animations[1].Name)
}

func TestExportSkinnedMesh(t *testing.T) {
	sc := scene.NewScene()
	meshIndex, mesh := sc.AddMesh()
	mesh.Name = "skinned"
	mesh.Points = cubePoints()
	mesh.Faces = []int{4, 4, 4, 4, 4, 4}
	mesh.Indices = []int{
		0, 1, 3, 2, 4, 6, 7, 5,
		0, 4, 5, 1, 2, 3, 7, 6,
		0, 2, 6, 4, 1, 5, 7, 3,
	}
	mesh.InfluenceCount = 1
	mesh.Joints = []int{0, 0, 0, 0, 1, 1, 1, 1}
	mesh.Weights = []float32{1, 1, 1, 1, 1, 1, 1, 1}

	_, skel := sc.AddSkeleton()
	skel.Name = "rig"
	skel.Parent = -1
	skel.Joints = []string{"root", "root/tip"}
	skel.JointNames = []string{"root", "tip"}
	skel.JointParents = []int{-1, 0}
	skel.RestTransforms = []mgl64.Mat4{mgl64.Ident4(), mgl64.Translate3D(0, 1, 0)}
	skel.BindTransforms = []mgl64.Mat4{mgl64.Ident4(), mgl64.Translate3D(0, 1, 0)}
	skel.InverseBindTransforms = []mgl64.Mat4{mgl64.Ident4(), mgl64.Translate3D(0, -1, 0)}
	skel.MeshSkinningTargets = []int{meshIndex}

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true})
	require.NoError(t, err)

	require.Len(t, doc.Skins, 1)
	skin := doc.Skins[0]
	assert.Equal(t, []uint32{1, 2}, skin.Joints)
	require.NotNil(t, skin.Skeleton)
	assert.EqualValues(t, 1, *skin.Skeleton)
	require.NotNil(t, skin.InverseBindMatrices)
	ibm, err := ReadAccessorMat4s(doc, int(*skin.InverseBindMatrices))
	require.NoError(t, err)
	require.Len(t, ibm, 2)
	assert.InDelta(t, -1, ibm[1][13], 1e-6)

	// Skel holder + root + tip + skinned mesh node.
	require.Len(t, doc.Nodes, 4)
	assert.Equal(t, "Skel0", doc.Nodes[0].Name)
	assert.Equal(t, "root", doc.Nodes[1].Name)
	assert.Equal(t, "tip", doc.Nodes[2].Name)
	skinned := doc.Nodes[3]
	require.NotNil(t, skinned.Skin)
	assert.EqualValues(t, 0, *skinned.Skin)
	require.NotNil(t, skinned.Mesh)

	prim := doc.Meshes[*skinned.Mesh].Primitives[0]
	_, hasJoints := prim.Attributes["JOINTS_0"]
	_, hasWeights := prim.Attributes["WEIGHTS_0"]
	assert.True(t, hasJoints)
	assert.True(t, hasWeights)
}

func TestExportExtensionListSorted(t *testing.T) {
	sc := scene.NewScene()
	_, m := sc.AddMaterial()
	m.Name = "mat"
	m.IOR.Value = scene.FloatValue(1.2)
	m.Transmission.Value = scene.FloatValue(0.5)

	doc, _, err := Export(sc, ExportOptions{EmbedImages: true, UseMaterialExtensions: true})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ExtensionsUsed)
	assert.IsIncreasing(t, doc.ExtensionsUsed)
	assert.Contains(t, doc.ExtensionsUsed, "KHR_materials_ior")
	assert.Contains(t, doc.ExtensionsUsed, "KHR_materials_transmission")
}
