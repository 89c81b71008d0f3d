// Package scene holds the file-format-neutral scene representation that
// the glTF translator reads into and writes out of. Every arena element
// is owned by the Scene; cross references are plain int indices and -1
// encodes absence.
package scene

type UpAxis string

const (
	UpAxisY UpAxis = "y"
	UpAxisZ UpAxis = "z"
)

type Scene struct {
	UpAxis             UpAxis
	MetersPerUnit      float64
	TimeCodesPerSecond float64

	Doc      string
	Metadata map[string]string

	HasAnimations bool
	MinTime       float32
	MaxTime       float32

	RootNodes []int

	Nodes           []Node
	Meshes          []Mesh
	Cameras         []Camera
	Images          []ImageAsset
	Materials       []Material
	Skeletons       []Skeleton
	Animations      []Animation
	AnimationTracks []AnimationTrack
	NGPs            []NGPData
}

func NewScene() *Scene {
	return &Scene{
		UpAxis:             UpAxisY,
		MetersPerUnit:      1.0,
		TimeCodesPerSecond: 24.0,
		Metadata:           make(map[string]string),
	}
}

func (s *Scene) AddNode() (int, *Node) {
	s.Nodes = append(s.Nodes, Node{
		Parent: -1,
		Camera: -1,
		NGP:    -1,
		Scale:  [3]float32{1, 1, 1},
	})
	return len(s.Nodes) - 1, &s.Nodes[len(s.Nodes)-1]
}

func (s *Scene) AddMesh() (int, *Mesh) {
	s.Meshes = append(s.Meshes, Mesh{
		Material:       -1,
		InfluenceCount: 1,
	})
	return len(s.Meshes) - 1, &s.Meshes[len(s.Meshes)-1]
}

func (s *Scene) AddCamera() (int, *Camera) {
	s.Cameras = append(s.Cameras, Camera{})
	return len(s.Cameras) - 1, &s.Cameras[len(s.Cameras)-1]
}

func (s *Scene) AddImage() (int, *ImageAsset) {
	s.Images = append(s.Images, ImageAsset{})
	return len(s.Images) - 1, &s.Images[len(s.Images)-1]
}

func (s *Scene) AddMaterial() (int, *Material) {
	s.Materials = append(s.Materials, NewMaterial())
	return len(s.Materials) - 1, &s.Materials[len(s.Materials)-1]
}

func (s *Scene) AddSkeleton() (int, *Skeleton) {
	s.Skeletons = append(s.Skeletons, Skeleton{Parent: -1})
	return len(s.Skeletons) - 1, &s.Skeletons[len(s.Skeletons)-1]
}

func (s *Scene) AddAnimation() (int, *Animation) {
	s.Animations = append(s.Animations, Animation{})
	return len(s.Animations) - 1, &s.Animations[len(s.Animations)-1]
}

func (s *Scene) AddNGP() (int, *NGPData) {
	s.NGPs = append(s.NGPs, NGPData{})
	return len(s.NGPs) - 1, &s.NGPs[len(s.NGPs)-1]
}

// AddColorSet appends a fresh vertex color primvar to the mesh and
// returns it. Kept on Scene to mirror the other arena constructors.
func (s *Scene) AddColorSet(meshIndex int) (int, *PrimvarVec3) {
	m := &s.Meshes[meshIndex]
	m.Colors = append(m.Colors, PrimvarVec3{})
	return len(m.Colors) - 1, &m.Colors[len(m.Colors)-1]
}

func (s *Scene) AddOpacitySet(meshIndex int) (int, *PrimvarFloat) {
	m := &s.Meshes[meshIndex]
	m.Opacities = append(m.Opacities, PrimvarFloat{})
	return len(m.Opacities) - 1, &m.Opacities[len(m.Opacities)-1]
}

// AnimationTrack names one glTF animation and carries its time range on
// the scene timeline.
type AnimationTrack struct {
	Name          string
	MinTime       float32
	MaxTime       float32
	HasTimepoints bool
}
