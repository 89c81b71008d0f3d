package scene

type Projection string

const (
	ProjectionPerspective  Projection = "perspective"
	ProjectionOrthographic Projection = "orthographic"
)

// Camera parameters follow a 35mm film back: focal length and apertures
// are in millimeters, clip distances in scene units, FOV in radians.
type Camera struct {
	Name       string
	Projection Projection

	FocalLength        float32
	HorizontalAperture float32
	VerticalAperture   float32

	NearZ       float32
	FarZ        float32
	FOV         float32
	AspectRatio float32
}
