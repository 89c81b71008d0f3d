package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Channel string

const (
	ChannelR    Channel = "r"
	ChannelG    Channel = "g"
	ChannelB    Channel = "b"
	ChannelA    Channel = "a"
	ChannelRGB  Channel = "rgb"
	ChannelRGBA Channel = "rgba"
)

type Wrap string

const (
	WrapRepeat Wrap = "repeat"
	WrapClamp  Wrap = "clamp"
	WrapMirror Wrap = "mirror"
)

type Filter string

const (
	FilterNearest              Filter = "nearest"
	FilterLinear               Filter = "linear"
	FilterNearestMipmapNearest Filter = "nearestMipmapNearest"
	FilterLinearMipmapNearest  Filter = "linearMipmapNearest"
	FilterNearestMipmapLinear  Filter = "nearestMipmapLinear"
	FilterLinearMipmapLinear   Filter = "linearMipmapLinear"
)

type Colorspace string

const (
	ColorspaceSRGB Colorspace = "sRGB"
	ColorspaceRaw  Colorspace = "raw"
)

// Value is a small variant for shading inputs: empty, or a float vector
// of 1 to 4 components. It replaces the heterogeneous value type of the
// host representation with an explicit tagged record.
type Value struct {
	Dim  int
	Data mgl32.Vec4
}

func FloatValue(v float32) Value {
	return Value{Dim: 1, Data: mgl32.Vec4{v}}
}

func Vec2Value(v mgl32.Vec2) Value {
	return Value{Dim: 2, Data: mgl32.Vec4{v[0], v[1]}}
}

func Vec3Value(v mgl32.Vec3) Value {
	return Value{Dim: 3, Data: mgl32.Vec4{v[0], v[1], v[2]}}
}

func Vec4Value(v mgl32.Vec4) Value {
	return Value{Dim: 4, Data: v}
}

func (v Value) IsEmpty() bool { return v.Dim == 0 }

func (v Value) Float() (float32, bool) {
	if v.Dim != 1 {
		return 0, false
	}
	return v.Data[0], true
}

func (v Value) FloatOr(def float32) float32 {
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

func (v Value) Vec3() (mgl32.Vec3, bool) {
	if v.Dim != 3 {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{v.Data[0], v.Data[1], v.Data[2]}, true
}

func (v Value) Vec3Or(def mgl32.Vec3) mgl32.Vec3 {
	if w, ok := v.Vec3(); ok {
		return w
	}
	return def
}

func (v Value) Vec4() (mgl32.Vec4, bool) {
	if v.Dim != 4 {
		return mgl32.Vec4{}, false
	}
	return v.Data, true
}

func (v Value) Vec4Or(def mgl32.Vec4) mgl32.Vec4 {
	if w, ok := v.Vec4(); ok {
		return w
	}
	return def
}

// Input is one shading-network input: either a constant Value, a
// texture reference, or both (texture with scale/bias from factors).
type Input struct {
	Value Value

	Image      int
	UVIndex    int
	Channel    Channel
	WrapS      Wrap
	WrapT      Wrap
	MinFilter  Filter
	MagFilter  Filter
	Colorspace Colorspace

	Scale Value
	Bias  Value

	// UV transform in place2d terms: scale, then rotation (degrees),
	// then translation.
	TransformRotation    *float32
	TransformScale       *mgl32.Vec2
	TransformTranslation *mgl32.Vec2
}

func (in *Input) IsEmpty() bool {
	return in.Value.IsEmpty() && in.Image < 0
}

func (in *Input) HasTexture() bool { return in.Image >= 0 }

func newInput() Input {
	return Input{Image: -1}
}

// Material is the flat shading record: nullable inputs grouped by lobe.
type Material struct {
	Name string

	UseSpecularWorkflow Input

	DiffuseColor     Input
	EmissiveColor    Input
	Opacity          Input
	OpacityThreshold Input
	Normal           Input
	NormalScale      Input
	Occlusion        Input
	IOR              Input
	Displacement     Input

	Metallic        Input
	Roughness       Input
	SpecularLevel   Input
	SpecularColor   Input
	AnisotropyLevel Input
	AnisotropyAngle Input

	SheenColor     Input
	SheenRoughness Input

	Clearcoat          Input
	ClearcoatColor     Input
	ClearcoatRoughness Input
	ClearcoatIOR       Input
	ClearcoatSpecular  Input
	ClearcoatNormal    Input

	Transmission       Input
	VolumeThickness    Input
	AbsorptionDistance Input
	AbsorptionColor    Input

	ScatteringDistance Input
	ScatteringColor    Input

	IsUnlit bool

	// ClearcoatModelsTransmissionTint marks a clearcoat lobe that was
	// synthesized on import to emulate glTF's base-color transmission
	// tinting; export undoes the mapping instead of emitting both
	// lobes.
	ClearcoatModelsTransmissionTint bool
}

func NewMaterial() Material {
	return Material{
		UseSpecularWorkflow: newInput(),
		DiffuseColor:        newInput(),
		EmissiveColor:       newInput(),
		Opacity:             newInput(),
		OpacityThreshold:    newInput(),
		Normal:              newInput(),
		NormalScale:         newInput(),
		Occlusion:           newInput(),
		IOR:                 newInput(),
		Displacement:        newInput(),
		Metallic:            newInput(),
		Roughness:           newInput(),
		SpecularLevel:       newInput(),
		SpecularColor:       newInput(),
		AnisotropyLevel:     newInput(),
		AnisotropyAngle:     newInput(),
		SheenColor:          newInput(),
		SheenRoughness:      newInput(),
		Clearcoat:           newInput(),
		ClearcoatColor:      newInput(),
		ClearcoatRoughness:  newInput(),
		ClearcoatIOR:        newInput(),
		ClearcoatSpecular:   newInput(),
		ClearcoatNormal:     newInput(),
		Transmission:        newInput(),
		VolumeThickness:     newInput(),
		AbsorptionDistance:  newInput(),
		AbsorptionColor:     newInput(),
		ScatteringDistance:  newInput(),
		ScatteringColor:     newInput(),
	}
}

// EffectiveFloat resolves an input to a scalar: value when constant,
// scale (factor) when textured.
func (in *Input) EffectiveFloat(def float32) float32 {
	if in.HasTexture() {
		if s, ok := in.Scale.Float(); ok {
			return s
		}
		if s, ok := in.Scale.Vec4(); ok {
			return s[0]
		}
		return def
	}
	return in.Value.FloatOr(def)
}

// EffectiveVec3 resolves a color input to rgb: value when constant,
// scale when textured.
func (in *Input) EffectiveVec3(def mgl32.Vec3) mgl32.Vec3 {
	if in.HasTexture() {
		if s, ok := in.Scale.Vec4(); ok {
			return mgl32.Vec3{s[0], s[1], s[2]}
		}
		if s, ok := in.Scale.Vec3(); ok {
			return s
		}
		return def
	}
	if v, ok := in.Value.Vec3(); ok {
		return v
	}
	if v, ok := in.Value.Vec4(); ok {
		return mgl32.Vec3{v[0], v[1], v[2]}
	}
	return def
}
