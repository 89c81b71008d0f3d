package gltfconv

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"

	"github.com/mogaika/gltfbridge/scene"
)

func TestSubsurfaceExtensionNames(t *testing.T) {
	// Both the current and the legacy name carry the same payload and
	// neither should trip the unhandled-extension warning.
	for _, name := range []string{extSubsurface, extSubsurfaceLegacy} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, handledExtensions[name])

			c := newImportContext(gltf.NewDocument(), scene.NewScene(), ImportOptions{})
			gm := &gltf.Material{Extensions: gltf.Extensions{
				name: map[string]interface{}{
					"scatterDistance": 0.25,
					"scatterColor":    []interface{}{0.5, 0.25, 0.125},
				},
			}}
			_, m := c.scene.AddMaterial()
			c.importMaterialExtensions(gm, m)

			assert.InDelta(t, 0.25, m.ScatteringDistance.Value.FloatOr(0), 1e-6)
			assert.Equal(t, mgl32.Vec3{0.5, 0.25, 0.125},
				m.ScatteringColor.Value.Vec3Or(mgl32.Vec3{}))
		})
	}
}

func TestCheckExtensionsIgnoresHandled(t *testing.T) {
	c := newImportContext(gltf.NewDocument(), scene.NewScene(), ImportOptions{})
	c.doc.ExtensionsUsed = []string{extSubsurface, extTransmission, "VENDOR_custom_thing"}
	c.checkExtensions()
	assert.Equal(t, map[string]bool{"VENDOR_custom_thing": true}, c.warnedExtensions)
}
