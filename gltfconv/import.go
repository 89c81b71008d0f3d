package gltfconv

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

// Import translates a parsed glTF document into a scene. filename is
// only recorded in the scene metadata; external resources resolve
// against opts.BaseDir.
func Import(doc *gltf.Document, filename string, opts ImportOptions) (*scene.Scene, error) {
	c := newImportContext(doc, scene.NewScene(), opts)
	c.checkExtensions()

	// glTF defines time in seconds.
	c.scene.Doc = "gltf"
	c.scene.UpAxis = scene.UpAxisY
	c.scene.MetersPerUnit = 1.0
	c.scene.TimeCodesPerSecond = 1.0

	if err := c.importMetadata(filename); err != nil {
		return nil, err
	}
	c.importCameras()

	if !opts.MetadataOnly {
		if err := c.importMaterials(); err != nil {
			return nil, err
		}
		if err := c.importMeshes(); err != nil {
			return nil, err
		}
		// Skeleton slots are reserved up front so that the node
		// traversal can attach skinning targets.
		c.scene.Skeletons = make([]scene.Skeleton, len(doc.Skins))
		for i := range c.scene.Skeletons {
			c.scene.Skeletons[i].Parent = -1
		}
		c.importNodes()
		c.importSkeletons()
		c.importAnimationTracks()
		c.importNodeAnimations()
		c.importSkeletonAnimations()
		c.aggregateTimeline()
	}

	return c.scene, nil
}

// aggregateTimeline folds the per-track ranges into the scene range.
func (c *importContext) aggregateTimeline() {
	if !c.scene.HasAnimations {
		return
	}
	c.scene.MinTime = math.MaxInt32
	for i := range c.scene.AnimationTracks {
		track := &c.scene.AnimationTracks[i]
		if !track.HasTimepoints {
			continue
		}
		if track.MinTime < c.scene.MinTime {
			c.scene.MinTime = track.MinTime
		}
		if track.MaxTime > c.scene.MaxTime {
			c.scene.MaxTime = track.MaxTime
		}
	}
}

// importMetadata validates the asset header and surfaces its metadata
// strings. The list of consumed files (the document itself plus every
// external buffer) is recorded for host-side dependency tracking.
func (c *importContext) importMetadata(filename string) error {
	version, err := strconv.ParseFloat(strings.TrimSpace(c.doc.Asset.Version), 64)
	if err != nil {
		return errors.Wrapf(err, "invalid asset version %q", c.doc.Asset.Version)
	}
	if version < 2.0 {
		return errors.Errorf("unsupported asset version %q", c.doc.Asset.Version)
	}

	if extras, ok := c.doc.Asset.Extras.(map[string]interface{}); ok {
		for k, v := range extras {
			if s, ok := v.(string); ok {
				c.scene.Metadata[k] = s
			}
		}
	}
	// generator may arrive both on the asset and in extras; either way
	// it is replaced with our own on the next write.
	c.scene.Metadata["generator"] = "gltfbridge 1.0"
	if c.doc.Asset.Copyright != "" {
		c.scene.Metadata["copyright"] = c.doc.Asset.Copyright
	}

	filenames := []string{filepath.Base(filename)}
	for _, buffer := range c.doc.Buffers {
		if buffer.URI != "" && !strings.HasPrefix(buffer.URI, "data:") {
			filenames = append(filenames, buffer.URI)
		}
	}
	c.scene.Metadata["filenames"] = strings.Join(filenames, ";")
	return nil
}

// 35mm film back width, the aperture basis for FOV derivation.
const defaultHorizontalAperture = 36.0

func (c *importContext) importCameras() {
	for _, gc := range c.doc.Cameras {
		_, cam := c.scene.AddCamera()
		cam.Name = gc.Name

		if gc.Perspective != nil {
			p := gc.Perspective
			aspect := float32(1)
			if p.AspectRatio != nil && *p.AspectRatio != 0 {
				aspect = *p.AspectRatio
			}
			cam.Projection = scene.ProjectionPerspective
			cam.HorizontalAperture = defaultHorizontalAperture
			cam.VerticalAperture = defaultHorizontalAperture / aspect
			cam.FocalLength = cam.VerticalAperture / (2 * float32(math.Tan(float64(p.Yfov)/2)))
			cam.NearZ = p.Znear
			cam.FarZ = f32Or(p.Zfar, 1e6)
			cam.FOV = p.Yfov
			cam.AspectRatio = aspect
		} else if gc.Orthographic != nil {
			o := gc.Orthographic
			aspect := float32(1)
			if o.Ymag != 0 {
				aspect = o.Xmag / o.Ymag
			}
			cam.Projection = scene.ProjectionOrthographic
			// Orthographic apertures carry the view extent in tenths
			// of scene units.
			cam.HorizontalAperture = o.Xmag * 10
			cam.VerticalAperture = cam.HorizontalAperture / aspect
			cam.FocalLength = 50
			cam.NearZ = o.Znear
			cam.FarZ = o.Zfar
			cam.FOV = 36
			cam.AspectRatio = aspect
		}
	}
}
