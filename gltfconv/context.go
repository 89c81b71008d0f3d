package gltfconv

import (
	"log"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/texproc"
)

// ImportOptions tune the glTF -> scene direction.
type ImportOptions struct {
	// MetadataOnly skips geometry, image and animation payloads and
	// fills only the asset-level metadata of the scene.
	MetadataOnly bool
	// AnimationTracks keeps every glTF animation as a separate track
	// instead of merging them onto one timeline.
	AnimationTracks bool
	// BaseDir resolves relative image URIs of .gltf documents.
	BaseDir string
}

// ExportOptions tune the scene -> glTF direction.
type ExportOptions struct {
	// Binary selects .glb container output.
	Binary bool
	// EmbedImages stores image payloads in the buffer instead of
	// writing them next to the document.
	EmbedImages bool
	// UseMaterialExtensions enables the KHR_materials_* family on
	// export; without it materials collapse onto core
	// pbrMetallicRoughness.
	UseMaterialExtensions bool
}

// importContext carries the per-conversion state of a glTF import.
type importContext struct {
	doc   *gltf.Document
	scene *scene.Scene
	opts  ImportOptions

	// glTF node index -> scene node index, and glTF parent lookup.
	nodeMap   map[int]int
	parentMap map[int]int

	// glTF mesh index -> scene mesh indices (one per primitive).
	meshes map[int][]int

	// glTF skin index -> scene skeleton index.
	skinMap map[int]int

	// glTF image index -> scene image index (-1 for undecodable).
	imageCache map[int]int
	// Already used scene image names, for uniqueness.
	imageNames map[string]bool

	// Derived-image caches keyed by generated image name.
	specGlossCache  map[string]int
	anisotropyCache map[string]int

	warnedExtensions map[string]bool
}

func newImportContext(doc *gltf.Document, sc *scene.Scene, opts ImportOptions) *importContext {
	return &importContext{
		doc:              doc,
		scene:            sc,
		opts:             opts,
		nodeMap:          make(map[int]int),
		parentMap:        make(map[int]int),
		meshes:           make(map[int][]int),
		skinMap:          make(map[int]int),
		imageCache:       make(map[int]int),
		imageNames:       make(map[string]bool),
		specGlossCache:   make(map[string]int),
		anisotropyCache:  make(map[string]int),
		warnedExtensions: make(map[string]bool),
	}
}

func (c *importContext) warnf(format string, args ...interface{}) {
	log.Printf("[gltf import] "+format, args...)
}

// warnExtensionOnce reports an unsupported extension a single time per
// conversion.
func (c *importContext) warnExtensionOnce(name string) {
	if c.warnedExtensions[name] {
		return
	}
	c.warnedExtensions[name] = true
	c.warnf("extension %q is not supported, ignoring", name)
}

// exportContext carries the per-conversion state of a glTF export.
type exportContext struct {
	doc   *gltf.Document
	scene *scene.Scene
	opts  ExportOptions

	// scene node index -> glTF node index.
	nodeMap map[int]int
	// scene mesh index (first of an instanceable group) -> glTF mesh.
	meshMap map[int]int
	// scene mesh index -> glTF primitives built for it.
	primitives [][]*gltf.Primitive
	// scene skeleton index -> glTF skin index.
	skinMap map[int]int

	usedExtensions     map[string]bool
	requiredExtensions map[string]bool

	// Source images start as a copy of the scene's image set;
	// intermediate translation results are appended in decoded form.
	srcImages  []scene.ImageAsset
	srcDecoded []*texproc.Image
	// Images that end up in the document, plus their cache key lookup.
	dstImages  []scene.ImageAsset
	imageCache map[string]int

	// Constructed anisotropy textures keyed by their source pair, so
	// several materials sharing the same textures reuse one image.
	constructedAnisotropy map[string]constructedTexture
}

func newExportContext(doc *gltf.Document, sc *scene.Scene, opts ExportOptions) *exportContext {
	c := &exportContext{
		doc:                   doc,
		scene:                 sc,
		opts:                  opts,
		nodeMap:               make(map[int]int),
		meshMap:               make(map[int]int),
		primitives:            make([][]*gltf.Primitive, len(sc.Meshes)),
		skinMap:               make(map[int]int),
		usedExtensions:        make(map[string]bool),
		requiredExtensions:    make(map[string]bool),
		imageCache:            make(map[string]int),
		constructedAnisotropy: make(map[string]constructedTexture),
	}
	c.srcImages = append(c.srcImages, sc.Images...)
	c.srcDecoded = make([]*texproc.Image, len(c.srcImages))
	return c
}

func (c *exportContext) warnf(format string, args ...interface{}) {
	log.Printf("[gltf export] "+format, args...)
}

// useExtension marks an extension as present in the document.
func (c *exportContext) useExtension(name string, required bool) {
	c.usedExtensions[name] = true
	if required {
		c.requiredExtensions[name] = true
	}
}
