package gltfconv

import (
	"sort"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/scene"
)

// Export translates a scene into a glTF document. When images are not
// embedded the returned assets must be written next to the document
// under their URI names.
func Export(sc *scene.Scene, opts ExportOptions) (*gltf.Document, []scene.ImageAsset, error) {
	doc := gltf.NewDocument()
	c := newExportContext(doc, sc, opts)

	c.exportAnimationTracks()
	c.exportMetadata()
	c.exportMaterials()
	c.exportMeshes()

	offsetNode := -1
	if len(sc.Nodes) > 0 {
		gs := doc.Scenes[0]

		// glTF carries no global orientation or unit scale, so a
		// correction node becomes the holder of all root nodes. It is
		// the first node written, shifting every child index by one.
		offsetNode = c.exportOffsetNode()

		offset := 0
		if offsetNode != -1 {
			offset = 1
			gs.Nodes = append(gs.Nodes, uint32(offsetNode))
			holder := doc.Nodes[offsetNode]
			for _, rootNode := range sc.RootNodes {
				holder.Children = append(holder.Children, uint32(rootNode+offset))
			}
		} else {
			for _, rootNode := range sc.RootNodes {
				gs.Nodes = append(gs.Nodes, uint32(rootNode))
			}
		}

		for i := range sc.Nodes {
			c.exportNode(i, offset)
		}
	}

	// Skeletons resolve their parents through the node map built just
	// above.
	c.exportSkeletons(offsetNode)

	doc.ExtensionsUsed = sortedExtensionSet(c.usedExtensions)
	doc.ExtensionsRequired = sortedExtensionSet(c.requiredExtensions)

	if opts.EmbedImages {
		return doc, nil, nil
	}
	return doc, c.dstImages, nil
}

// exportAnimationTracks reserves one glTF animation per scene track so
// node and skeleton channels can append into them by track index.
func (c *exportContext) exportAnimationTracks() {
	if !c.scene.HasAnimations {
		return
	}
	c.doc.Animations = make([]*gltf.Animation, len(c.scene.AnimationTracks))
	for i := range c.scene.AnimationTracks {
		c.doc.Animations[i] = &gltf.Animation{Name: c.scene.AnimationTracks[i].Name}
	}
}

// exportMetadata mirrors the scene metadata onto the asset header.
// Host-side bookkeeping keys never round-trip.
func (c *exportContext) exportMetadata() {
	c.doc.Asset.Generator = "gltfbridge 1.0"

	extras := make(map[string]interface{})
	for k, v := range c.scene.Metadata {
		switch k {
		case "filenames", "hasAdobeProperties", "generator":
			continue
		case "copyright":
			c.doc.Asset.Copyright = v
			continue
		}
		extras[k] = v
	}
	if len(extras) > 0 {
		c.doc.Asset.Extras = extras
	}
}

func sortedExtensionSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
