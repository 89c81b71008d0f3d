package gltfconv

// glTF extension identifiers handled (or at least recognized) by the
// translator.
const (
	extSpecGloss            = "KHR_materials_pbrSpecularGlossiness"
	extIOR                  = "KHR_materials_ior"
	extSpecular             = "KHR_materials_specular"
	extAnisotropy           = "KHR_materials_anisotropy"
	extClearcoat            = "KHR_materials_clearcoat"
	extAdobeClearcoatSpec   = "ADOBE_materials_clearcoat_specular"
	extAdobeClearcoatTint   = "ADOBE_materials_clearcoat_tint"
	extSheen                = "KHR_materials_sheen"
	extTransmission         = "KHR_materials_transmission"
	extDiffuseTransmission  = "KHR_materials_diffuse_transmission"
	extVolume               = "KHR_materials_volume"
	extSubsurface           = "KHR_materials_subsurface"
	extSubsurfaceLegacy     = "KHR_materials_sss"
	extUnlit                = "KHR_materials_unlit"
	extEmissiveStrength     = "KHR_materials_emissive_strength"
	extTextureTransform     = "KHR_texture_transform"
	extTextureWebp          = "EXT_texture_webp"
	extThickness            = "ADOBE_materials_thin_transparency"
	extNGP                  = "ADOBE_nerf_asset"
	extMaterialsVariants    = "KHR_materials_variants"
	extDracoCompression     = "KHR_draco_mesh_compression"
	extMeshoptCompression   = "EXT_meshopt_compression"
	extTextureBasisu        = "KHR_texture_basisu"
	extLightsPunctual       = "KHR_lights_punctual"
	extMeshGPUInstancing    = "EXT_mesh_gpu_instancing"
	extMaterialsIridescence = "KHR_materials_iridescence"
)

// handledExtensions is the set the importer consumes. Anything the
// document declares outside of this set gets a one-time warning.
var handledExtensions = map[string]bool{
	extSpecGloss:           true,
	extIOR:                 true,
	extSpecular:            true,
	extAnisotropy:          true,
	extClearcoat:           true,
	extAdobeClearcoatSpec:  true,
	extAdobeClearcoatTint:  true,
	extSheen:               true,
	extTransmission:        true,
	extDiffuseTransmission: true,
	extVolume:              true,
	extSubsurface:          true,
	extSubsurfaceLegacy:    true,
	extUnlit:               true,
	extEmissiveStrength:    true,
	extTextureTransform:    true,
	extTextureWebp:         true,
	extNGP:                 true,
}

// checkExtensions warns about declared extensions the importer ignores.
// Documents requiring an unhandled extension still import; missing
// features degrade rather than abort.
func (c *importContext) checkExtensions() {
	for _, name := range c.doc.ExtensionsUsed {
		if !handledExtensions[name] {
			c.warnExtensionOnce(name)
		}
	}
	for _, name := range c.doc.ExtensionsRequired {
		if !handledExtensions[name] {
			c.warnf("document requires unsupported extension %q, output may be incomplete", name)
		}
	}
}
