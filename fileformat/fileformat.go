// Package fileformat is the host-facing entry point of the translator:
// open a glTF asset into a scene, or write a scene back out, with the
// argument surface a host plugin registry expects.
package fileformat

import (
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/gltfbridge/gltfconv"
	"github.com/mogaika/gltfbridge/scene"
)

// Args is the per-session configuration a host hands over before
// translation starts.
type Args struct {
	// AssetsPath is the directory external assets are written to; empty
	// means next to the document.
	AssetsPath string
	// WriteMaterialX requests a MaterialX network on read. Recognized
	// for compatibility; the scene carries no MaterialX surface, so it
	// has no effect.
	WriteMaterialX bool
	// AnimationTracks keeps each glTF animation as a named track
	// instead of merging them onto one timeline.
	AnimationTracks bool
}

// WriteArgs tune WriteToFile.
type WriteArgs struct {
	// EmbedImages stores images inside the document buffer.
	EmbedImages bool
	// UseMaterialExtensions enables the KHR_materials_* family.
	UseMaterialExtensions bool
}

// DefaultWriteArgs returns the write defaults: embedded images with
// material extensions on.
func DefaultWriteArgs() WriteArgs {
	return WriteArgs{EmbedImages: true, UseMaterialExtensions: true}
}

// InitData builds the session arguments from the string map a host
// plugin registry passes along. Unknown keys are ignored.
func InitData(raw map[string]string) Args {
	var args Args
	args.AssetsPath = raw["gltfAssetsPath"]
	if v, err := strconv.ParseBool(raw["writeMaterialX"]); err == nil {
		args.WriteMaterialX = v
	}
	if v, err := strconv.ParseBool(raw["gltfAnimationTracks"]); err == nil {
		args.AnimationTracks = v
	}
	return args
}

// CanRead reports whether the asset at path may be a glTF document.
// The actual format check is deferred to Read.
func CanRead(path string) bool {
	return true
}

// Read opens the glTF asset at resolvedPath and translates it into a
// scene. With metadataOnly set, only the asset-level metadata is
// filled.
func Read(resolvedPath string, metadataOnly bool, args Args) (*scene.Scene, error) {
	doc, err := gltf.Open(resolvedPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", resolvedPath)
	}
	return gltfconv.Import(doc, resolvedPath, gltfconv.ImportOptions{
		MetadataOnly:    metadataOnly,
		AnimationTracks: args.AnimationTracks,
		BaseDir:         filepath.Dir(resolvedPath),
	})
}

// WriteToFile translates the scene into a glTF document and writes it
// to filename. A .glb extension selects the binary container, anything
// else the JSON one. External images land in args.AssetsPath, or next
// to the document when unset.
func WriteToFile(sc *scene.Scene, filename string, args Args, writeArgs WriteArgs) error {
	binary := strings.EqualFold(filepath.Ext(filename), ".glb")

	doc, images, err := gltfconv.Export(sc, gltfconv.ExportOptions{
		Binary:                binary,
		EmbedImages:           writeArgs.EmbedImages,
		UseMaterialExtensions: writeArgs.UseMaterialExtensions,
	})
	if err != nil {
		return errors.Wrapf(err, "export %q", filename)
	}

	if binary {
		err = gltf.SaveBinary(doc, filename)
	} else {
		err = gltf.Save(doc, filename)
	}
	if err != nil {
		return errors.Wrapf(err, "save %q", filename)
	}

	assetsDir := args.AssetsPath
	if assetsDir == "" {
		assetsDir = filepath.Dir(filename)
	}
	for _, img := range images {
		if img.URI == "" || len(img.Data) == 0 {
			continue
		}
		target := filepath.Join(assetsDir, filepath.FromSlash(img.URI))
		if err := ioutil.WriteFile(target, img.Data, 0644); err != nil {
			return errors.Wrapf(err, "write image %q", img.URI)
		}
	}
	return nil
}
