package main

import (
	"flag"
	"log"

	"github.com/mogaika/gltfbridge/config"
	"github.com/mogaika/gltfbridge/fileformat"
	"github.com/mogaika/gltfbridge/status"
	"github.com/mogaika/gltfbridge/utils"
	"github.com/mogaika/gltfbridge/web"
)

func main() {
	var addr, cfgPath, in, out, assetsPath string
	var metadataOnly, dump bool
	flag.StringVar(&addr, "i", "", "Address of debug server, empty to disable")
	flag.StringVar(&cfgPath, "config", "gltfbridge.yaml", "Path to config file")
	flag.StringVar(&in, "in", "", "Input .gltf/.glb file")
	flag.StringVar(&out, "out", "", "Output .gltf/.glb file, empty to skip export")
	flag.StringVar(&assetsPath, "assets", "", "Directory for external assets on write")
	flag.BoolVar(&metadataOnly, "metadata", false, "Read only asset-level metadata")
	flag.BoolVar(&dump, "dump", false, "Spew-dump the translated scene to stdout")
	var embedImages, materialExtensions, animationTracks bool
	flag.BoolVar(&embedImages, "embedimages", true, "Store images inside the document buffer")
	flag.BoolVar(&materialExtensions, "materialext", true, "Emit KHR_materials_* extensions")
	flag.BoolVar(&animationTracks, "tracks", false, "Keep animations as separate named tracks")
	flag.Parse()

	if err := config.Load(cfgPath); err != nil {
		log.Fatal(err)
	}
	cfg := config.Get()
	if assetsPath != "" {
		cfg.AssetsPath = assetsPath
	}
	cfg.EmbedImages = embedImages
	cfg.UseMaterialExtensions = materialExtensions
	if animationTracks {
		cfg.AnimationTracks = true
	}
	if addr != "" {
		cfg.WebAddr = addr
	}
	config.Set(cfg)

	if in == "" {
		flag.PrintDefaults()
		return
	}

	args := fileformat.Args{
		AssetsPath:      cfg.AssetsPath,
		AnimationTracks: cfg.AnimationTracks,
		WriteMaterialX:  cfg.WriteMaterialX,
	}

	status.Info("import", "reading %q", in)
	sc, err := fileformat.Read(in, metadataOnly, args)
	if err != nil {
		log.Fatal(err)
	}
	web.SetScene(in, sc)
	status.Info("import", "read %q: %d nodes, %d meshes, %d materials",
		in, len(sc.Nodes), len(sc.Meshes), len(sc.Materials))

	if dump {
		utils.Dump(sc)
	}

	if out != "" {
		status.Info("export", "writing %q", out)
		writeArgs := fileformat.WriteArgs{
			EmbedImages:           cfg.EmbedImages,
			UseMaterialExtensions: cfg.UseMaterialExtensions,
		}
		if err := fileformat.WriteToFile(sc, out, args, writeArgs); err != nil {
			log.Fatal(err)
		}
		status.Info("export", "wrote %q", out)
	}

	if cfg.WebAddr != "" {
		if err := web.StartServer(cfg.WebAddr); err != nil {
			log.Fatal(err)
		}
	}
}
