// Package config keeps the process-level translator settings, loaded
// from a YAML file with flag overrides applied by the caller.
package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// AssetsPath is the directory external assets are written to on
	// export; empty means next to the document.
	AssetsPath string `yaml:"assets_path"`

	// EmbedImages stores image payloads inside the document buffer
	// instead of sidecar files.
	EmbedImages bool `yaml:"embed_images"`

	// UseMaterialExtensions enables the KHR_materials_* family on
	// export.
	UseMaterialExtensions bool `yaml:"use_material_extensions"`

	// AnimationTracks keeps glTF animations as separate named tracks.
	AnimationTracks bool `yaml:"animation_tracks"`

	// WriteMaterialX requests a MaterialX network on read; accepted
	// for host compatibility.
	WriteMaterialX bool `yaml:"write_materialx"`

	// WebAddr is the listen address of the debug web server; empty
	// disables it.
	WebAddr string `yaml:"web_addr"`
}

var current = Default()

func Default() Config {
	return Config{
		EmbedImages:           true,
		UseMaterialExtensions: true,
	}
}

func Get() Config {
	return current
}

func Set(cfg Config) {
	current = cfg
}

// Load reads the YAML file at path into the process config. A missing
// file keeps the defaults.
func Load(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read config %q", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return errors.Wrapf(err, "parse config %q", path)
	}
	current = cfg
	return nil
}
