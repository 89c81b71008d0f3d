package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/gltfbridge/scene"
	"github.com/mogaika/gltfbridge/status"
	"github.com/mogaika/gltfbridge/utils"
	"github.com/mogaika/gltfbridge/webutils"
)

type sceneSummary struct {
	Name          string
	UpAxis        scene.UpAxis
	MetersPerUnit float64
	HasAnimations bool
	MinTime       float32
	MaxTime       float32
	Metadata      map[string]string

	Nodes     int
	Meshes    int
	Materials int
	Images    int
	Cameras   int
	Skeletons int
	Tracks    int
	NGPs      int
}

type imageInfo struct {
	Name   string
	URI    string
	Format scene.ImageFormat
	Bytes  int
}

// sceneSection resolves the arena behind a section name. Image payload
// bytes never go over the wire, only their metadata.
func sceneSection(sc *scene.Scene, section string) (interface{}, error) {
	switch section {
	case "nodes":
		return sc.Nodes, nil
	case "meshes":
		return sc.Meshes, nil
	case "materials":
		return sc.Materials, nil
	case "cameras":
		return sc.Cameras, nil
	case "skeletons":
		return sc.Skeletons, nil
	case "animations":
		return sc.Animations, nil
	case "tracks":
		return sc.AnimationTracks, nil
	case "ngps":
		return sc.NGPs, nil
	case "metadata":
		return sc.Metadata, nil
	case "images":
		infos := make([]imageInfo, len(sc.Images))
		for i, img := range sc.Images {
			infos[i] = imageInfo{
				Name:   img.Name,
				URI:    img.URI,
				Format: img.Format,
				Bytes:  len(img.Data),
			}
		}
		return infos, nil
	}
	return nil, fmt.Errorf("unknown scene section %q", section)
}

func HandlerSceneSummary(w http.ResponseWriter, r *http.Request) {
	name, sc := currentScene()
	if sc == nil {
		webutils.WriteError(w, fmt.Errorf("no scene translated yet"))
		return
	}
	webutils.WriteJson(w, &sceneSummary{
		Name:          name,
		UpAxis:        sc.UpAxis,
		MetersPerUnit: sc.MetersPerUnit,
		HasAnimations: sc.HasAnimations,
		MinTime:       sc.MinTime,
		MaxTime:       sc.MaxTime,
		Metadata:      sc.Metadata,
		Nodes:         len(sc.Nodes),
		Meshes:        len(sc.Meshes),
		Materials:     len(sc.Materials),
		Images:        len(sc.Images),
		Cameras:       len(sc.Cameras),
		Skeletons:     len(sc.Skeletons),
		Tracks:        len(sc.AnimationTracks),
		NGPs:          len(sc.NGPs),
	})
}

func HandlerSceneSection(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]
	_, sc := currentScene()
	if sc == nil {
		webutils.WriteError(w, fmt.Errorf("no scene translated yet"))
		return
	}
	data, err := sceneSection(sc, section)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, data)
}

func HandlerWarnings(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, status.Warnings())
}

func HandlerSceneDump(w http.ResponseWriter, r *http.Request) {
	name, sc := currentScene()
	if sc == nil {
		webutils.WriteError(w, fmt.Errorf("no scene translated yet"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "scene %q\n", name)
	fmt.Fprint(w, utils.SDump(sc))
}

func HandlerSceneSectionDump(w http.ResponseWriter, r *http.Request) {
	section := mux.Vars(r)["section"]
	_, sc := currentScene()
	if sc == nil {
		webutils.WriteError(w, fmt.Errorf("no scene translated yet"))
		return
	}
	data, err := sceneSection(sc, section)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, utils.SDump(data))
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatusWs(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.NewClient(conn)
}
