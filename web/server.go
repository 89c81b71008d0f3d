// Package web serves the debug endpoints of the translator: the last
// translated scene as JSON, spew dumps of its arenas, the warning list
// and a websocket stream of translation progress events.
package web

import (
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/gltfbridge/scene"
)

var (
	sceneLock sync.RWMutex
	lastScene *scene.Scene
	lastName  string
)

// SetScene publishes a translated scene to the debug endpoints.
func SetScene(name string, sc *scene.Scene) {
	sceneLock.Lock()
	defer sceneLock.Unlock()
	lastName = name
	lastScene = sc
}

func currentScene() (string, *scene.Scene) {
	sceneLock.RLock()
	defer sceneLock.RUnlock()
	return lastName, lastScene
}

func StartServer(addr string) error {
	r := mux.NewRouter()
	r.HandleFunc("/json/scene", HandlerSceneSummary)
	r.HandleFunc("/json/scene/{section}", HandlerSceneSection)
	r.HandleFunc("/json/warnings", HandlerWarnings)
	r.HandleFunc("/dump/scene", HandlerSceneDump)
	r.HandleFunc("/dump/scene/{section}", HandlerSceneSectionDump)
	r.HandleFunc("/ws/status", HandlerStatusWs)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
