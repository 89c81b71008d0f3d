// Package status broadcasts translation progress events to websocket
// subscribers and keeps a short history for the debug endpoints.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Kind int

const (
	KindInfo Kind = iota
	KindWarning
	KindProgress
)

const historySize = 256

// Event is one translation progress report. Stage names the pipeline
// step ("import", "materials", "export", ...), Progress is in [0,1]
// for KindProgress events.
type Event struct {
	Stage    string
	Message  string
	Time     time.Time
	Kind     Kind
	Progress float32
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// NewClient subscribes a websocket connection to the event stream and
// immediately replays the last event.
func NewClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	registerClient(c)
	go c.writePump()
	globalLock.Lock()
	defer globalLock.Unlock()
	if lastMessage != nil {
		c.send <- lastMessage
	}
	return c
}

var (
	eventBroadcast chan *Event
	broadcastList  map[*client]bool
	globalLock     sync.Mutex
	lastMessage    []byte
	history        []Event
)

func registerClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	broadcastList[c] = true
}

func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(broadcastList, c)
}

func init() {
	eventBroadcast = make(chan *Event, 16)
	broadcastList = make(map[*client]bool)
	go func() {
		for e := range eventBroadcast {
			data, err := json.Marshal(e)
			if err != nil {
				panic(err)
			}
			globalLock.Lock()
			lastMessage = data
			history = append(history, *e)
			if len(history) > historySize {
				history = history[len(history)-historySize:]
			}
			for c := range broadcastList {
				select {
				case c.send <- data:
				default:
				}
			}
			globalLock.Unlock()
		}
	}()
}

// History returns a copy of the recent events, warnings included.
func History() []Event {
	globalLock.Lock()
	defer globalLock.Unlock()
	out := make([]Event, len(history))
	copy(out, history)
	return out
}

// Warnings filters the history down to warning events.
func Warnings() []Event {
	globalLock.Lock()
	defer globalLock.Unlock()
	out := make([]Event, 0)
	for _, e := range history {
		if e.Kind == KindWarning {
			out = append(out, e)
		}
	}
	return out
}

func report(stage, msg string, kind Kind, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	eventBroadcast <- &Event{
		Stage:    stage,
		Message:  msg,
		Time:     time.Now(),
		Kind:     kind,
		Progress: progress,
	}
}

func Info(stage, format string, a ...interface{}) {
	report(stage, fmt.Sprintf(format, a...), KindInfo, 0.0)
}

func Warning(stage, format string, a ...interface{}) {
	report(stage, fmt.Sprintf(format, a...), KindWarning, 0.0)
}

func Progress(stage string, progress float32, format string, a ...interface{}) {
	report(stage, fmt.Sprintf(format, a...), KindProgress, progress)
}
