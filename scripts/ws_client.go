// Package main runs a demo WebSocket client: it submits a tiny instance,
// subscribes to its run, and prints events until the run finishes.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const demoInstance = `Name:		demo
Capacity:	10
Depot Node:	1
#Nodes:	4

ReN.	DEMAND	S. COST
N3	2	1

ReE.	From N.	To N.	T. COST	DEMAND	S. COST
E1	1	2	3	4	3

EDGE	FROM N.	TO N.	T. COST
NrE2	2	3	2
`

type wsMessage struct {
	Type  string          `json:"type"`
	RunID string          `json:"runId,omitempty"`
	Event json.RawMessage `json:"event,omitempty"`
	Error string          `json:"error,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect the stream first so no lifecycle event is missed.
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "subscribe", RunID: "*"}); err != nil {
		log.Fatal(err)
	}

	// Submit a run.
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/runs?trials=3", strings.NewReader(demoInstance))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Instance-Name", "demo.dat")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var run struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s", m.Type, string(m.Event))
			var ev struct {
				RunID string `json:"runId"`
				Type  string `json:"type"`
			}
			_ = json.Unmarshal(m.Event, &ev)
			if ev.RunID == run.ID && (ev.Type == "run.done" || ev.Type == "run.failed") {
				return
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Print("timed out waiting for the run to finish")
	case <-done:
	}

	// Fetch the solution text.
	sresp, err := http.Get(base + "/v1/runs/" + run.ID + "/solution")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = sresp.Body.Close() }()
	body, _ := io.ReadAll(sresp.Body)
	fmt.Printf("solution (%d):\n%s\n", sresp.StatusCode, body)
}
