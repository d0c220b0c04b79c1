package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	numClients = flag.Int("clients", 500, "number of concurrent countdown displays to open")
	serverURL  = flag.String("url", "ws://localhost:8080/ws", "countdown WebSocket URL")
	duration   = flag.Duration("duration", 30*time.Second, "how long each client stays connected")
)

// frame is the subset of a countdown frame the load tester checks.
type frame struct {
	Status    string `json:"status"`
	Breakdown struct {
		Total int64 `json:"total"`
	} `json:"breakdown"`
}

func main() {
	flag.Parse()

	u, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Failed to parse URL: %v", err)
	}

	log.Printf("Starting countdown load tester with %d clients connecting to %s", *numClients, u)

	var (
		wg       sync.WaitGroup
		frames   atomic.Int64
		failures atomic.Int64
	)
	wg.Add(*numClients)

	for i := 0; i < *numClients; i++ {
		go func(clientID int) {
			defer wg.Done()

			conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
			if err != nil {
				log.Printf("Client %d: Failed to connect: %v", clientID, err)
				failures.Add(1)
				return
			}
			defer conn.Close()

			deadline := time.Now().Add(*duration)
			_ = conn.SetReadDeadline(deadline)
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						log.Printf("Client %d: Connection closed unexpectedly: %v", clientID, err)
						failures.Add(1)
					}
					return
				}
				var f frame
				if err := json.Unmarshal(msg, &f); err != nil {
					log.Printf("Client %d: Bad frame: %v", clientID, err)
					failures.Add(1)
					return
				}
				frames.Add(1)
			}
		}(i)

		// stagger connects to avoid a thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	wg.Wait()

	log.Printf("All clients finished: %d frames received, %d failures.", frames.Load(), failures.Load())
}
