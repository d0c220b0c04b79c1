package broadcaster

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// DefaultWriteWait bounds a single write to a client. A client that cannot
// take a frame within it is dropped.
const DefaultWriteWait = 10 * time.Second

// Broadcaster keeps track of connected browser WebSocket clients and fans
// messages out to all of them.
type Broadcaster struct {
	clients map[*websocket.Conn]uuid.UUID
	sync.Mutex
	upgrader  websocket.Upgrader
	writeWait time.Duration
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:   make(map[*websocket.Conn]uuid.UUID),
		writeWait: DefaultWriteWait,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the front-end is served from anywhere
				return true
			},
		},
	}
}

// HandleConnections upgrades the request, sends initialMessage when present
// and keeps the client registered until it disconnects.
func (b *Broadcaster) HandleConnections(w http.ResponseWriter, r *http.Request, initialMessage []byte) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade HTTP to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	id := uuid.New()

	b.Lock()
	if initialMessage != nil {
		if err := b.write(conn, initialMessage); err != nil {
			b.Unlock()
			log.Printf("Error sending initial countdown to client %s: %v", id, err)
			return
		}
	}
	b.clients[conn] = id
	total := len(b.clients)
	b.Unlock()

	log.Printf("Browser client %s connected from %s. Total clients: %d", id, conn.RemoteAddr(), total)

	// Nothing is expected from the client; ReadMessage fails once it goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.Lock()
	delete(b.clients, conn)
	total = len(b.clients)
	b.Unlock()
	log.Printf("Browser client %s removed. Total clients: %d", id, total)
}

// Broadcast writes message to every connected client. Writes are serialized
// since a websocket connection supports one concurrent writer. A client whose
// write fails or times out is closed and dropped.
func (b *Broadcaster) Broadcast(message []byte) {
	b.Lock()
	defer b.Unlock()

	for client, id := range b.clients {
		if err := b.write(client, message); err != nil {
			log.Printf("Error sending message to browser client %s, dropping it: %v", id, err)
			delete(b.clients, client)
			// unblocks the read loop of HandleConnections
			client.Close()
		}
	}
}

func (b *Broadcaster) write(conn *websocket.Conn, message []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(b.writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, message)
}

func (b *Broadcaster) ClientCount() int {
	b.Lock()
	defer b.Unlock()
	return len(b.clients)
}
