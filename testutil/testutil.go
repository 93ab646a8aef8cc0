package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSServer is an in-process websocket data source. Every accepted client
// is kept until the server closes it or the client goes away.
type WSServer struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	clients  []*websocket.Conn
	accepted int
	joined   chan struct{}
}

// StartWSServer starts a websocket server and registers its shutdown with t.
func StartWSServer(t *testing.T) *WSServer {
	t.Helper()

	s := &WSServer{t: t, joined: make(chan struct{}, 1024)}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *WSServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients = append(s.clients, conn)
	s.accepted++
	s.mu.Unlock()
	select {
	case s.joined <- struct{}{}:
	default:
	}

	// Drain reads so control frames are processed and closes are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *WSServer) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clients {
		if c == conn {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
}

// URL returns the ws:// address of the server.
func (s *WSServer) URL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/"
}

// Accepted returns how many clients have connected so far.
func (s *WSServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// WaitForClient blocks until one more client has connected.
func (s *WSServer) WaitForClient(timeout time.Duration) {
	s.t.Helper()
	select {
	case <-s.joined:
	case <-time.After(timeout):
		s.t.Fatalf("no client connected within %v", timeout)
	}
}

// Send writes a text frame to every connected client.
func (s *WSServer) Send(payload string) {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		require.NoError(s.t, c.WriteMessage(websocket.TextMessage, []byte(payload)))
	}
}

// SendWrapped sends payload serialized a second time inside a wrapper field.
func (s *WSServer) SendWrapped(field, payload string) {
	s.t.Helper()
	data, err := json.Marshal(map[string]string{field: payload})
	require.NoError(s.t, err)
	s.Send(string(data))
}

// DropClients closes every client connection while the server keeps listening.
func (s *WSServer) DropClients() {
	s.mu.Lock()
	clients := s.clients
	s.clients = nil
	s.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}

// Close drops all clients and stops the server.
func (s *WSServer) Close() {
	s.DropClients()
	s.server.Close()
}

// ProducerPayload renders a {data_names, data} message. Each row is the x
// value followed by the variable values.
func ProducerPayload(names []string, rows ...[]float64) string {
	data := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		values := append([]float64{}, row[1:]...)
		data = append(data, []interface{}{row[0], values})
	}
	out, err := json.Marshal(map[string]interface{}{"data_names": names, "data": data})
	if err != nil {
		panic(err)
	}
	return string(out)
}

// DialWS connects a raw websocket client to url.
func DialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}
