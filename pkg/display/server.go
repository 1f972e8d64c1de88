// Package display serves progressive render output to browser clients
// over a websocket: tiles stream as they finish, followed by the complete
// image.
package display

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/df07/go-render-sampling/pkg/renderer"
	"github.com/df07/go-render-sampling/web"
)

// TileMessage is one websocket frame: either a finished tile or the final
// render.
type TileMessage struct {
	Type      string `json:"type"` // "tile" or "complete"
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Samples   int    `json:"samples"`
	Pass      int    `json:"pass"`
	Passes    int    `json:"passes"`
	ImageData string `json:"imageData"` // base64 PNG
}

// Server broadcasts render progress to connected websocket clients.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewServer creates a display server with no connected clients.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			// The render UI is served from arbitrary local origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the http handler that upgrades connections to
// websockets and registers them for broadcasts.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", "err", err)
			return
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
		log.Info("display client connected", "remote", conn.RemoteAddr())

		// Drain control frames until the client goes away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.drop(conn)
					return
				}
			}
		}()
	})
}

// ListenAndServe runs the server until the context is canceled. The
// embedded viewer page is served at the root path.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Info("display server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("display server: %w", err)
	}
	return nil
}

func (s *Server) mux() *http.ServeMux {
	viewer, err := fs.Sub(web.Static, "static")
	if err != nil {
		log.Fatal("embedded viewer assets missing", "err", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServerFS(viewer))
	return mux
}

// PublishTile broadcasts one finished tile cropped out of the image.
// Safe to call from concurrent render workers.
func (s *Server) PublishTile(img *image.RGBA, update renderer.TileUpdate) {
	crop := img.SubImage(update.Bounds)
	data, err := encodePNG(crop)
	if err != nil {
		log.Error("encoding tile", "err", err)
		return
	}
	s.broadcast(TileMessage{
		Type:      "tile",
		X:         update.Bounds.Min.X,
		Y:         update.Bounds.Min.Y,
		Width:     update.Bounds.Dx(),
		Height:    update.Bounds.Dy(),
		Samples:   update.Samples,
		Pass:      update.Pass,
		Passes:    update.Passes,
		ImageData: data,
	})
}

// PublishComplete broadcasts the finished render.
func (s *Server) PublishComplete(img *image.RGBA) {
	data, err := encodePNG(img)
	if err != nil {
		log.Error("encoding final image", "err", err)
		return
	}
	b := img.Bounds()
	s.broadcast(TileMessage{
		Type:      "complete",
		Width:     b.Dx(),
		Height:    b.Dy(),
		ImageData: data,
	})
}

func (s *Server) broadcast(msg TileMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error("encoding tile message", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
