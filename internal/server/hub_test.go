package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, cfg Config, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(cfg.wsHandler(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	// Registration happens on the server goroutine after the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHub_BroadcastNewImage(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialHub(t, Config{}, hub)

	hub.NewImage("https://store/x", "x")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var evt struct {
		Event string `json:"event"`
		Data  struct {
			ImageURL string `json:"imageUrl"`
			PublicID string `json:"publicId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}

	if evt.Event != "newImage" {
		t.Errorf("expected newImage event, got %q", evt.Event)
	}
	if evt.Data.ImageURL != "https://store/x" || evt.Data.PublicID != "x" {
		t.Errorf("unexpected payload: %+v", evt.Data)
	}
}

func TestHub_UploadNotifiesSubscriber(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	blobs := &fakeBlobStore{ref: ObjectRef{URL: "https://store/x", StorageID: "x"}}
	cfg := Config{Blobs: blobs, Images: &fakeImageStore{}, Notifier: hub}

	conn := dialHub(t, cfg, hub)

	body, contentType := multipartImage(t, "image", []byte("0123456789"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	cfg.uploadHandler().ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("upload failed: %d", rr.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("subscriber received nothing: %v", err)
	}
	if !strings.Contains(string(msg), `"newImage"`) || !strings.Contains(string(msg), `"https://store/x"`) {
		t.Errorf("unexpected event: %s", msg)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := dialHub(t, Config{}, hub)
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_NewImageNeverBlocks(t *testing.T) {
	hub := NewHub() // Run loop intentionally not started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.NewImage("https://store/x", "x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NewImage blocked with no consumer running")
	}
}
