package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes. baseURL is the public address
// used for QR invite links.
func SetupRoutes(hub *Hub, baseURL string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, "hello from metaverse websocket server")
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"clients":         hub.ClientCount(),
			"spaces":          hub.spaces.Count(),
			"proximityGroups": hub.spaces.GroupCount(),
		})
	})

	// QR invite: renders the join link for a space as a PNG
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		spaceID := r.URL.Query().Get("spaceId")
		if spaceID == "" {
			http.Error(w, "missing spaceId", http.StatusBadRequest)
			return
		}
		if hub.spaces.Get(spaceID) == nil {
			http.Error(w, "space not found", http.StatusNotFound)
			return
		}
		link := fmt.Sprintf("%s/space/%s", baseURL, spaceID)
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Log.Warnf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}
