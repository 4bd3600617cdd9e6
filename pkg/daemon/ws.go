package daemon

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	jsonrpc2ws "github.com/sourcegraph/jsonrpc2/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Returns a handler that upgrades requests to websocket connections and sends
// them to streamCh as JSON-RPC streams, one message per JSON-RPC object.
func wsHandler(streamCh chan<- jsonrpc2.ObjectStream, done <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			logger.Println("failed to upgrade websocket connection:", err)
			return
		}
		select {
		case streamCh <- jsonrpc2ws.NewObjectStream(conn):
		case <-done:
			conn.Close()
		}
	})
}
