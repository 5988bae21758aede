package echoserver_test

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/echoserver"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestEchoesBinaryFrames(t *testing.T) {
	h := echoserver.New(echoserver.Options{})
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	payloads := [][]byte{{0x01, 0x02}, {0xff}, bytes.Repeat([]byte{0xab}, 4096)}
	for _, p := range payloads {
		if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}
	for i, want := range payloads {
		msgType, got, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage(%d) error = %v", i, err)
		}
		if msgType != websocket.BinaryMessage {
			t.Errorf("frame %d type = %d, want binary", i, msgType)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %x, want %x", i, got, want)
		}
	}

	if h.Connections() != 1 {
		t.Errorf("Connections() = %d, want 1", h.Connections())
	}
	if h.Echoed() != int64(len(payloads)) {
		t.Errorf("Echoed() = %d, want %d", h.Echoed(), len(payloads))
	}
}

func TestGreetingIsText(t *testing.T) {
	server := httptest.NewServer(echoserver.New(echoserver.Options{Greeting: `{"status":"connected"}`}))
	defer server.Close()

	conn := dial(t, server)
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if msgType != websocket.TextMessage || string(data) != `{"status":"connected"}` {
		t.Errorf("greeting = (%d, %q), want text status frame", msgType, data)
	}
}

func TestCloseAfter(t *testing.T) {
	h := echoserver.New(echoserver.Options{CloseAfter: 3})
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server)
	for i := 0; i < 10; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
			break
		}
	}

	echoes := 0
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Fatalf("ReadMessage() error = %v, want going-away close", err)
			}
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) || closeErr.Text != echoserver.CloseReason {
				t.Errorf("close error = %v, want reason %q", err, echoserver.CloseReason)
			}
			break
		}
		echoes++
	}

	if echoes != 3 {
		t.Errorf("echoes = %d, want 3", echoes)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	server := httptest.NewServer(echoserver.New(echoserver.Options{Codec: codec.NewMessagePack()}))
	defer server.Close()

	conn := dial(t, server)
	good, err := codec.NewMessagePack().Encode(codec.DefaultPayload(1))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, good); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("valid frame not echoed: %v", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0xc1}); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseUnsupportedData) {
		t.Fatalf("ReadMessage() error = %v, want unsupported-data close", err)
	}
}
