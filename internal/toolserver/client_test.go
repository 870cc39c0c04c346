package toolserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/inkwellai/inkwell/internal/tools"
)

// fakeServer is a minimal tool server speaking the client's protocol.
func fakeServer(t *testing.T, specs []toolSpec) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			switch f.Type {
			case "list_tools":
				conn.WriteJSON(&frame{Type: "tools", Tools: specs})
			case "call_tool":
				resp := &frame{Type: "tool_result", ID: f.ID}
				if f.Tool == "remote_fail" {
					resp.Error = "remote failure"
				} else {
					resp.Output = "remote output for " + f.Tool
				}
				conn.WriteJSON(resp)
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectRegistersAdvertisedTools(t *testing.T) {
	srv := fakeServer(t, []toolSpec{
		{Name: "remote_echo", Description: "echoes", Category: "read-only",
			Parameters: map[string]any{"type": "object"}},
		{Name: "remote_wipe", Description: "wipes", Category: "mystery"},
	})
	defer srv.Close()

	registry := tools.NewRegistry()
	client := NewClient(wsURL(srv), registry)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	echo, ok := registry.Get("remote_echo")
	if !ok {
		t.Fatal("remote_echo not registered")
	}
	if echo.Category() != tools.CategoryReadOnly {
		t.Errorf("category not mapped: %v", echo.Category())
	}

	// Unknown categories default to destructive so they stay gated.
	wipe, ok := registry.Get("remote_wipe")
	if !ok {
		t.Fatal("remote_wipe not registered")
	}
	if wipe.Category() != tools.CategoryDestructive {
		t.Errorf("unknown category should map to destructive, got %v", wipe.Category())
	}
}

func TestRemoteToolExecute(t *testing.T) {
	srv := fakeServer(t, []toolSpec{
		{Name: "remote_echo", Category: "read-only"},
		{Name: "remote_fail", Category: "read-only"},
	})
	defer srv.Close()

	registry := tools.NewRegistry()
	client := NewClient(wsURL(srv), registry)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	echo, _ := registry.Get("remote_echo")
	out, err := echo.Execute(context.Background(), map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "remote output for remote_echo" {
		t.Errorf("unexpected output: %q", out)
	}

	// Remote failures surface as error result strings, not Go errors.
	fail, _ := registry.Get("remote_fail")
	out, err = fail.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute should not error: %v", err)
	}
	if !strings.Contains(out, "remote failure") {
		t.Errorf("remote error lost: %q", out)
	}
}

func TestCloseUnregistersTools(t *testing.T) {
	srv := fakeServer(t, []toolSpec{{Name: "remote_echo", Category: "read-only"}})
	defer srv.Close()

	registry := tools.NewRegistry()
	client := NewClient(wsURL(srv), registry)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	client.Close()
	if _, ok := registry.Get("remote_echo"); ok {
		t.Error("remote tool still registered after close")
	}

	// A call after close fails fast with an error result string.
	remote := &RemoteTool{client: client, name: "remote_echo"}
	out, _ := remote.Execute(context.Background(), nil)
	if !strings.Contains(out, "disconnected") {
		t.Errorf("expected disconnect error, got %q", out)
	}
}
