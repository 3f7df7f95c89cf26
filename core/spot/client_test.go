package spot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if creds["username"] != "alice" || creds["password"] != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok-123"})
	})
	mux.HandleFunc("/v1/tracks/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(trackPayload{
			ID: "abc", Title: "Solo", Artists: []string{"Ann"}, Position: 7,
		})
	})
	mux.HandleFunc("/v1/albums/al1/tracks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]trackPayload{
			"tracks": {
				{ID: "a1", Title: "One"},
				{ID: "a2", Title: "Two"},
			},
		})
	})
	mux.HandleFunc("/v1/tracks/abc/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(audioKeyHeader, base64.StdEncoding.EncodeToString([]byte("key-material")))
		w.Write([]byte("encrypted-bytes"))
	})
	// 慢速流：分块下发，总时长远超元数据超时
	mux.HandleFunc("/v1/tracks/slow/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(audioKeyHeader, base64.StdEncoding.EncodeToString([]byte("key-material")))
		flusher := w.(http.Flusher)
		chunk := make([]byte, 2048)
		for i := 0; i < 10; i++ {
			w.Write(chunk)
			flusher.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestLogin(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.token != "tok-123" {
		t.Fatalf("token = %q", c.token)
	}
}

func TestLoginRejected(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "wrong"); err == nil {
		t.Fatal("bad credentials must fail login")
	}
}

func TestResolveTrack(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	refs, err := c.Resolve(context.Background(), "https://open.example.com/track/abc")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "abc" || refs[0].Position != 7 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestResolveAlbumAssignsPositions(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	refs, err := c.Resolve(context.Background(), "spot:album:al1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Position != 1 || refs[1].Position != 2 {
		t.Fatalf("positions not assigned in order: %+v", refs)
	}
}

func TestFetchStream(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	stream, err := c.Fetch(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer stream.Close()

	if string(stream.Key) != "key-material" {
		t.Fatalf("key = %q", stream.Key)
	}
	body, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "encrypted-bytes" {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchStreamOutlivesMetadataTimeout(t *testing.T) {
	_, c := newTestService(t)
	if err := c.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// 元数据超时远小于流的总时长，流的读取不能被它杀掉
	c.SetTimeout(100 * time.Millisecond)

	stream, err := c.Fetch(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer stream.Close()

	body, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("slow stream read aborted: %v", err)
	}
	if len(body) != 10*2048 {
		t.Fatalf("slow stream truncated: got %d bytes, want %d", len(body), 10*2048)
	}
}

func TestFetchUnknownTrack(t *testing.T) {
	_, c := newTestService(t)
	if _, err := c.Fetch(context.Background(), "nope"); err == nil {
		t.Fatal("unknown track must fail")
	}
}

func TestParseIdentifier(t *testing.T) {
	cases := []struct {
		in       string
		kind, id string
		ok       bool
	}{
		{"https://open.example.com/track/4uLU6hMCjMI", "track", "4uLU6hMCjMI", true},
		{"https://open.example.com/album/6G9fHYD?si=xyz", "album", "6G9fHYD", true},
		{"https://open.example.com/playlist/37i9dQ", "playlist", "37i9dQ", true},
		{"spot:track:4uLU6hMCjMI", "track", "4uLU6hMCjMI", true},
		{"spot:artist:123", "", "", false},
		{"https://open.example.com/artist/123", "", "", false},
		{"https://open.example.com/", "", "", false},
		{"spot:track:", "", "", false},
	}
	for _, tc := range cases {
		kind, id, err := parseIdentifier(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("parseIdentifier(%q): %v", tc.in, err)
				continue
			}
			if kind != tc.kind || id != tc.id {
				t.Errorf("parseIdentifier(%q) = %s/%s, want %s/%s", tc.in, kind, id, tc.kind, tc.id)
			}
		} else if err == nil {
			t.Errorf("parseIdentifier(%q) should fail, got %s/%s", tc.in, kind, id)
		}
	}
}
