package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/locations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{"Student Union", "Library"})
	})
	mux.HandleFunc("/images", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("includeImages"))
		assert.Equal(t, "false", r.URL.Query().Get("includeInactive"))
		if r.URL.Query().Get("location") != "Student Union" {
			http.Error(w, "unknown location", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 11, "description": "Thunder Alley", "url": "http://" + r.Host + "/still/11.jpg", "updated_at": "2024-06-03T17:10:00Z"},
		})
	})
	mux.HandleFunc("/still/11.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})
	mux.HandleFunc("/still/empty.jpg", func(w http.ResponseWriter, r *http.Request) {})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientListsRegistry(t *testing.T) {
	srv := newRegistry(t)
	c := New(srv.URL+"/", 5*time.Second)
	ctx := context.Background()

	buildings, err := c.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Student Union", "Library"}, buildings)

	cams, err := c.Cameras(ctx, "Student Union")
	require.NoError(t, err)
	require.Len(t, cams, 1)
	assert.Equal(t, int64(11), cams[0].ID)
	assert.Equal(t, "Thunder Alley", cams[0].Description)
	assert.Equal(t, "2024-06-03T17:10:00Z", cams[0].UpdatedAt)

	img, err := c.FetchImage(ctx, cams[0].URL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img)
}

func TestClientErrors(t *testing.T) {
	srv := newRegistry(t)
	c := New(srv.URL, 5*time.Second)
	ctx := context.Background()

	_, err := c.Cameras(ctx, "Nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = c.FetchImage(ctx, srv.URL+"/still/empty.jpg")
	assert.Error(t, err)

	_, err = c.FetchImage(ctx, srv.URL+"/missing.jpg")
	assert.Error(t, err)
}

func TestClientHonoursContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, 0).Locations(ctx)
	assert.Error(t, err)
}
