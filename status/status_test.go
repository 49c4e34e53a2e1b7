package status

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/hello_stage/stage"
	"github.com/mogaika/hello_stage/xform"
)

func connect(t *testing.T) (*Hub, *websocket.Conn) {
	log, _ := logtest.NewNullLogger()
	h := NewHub(log)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	return h, conn
}

func read(t *testing.T, conn *websocket.Conn) Status {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s Status
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestInfo(t *testing.T) {
	h, conn := connect(t)
	h.Info("saved %s", "helloworld.yaml")

	s := read(t, conn)
	assert.Equal(t, INFO, s.Type)
	assert.Equal(t, "saved helloworld.yaml", s.Message)
	assert.False(t, s.Time.IsZero())
}

func TestProgressIgnoresNaN(t *testing.T) {
	h, conn := connect(t)
	h.Progress(float32(math.NaN()), "working")

	s := read(t, conn)
	assert.Equal(t, PROGRESS, s.Type)
	assert.Equal(t, float32(0), s.Progress)
}

func TestStageChanges(t *testing.T) {
	h, conn := connect(t)
	st := stage.New()
	st.Subscribe(h.StageChanged)
	require.NoError(t, st.DefinePrim("/Root", "Xform"))

	s := read(t, conn)
	assert.Equal(t, CHANGE, s.Type)
	assert.Contains(t, s.Changes, stage.Change{Path: "/Root"})

	require.NoError(t, st.CreateAttribute("/Root", "size", "double"))
	s = read(t, conn)
	assert.Equal(t, []stage.Change{{Path: "/Root", Field: "size"}}, s.Changes)

	block := st.BeginEdits()
	require.NoError(t, st.Set("/Root", "size", "double", 2.0, xform.DefaultTime()))
	require.NoError(t, st.Set("/Root", "size", "double", 3.0, xform.DefaultTime()))
	block.End()

	s = read(t, conn)
	assert.Equal(t, []stage.Change{{Path: "/Root", Field: "size"}}, s.Changes)
}

func TestLateClientGetsLastStatus(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	h := NewHub(log)
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	h.Error("broken")
	require.Eventually(t, func() bool {
		h.lock.Lock()
		defer h.lock.Unlock()
		return h.last != nil
	}, 5*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	s := read(t, conn)
	assert.Equal(t, ERROR, s.Type)
	assert.Equal(t, "broken", s.Message)
	assert.Equal(t, 1, h.Clients())
}
