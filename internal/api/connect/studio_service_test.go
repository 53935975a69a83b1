package connect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/hifzbox/internal/app/sequencer"
	"github.com/osa030/hifzbox/internal/app/studio"
	"github.com/osa030/hifzbox/internal/domain/verse"
	"github.com/osa030/hifzbox/internal/infra/config"
	"github.com/osa030/hifzbox/internal/infra/store"
)

const testYAML = `
control:
  token: secret
reciters:
  - name: Alafasy_128kbps
audio:
  sources:
    - type: http
`

type nopHandle struct{}

func (nopHandle) Play()    {}
func (nopHandle) Pause()   {}
func (nopHandle) Stop()    {}
func (nopHandle) Release() {}

type nopProvider struct{}

func (nopProvider) Acquire(sequencer.Request, sequencer.Events) sequencer.Handle {
	return nopHandle{}
}

type stubCatalog struct{}

func (stubCatalog) Chapters(context.Context) ([]verse.Chapter, error) {
	return []verse.Chapter{
		{ID: 1, Name: "الفاتحة", Transliteration: "Al-Fatihah", Translation: "The Opener", Type: "meccan", TotalVerses: 7},
	}, nil
}

func (stubCatalog) Chapter(_ context.Context, id int, _ string) (*verse.Chapter, error) {
	ch := &verse.Chapter{ID: id, Transliteration: fmt.Sprintf("chapter-%d", id)}
	for i := 1; i <= verse.VerseCount(id); i++ {
		ch.Verses = append(ch.Verses, verse.Verse{ID: i, Chapter: id, Text: fmt.Sprintf("ar-%d", i)})
	}
	return ch, nil
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg, err := config.Parse([]byte(testYAML))
	require.NoError(t, err)

	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	player := sequencer.New(nopProvider{}, sequencer.Config{RetryDelay: time.Hour})
	mgr, err := studio.NewManager(context.Background(), cfg, player, stubCatalog{}, st)
	require.NoError(t, err)

	path, handler := NewStudioServiceHandler(
		NewStudioService(mgr, cfg),
		connect.WithInterceptors(NewControlAuthInterceptor(cfg)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		mgr.Close()
		srv.Close()
	})
	return srv
}

func TestStudioService_Auth(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		code  connect.Code
	}{
		{name: "missing token", token: "", code: connect.CodeUnauthenticated},
		{name: "wrong token", token: "guess", code: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(srv.Client(), srv.URL, tt.token)

			_, err := client.GetStatus(ctx)
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))

			err = client.Subscribe(ctx, nil, func(map[string]any) {})
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}

	client := NewClient(srv.Client(), srv.URL, "secret")
	status, err := client.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", status["state"])
}

func TestStudioService_Commands(t *testing.T) {
	srv := setupServer(t)
	client := NewClient(srv.Client(), srv.URL, "secret")
	ctx := context.Background()

	_, err := client.SelectChapter(ctx, 200)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// Commands that need a chapter fail softly.
	resp, err := client.SetRange(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["message"], "no chapter selected")

	resp, err = client.SelectChapter(ctx, 67)
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])
	status := resp["status"].(map[string]any)
	assert.Equal(t, float64(67), status["chapter"])
	assert.Equal(t, "chapter-67", status["chapter_name"])
	assert.Equal(t, float64(5), status["range_end"])

	_, err = client.SetRange(ctx, 5, 2)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	resp, err = client.SetRange(ctx, 2, 4)
	require.NoError(t, err)
	status = resp["status"].(map[string]any)
	assert.Equal(t, float64(2), status["position"])
	assert.Equal(t, "stopped", status["state"])

	resp, err = client.PlayPause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "loading", resp["status"].(map[string]any)["state"])

	_, err = client.SetRepeat(ctx, 1000)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.SetVoice(ctx, "Nobody")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	resp, err = client.MarkVerse(ctx, 2, "check")
	require.NoError(t, err)
	assert.Equal(t, false, resp["success"])

	_, err = client.SetMode(ctx, "teacher")
	require.NoError(t, err)
	resp, err = client.MarkVerse(ctx, 2, "check")
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])

	marks, err := client.ListMarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"67": map[string]any{"2": "check"}}, marks["marks"])
}

func TestStudioService_ListChapters(t *testing.T) {
	srv := setupServer(t)
	client := NewClient(srv.Client(), srv.URL, "secret")

	resp, err := client.ListChapters(context.Background())
	require.NoError(t, err)
	chapters := resp["chapters"].([]any)
	require.Len(t, chapters, 1)
	first := chapters[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.Equal(t, "Al-Fatihah", first["transliteration"])
	assert.Equal(t, "The Opener", first["translation"])
	assert.Equal(t, float64(7), first["total_verses"])
}

func TestStudioService_Sessions(t *testing.T) {
	srv := setupServer(t)
	client := NewClient(srv.Client(), srv.URL, "secret")
	ctx := context.Background()

	_, err := client.SelectChapter(ctx, 1)
	require.NoError(t, err)

	resp, err := client.SaveSession(ctx, "Fatiha")
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Fatiha", resp["session"].(map[string]any)["name"])

	list, err := client.ListSessions(ctx)
	require.NoError(t, err)
	sessions := list["sessions"].([]any)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Fatiha", sessions[0].(map[string]any)["name"])

	_, err = client.LoadSession(ctx, "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	exported, err := client.ExportSession(ctx, "Fatiha")
	require.NoError(t, err)
	payload := exported["payload"].(string)
	assert.Contains(t, payload, `"name":"Fatiha"`)

	resp, err = client.ImportSession(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "Fatiha (Imported)", resp["session"].(map[string]any)["name"])

	resp, err = client.ImportSession(ctx, `{"name":"X","chapter":1,"startVerse":1,"endVerse":2,"reciter":"Nobody"}`)
	require.NoError(t, err)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "unknown_reciter", resp["code"])

	_, err = client.ImportSession(ctx, `not json`)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	shared, err := client.ShareSession(ctx)
	require.NoError(t, err)
	link := shared["url"].(string)
	assert.Contains(t, link, "session=")

	resp, err = client.OpenShared(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])

	resp, err = client.DeleteSession(ctx, "Fatiha")
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])
}

func TestStudioService_Subscribe(t *testing.T) {
	srv := setupServer(t)
	client := NewClient(srv.Client(), srv.URL, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan map[string]any, 64)
	go func() {
		_ = client.Subscribe(ctx, nil, func(n map[string]any) {
			received <- n
		})
	}()

	first := <-received
	assert.Equal(t, "status", first["type"])

	_, err := client.SelectChapter(ctx, 112)
	require.NoError(t, err)

	for {
		select {
		case n := <-received:
			if n["type"] != "chapter_changed" {
				continue
			}
			fields := n["fields"].(map[string]any)
			assert.Equal(t, float64(112), fields["chapter"])
			assert.NotZero(t, n["sequence_no"])
			return
		case <-ctx.Done():
			t.Fatal("chapter_changed not received")
		}
	}
}

func TestStudioService_SubscribeFiltered(t *testing.T) {
	srv := setupServer(t)
	client := NewClient(srv.Client(), srv.URL, "secret")

	err := client.Subscribe(context.Background(), []string{"track_added"}, func(map[string]any) {})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan map[string]any, 64)
	go func() {
		_ = client.Subscribe(ctx, []string{"language_changed"}, func(n map[string]any) {
			received <- n
		})
	}()

	// The initial status is always delivered.
	first := <-received
	assert.Equal(t, "status", first["type"])

	_, err = client.SelectChapter(ctx, 1)
	require.NoError(t, err)
	_, err = client.SetLanguage(ctx, "fr")
	require.NoError(t, err)

	select {
	case n := <-received:
		assert.Equal(t, "language_changed", n["type"])
	case <-ctx.Done():
		t.Fatal("language_changed not received")
	}
}
