package lookup

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/japaniel/wordcard/pkg/db"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.InitDB(conn))
	t.Cleanup(func() { conn.Close() })
	return NewService(conn, zerolog.Nop()), conn
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleCreateFindRemove(t *testing.T) {
	svc, conn := setupService(t)
	ctx := context.Background()

	resp, err := svc.Handle(ctx, Request{Action: ActionFind, Word: "ephemeral"})
	require.NoError(t, err)
	assert.Nil(t, resp.Data)

	resp, err = svc.Handle(ctx, Request{Action: ActionCreate, Data: rawJSON(t, map[string]any{
		"name":     "ephemeral",
		"sentence": "Fame is ephemeral. ",
		"trans":    []string{"short-lived"},
		"tags":     []string{"gre"},
		"source":   "https://example.com/a",
		"host":     "example.com",
	})})
	require.NoError(t, err)
	saved, ok := resp.Data.(*db.Word)
	require.True(t, ok)
	assert.Equal(t, "ephemeral", saved.Name)
	assert.Equal(t, "Fame is ephemeral.", saved.Sentence)
	assert.Equal(t, []string{"short-lived"}, saved.Trans)

	// the save also recorded where the word was seen
	contexts, err := db.GetWordContexts(conn, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fame is ephemeral."}, contexts)

	resp, err = svc.Handle(ctx, Request{Action: ActionFind, Word: "ephemeral"})
	require.NoError(t, err)
	found, ok := resp.Data.(*db.Word)
	require.True(t, ok)
	assert.Equal(t, saved.ID, found.ID)

	resp, err = svc.Handle(ctx, Request{Action: ActionRemove, Word: "ephemeral"})
	require.NoError(t, err)
	assert.Equal(t, true, resp.Data)

	resp, err = svc.Handle(ctx, Request{Action: ActionRemove, Word: "ephemeral"})
	require.NoError(t, err)
	assert.Equal(t, false, resp.Data)

	resp, err = svc.Handle(ctx, Request{Action: ActionFind, Word: "ephemeral"})
	require.NoError(t, err)
	assert.Nil(t, resp.Data)
}

func TestHandleCreateUsesRequestWord(t *testing.T) {
	svc, _ := setupService(t)
	resp, err := svc.Handle(context.Background(), Request{Action: ActionCreate, Word: "laconic"})
	require.NoError(t, err)
	assert.Equal(t, "laconic", resp.Data.(*db.Word).Name)
}

func TestHandleCreateOverwrites(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Handle(ctx, Request{Action: ActionCreate, Data: rawJSON(t, db.WordInput{Name: "wane", Trans: []string{"decrease"}})})
	require.NoError(t, err)
	resp, err := svc.Handle(ctx, Request{Action: ActionCreate, Data: rawJSON(t, db.WordInput{Name: "wane", Trans: []string{"fade"}})})
	require.NoError(t, err)
	assert.Equal(t, []string{"fade"}, resp.Data.(*db.Word).Trans)

	resp, err = svc.Handle(ctx, Request{Action: ActionGet})
	require.NoError(t, err)
	assert.Len(t, resp.Data.([]db.Word), 1)
}

func TestHandleGetWithFilter(t *testing.T) {
	svc, conn := setupService(t)
	ctx := context.Background()

	for _, in := range []db.WordInput{
		{Name: "alpha", Tags: []string{"x"}},
		{Name: "alphabet", Tags: []string{"y"}},
		{Name: "beta", Tags: []string{"x"}},
	} {
		_, err := svc.Create(in)
		require.NoError(t, err)
	}
	beta, err := db.FindWord(conn, "beta")
	require.NoError(t, err)
	require.NoError(t, db.UpdateWordLevel(conn, beta.ID, db.LevelMastered))

	names := func(resp Response) []string {
		var out []string
		for _, w := range resp.Data.([]db.Word) {
			out = append(out, w.Name)
		}
		return out
	}

	resp, err := svc.Handle(ctx, Request{Action: ActionGet, Data: json.RawMessage(`null`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "alphabet", "beta"}, names(resp))

	resp, err = svc.Handle(ctx, Request{Action: ActionGet, Data: json.RawMessage(`{"wordSearchText":"ALPHA","tags":["y"]}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alphabet"}, names(resp))

	resp, err = svc.Handle(ctx, Request{Action: ActionGet, Data: json.RawMessage(`{"level":3}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names(resp))

	resp, err = svc.Handle(ctx, Request{Action: ActionGet, Data: json.RawMessage(`{"wordSearchText":"zeta"}`)})
	require.NoError(t, err)
	assert.Equal(t, []db.Word{}, resp.Data)
}

func TestHandleErrors(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Handle(ctx, Request{Action: "translate"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = svc.Handle(ctx, Request{Action: ActionFind})
	assert.ErrorIs(t, err, ErrMissingWord)

	_, err = svc.Handle(ctx, Request{Action: ActionCreate, Data: json.RawMessage(`{"name":`)})
	assert.Error(t, err)

	_, err = svc.Handle(ctx, Request{Action: ActionGet, Data: json.RawMessage(`[1,2]`)})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Handle(cancelled, Request{Action: ActionGet})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResponseJSON(t *testing.T) {
	b, err := json.Marshal(Response{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":null}`, string(b))
}
