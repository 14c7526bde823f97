package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "query": "gregarious",
  "translation": ["sociable"],
  "basic": {"us-phonetic": "ɡrɪˈɡeriəs", "explains": ["adj. fond of company", "adj. living in flocks"]}
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "gregarious":
			assert.Equal(t, "json", r.URL.Query().Get("doctype"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleResponse))
		case "boom":
			http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
		case "garbled":
			_, _ = w.Write([]byte(`{not json`))
		default:
			_, _ = w.Write([]byte(`{"translation":["???"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientTranslate(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(ClientOptions{Endpoint: srv.URL + "/api?type=data", Params: map[string]string{"doctype": "json"}}, srv.Client())
	require.NoError(t, err)

	res, err := c.Translate(context.Background(), " gregarious ")
	require.NoError(t, err)
	require.NotNil(t, res.Basic)
	assert.Equal(t, "ɡrɪˈɡeriəs", res.Basic.USPhonetic)
	assert.Equal(t, []string{"adj. fond of company", "adj. living in flocks"}, res.Basic.Explains)
	assert.Equal(t, []string{"sociable"}, res.Translation)
}

func TestClientTranslateNoData(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(ClientOptions{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = c.Translate(context.Background(), "qwxz")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = c.Translate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestClientTranslateErrors(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(ClientOptions{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, err)

	_, err = c.Translate(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = c.Translate(context.Background(), "garbled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode translate response")
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientOptions{}, nil)
	require.Error(t, err)

	c, err := NewClient(ClientOptions{Endpoint: "http://dict.example", Timeout: time.Second}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

func TestAudioURL(t *testing.T) {
	c, err := NewClient(ClientOptions{Endpoint: "http://dict.example", AudioURL: "http://voice.example/voice?audio=%s&type=2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://voice.example/voice?audio=ice+cream&type=2", c.AudioURL("ice cream"))

	c, err = NewClient(ClientOptions{Endpoint: "http://dict.example"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", c.AudioURL("word"))
}

func TestChain(t *testing.T) {
	failing := ProviderFunc(func(ctx context.Context, word string) (*Result, error) {
		return nil, errors.New("offline")
	})
	empty := ProviderFunc(func(ctx context.Context, word string) (*Result, error) {
		return nil, ErrNoData
	})
	full := ProviderFunc(func(ctx context.Context, word string) (*Result, error) {
		return &Result{Query: word, Basic: &Basic{Explains: []string{"n. test"}}}, nil
	})

	res, err := Chain{empty, failing, full}.Translate(context.Background(), "word")
	require.NoError(t, err)
	assert.Equal(t, "word", res.Query)

	_, err = Chain{empty}.Translate(context.Background(), "word")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Chain{empty, failing}.Translate(context.Background(), "word")
	assert.EqualError(t, err, "offline")

	_, err = Chain{}.Translate(context.Background(), "word")
	assert.ErrorIs(t, err, ErrNoData)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chain{full}.Translate(ctx, "word")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	p := ProviderFunc(func(ctx context.Context, word string) (*Result, error) {
		calls.Add(1)
		if word == "missing" {
			return nil, ErrNoData
		}
		return &Result{Query: word, Basic: &Basic{}}, nil
	})

	c, err := NewCached(p, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := c.Translate(context.Background(), "alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", res.Query)
	}
	assert.Equal(t, int32(1), calls.Load())

	for i := 0; i < 2; i++ {
		_, err = c.Translate(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNoData)
	}
	assert.Equal(t, int32(3), calls.Load(), "misses are not cached")
	assert.Equal(t, 1, c.Len())

	_, err = NewCached(p, 0)
	assert.Error(t, err)
}
