package registry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/logger"
	"go.trai.ch/ims/internal/adapters/registry"
	"go.trai.ch/ims/internal/core/domain"
)

func quietLogger() *logger.Logger {
	l := logger.New().(*logger.Logger)
	l.SetOutput(io.Discard)
	return l
}

func serveFeed(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_changes", r.URL.Path)
		query = r.URL.RawQuery
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &query
}

func collect(t *testing.T, c *registry.Client, since uint64) ([]domain.ChangeEvent, error) {
	t.Helper()
	var events []domain.ChangeEvent
	err := c.Stream(context.Background(), since, func(_ context.Context, ev domain.ChangeEvent) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestClient_StreamOrderedVersions(t *testing.T) {
	t.Parallel()
	body := `{"seq":3,"id":"left-pad","doc":{"versions":{` +
		`"1.0.1":{"dependencies":{"b":"^1.0.0"}},` +
		`"1.0.0":{"dependencies":{"a":"~2.0.0"},"devDependencies":{"tap":"*"}},` +
		`"0.9.0":{}}}}` + "\n" +
		"\n" +
		`{"seq":"4-g1AAAA","id":"gone","deleted":true}` + "\n" +
		`{"last_seq":4}` + "\n"

	srv, query := serveFeed(t, http.StatusOK, body)
	c := registry.NewClient(srv.URL+"/", quietLogger())

	events, err := collect(t, c, 2)
	require.NoError(t, err)
	assert.Equal(t, "feed=continuous&include_docs=true&since=2", *query)

	require.Len(t, events, 2)
	assert.Equal(t, uint64(3), events[0].Seq)
	assert.Equal(t, "left-pad", events[0].ID)
	require.Len(t, events[0].Versions, 3)
	assert.Equal(t, "1.0.1", events[0].Versions[0].Version)
	assert.Equal(t, "1.0.0", events[0].Versions[1].Version)
	assert.Equal(t, "0.9.0", events[0].Versions[2].Version)
	assert.Equal(t, map[string]any{"b": "^1.0.0"}, events[0].Versions[0].Dependencies)
	assert.Equal(t, map[string]any{"tap": "*"}, events[0].Versions[1].DevDependencies)
	assert.Nil(t, events[0].Versions[2].Dependencies)

	assert.Equal(t, uint64(4), events[1].Seq)
	assert.True(t, events[1].Deleted)
	assert.Empty(t, events[1].Versions)
}

func TestClient_SkipsDesignDocuments(t *testing.T) {
	t.Parallel()
	body := `{"seq":1,"id":"_design/app"}` + "\n" +
		`{"seq":2,"id":"x","doc":{"versions":null}}` + "\n"

	srv, _ := serveFeed(t, http.StatusOK, body)
	events, err := collect(t, registry.NewClient(srv.URL, quietLogger()), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].ID)
	assert.Nil(t, events[0].Versions)
}

func TestClient_IgnoresMalformedDependencyValues(t *testing.T) {
	t.Parallel()
	body := `{"seq":1,"id":"odd","doc":{"versions":{"1.0.0":{"dependencies":["a"],"devDependencies":{"b":"1"}}}}}` + "\n"

	srv, _ := serveFeed(t, http.StatusOK, body)
	events, err := collect(t, registry.NewClient(srv.URL, quietLogger()), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Versions, 1)
	assert.Nil(t, events[0].Versions[0].Dependencies)
	assert.Equal(t, map[string]any{"b": "1"}, events[0].Versions[0].DevDependencies)
}

func TestClient_StatusError(t *testing.T) {
	t.Parallel()
	srv, _ := serveFeed(t, http.StatusServiceUnavailable, "")

	_, err := collect(t, registry.NewClient(srv.URL, quietLogger()), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedStatus)
}

func TestClient_ParseError(t *testing.T) {
	t.Parallel()
	srv, _ := serveFeed(t, http.StatusOK, `{"seq":1,"id":`+"\n")

	_, err := collect(t, registry.NewClient(srv.URL, quietLogger()), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedParseFailed)
}

func TestClient_HandlerErrorStopsStream(t *testing.T) {
	t.Parallel()
	body := `{"seq":1,"id":"a"}` + "\n" + `{"seq":2,"id":"b"}` + "\n"
	srv, _ := serveFeed(t, http.StatusOK, body)

	boom := errors.New("boom")
	calls := 0
	err := registry.NewClient(srv.URL, quietLogger()).Stream(context.Background(), 0,
		func(context.Context, domain.ChangeEvent) error {
			calls++
			return boom
		})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := collect(t, registry.NewClient(url, quietLogger()), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedRequestFailed)
}

func TestClient_FinalLineWithoutNewline(t *testing.T) {
	t.Parallel()
	srv, _ := serveFeed(t, http.StatusOK, `{"seq":9,"id":"tail"}`)

	events, err := collect(t, registry.NewClient(srv.URL, quietLogger()), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(9), events[0].Seq)
}
