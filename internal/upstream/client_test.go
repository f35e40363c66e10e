package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blumetech/alertablu-dash/internal/config"
)

const feedBody = `{
	"dados": [
		{
			"id": 38351,
			"tipo": "cch",
			"tipoNome": "Condições de Chuva",
			"descricao": "retorno normalidade",
			"create_data": "2025-03-14T09:29:09.830Z",
			"sitregioes": [
				{
					"regiao": {"id": 4, "nome": "Central", "bairros": ["Centro", "Bom Retiro"]},
					"condicao": {"id": 61, "nivel": 1, "condicao": "Normalidade", "cor_fundo": "#64EE64", "cor_fonte": "#000000"}
				}
			],
			"extra_upstream_field": "must survive pass-through"
		}
	],
	"datahoraAtualizacao": "2025-03-14T21:11:41.274Z"
}`

func testClient(url string, timeout time.Duration) *Client {
	return NewClient(config.UpstreamConfig{
		URL:       url,
		Timeout:   timeout,
		UserAgent: "test-agent/1.0",
	})
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	snapshot, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUA)
	require.Len(t, snapshot.Records, 1)
	assert.Equal(t, "cch", snapshot.Records[0].Type)
	assert.Equal(t, 1, snapshot.Records[0].RegionStatuses[0].Condition.Level)
	assert.Equal(t, 2025, snapshot.UpdatedAt.Year())

	// Raw body is retained byte for byte, including undeclared fields.
	assert.Equal(t, []byte(feedBody), snapshot.Raw)
}

func TestFetch_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.Error(t, err)

	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindHTTPStatus, upErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, upErr.Status)
	assert.NotEmpty(t, upErr.Error())
}

func TestFetch_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance page</html>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidPayload, upErr.Kind)
}

func TestFetch_MissingDadosIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"datahoraAtualizacao": "2025-03-14T21:11:41.274Z"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidPayload, upErr.Kind)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 20*time.Millisecond).Fetch(context.Background())
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, upErr.Kind)
}

func TestFetch_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(ctx)
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, upErr.Kind)
}

func TestFetch_ConnectionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url, time.Second).Fetch(context.Background())
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindConnectionFailed, upErr.Kind)
}

func TestFetch_InsecureTLSScopedToHost(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	// Self-signed certificate: only succeeds because verification is relaxed.
	client := NewClient(config.UpstreamConfig{
		URL:         srv.URL,
		Timeout:     5 * time.Second,
		UserAgent:   "test-agent/1.0",
		InsecureTLS: true,
	})

	snapshot, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Records, 1)

	// Without the relaxation the same fetch must fail at the handshake.
	strict := testClient(srv.URL, 5*time.Second)
	_, err = strict.Fetch(context.Background())
	require.Error(t, err)
	upErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindConnectionFailed, upErr.Kind)
}
