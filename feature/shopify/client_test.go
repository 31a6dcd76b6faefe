package shopify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"country-feed-sync/feature/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *shopify.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := shopify.Config{
		Endpoint:       server.URL,
		Token:          "test-token",
		TimeoutSeconds: 5,
	}
	return shopify.NewClient(cfg, zap.NewNop())
}

func TestExecute_DecodesData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"data":{"shop":{"name":"demo"}}}`))
	})

	var out struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	err := client.Execute(context.Background(), `{ shop { name } }`, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "demo", out.Shop.Name)
}

func TestExecute_GraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Throttled"},{"message":"Field missing"}]}`))
	})

	err := client.Execute(context.Background(), `{ shop { name } }`, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")
	assert.Contains(t, err.Error(), "Field missing")
}

func TestExecute_HTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	err := client.Execute(context.Background(), `{ shop { name } }`, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestConfigValidate(t *testing.T) {
	t.Run("MissingStore", func(t *testing.T) {
		cfg := shopify.Config{Token: "shpat_0123456789abcdef0123"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("ShortToken", func(t *testing.T) {
		cfg := shopify.Config{StoreID: "demo", Token: "short"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := shopify.Config{StoreID: "demo", Token: "shpat_0123456789abcdef0123"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("EndpointOverrideSkipsChecks", func(t *testing.T) {
		cfg := shopify.Config{Endpoint: "http://127.0.0.1:9999"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestGraphQLEndpoint(t *testing.T) {
	cfg := shopify.Config{StoreID: "demo", APIVersion: "2024-07"}
	assert.Equal(t, "https://demo.myshopify.com/admin/api/2024-07/graphql.json", cfg.GraphQLEndpoint())
}
