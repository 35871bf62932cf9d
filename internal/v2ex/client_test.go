package v2ex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicsByNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/topics/show.json", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("node_name"))
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"id":11,"title":"Generics","replies":7,"url":"","content":"body","node":{"name":"golang"},"created":1700000000}]`)
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL+"/", "tkn", srv.Client()).TopicsByNode(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "11", items[0].LocalID)
	assert.Equal(t, srv.URL+"/t/11", items[0].Link)
	assert.Equal(t, 7, items[0].Points)
	assert.Equal(t, "body", items[0].Description)
}

func TestTopicsByNodeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err := NewClient(srv.URL, "", nil).TopicsByNode(context.Background(), "go")
	assert.Error(t, err)
}
