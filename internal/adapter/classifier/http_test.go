package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

func TestHTTPClassifier_Classify(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, image, decoded)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"issue_type":"Street Light","confidence":0.82}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	got, err := c.Classify(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, complaint.IssueTypeStreetLight, got.IssueType)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
}

func TestHTTPClassifier_UnknownLabelIsOther(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"issue_type":"graffiti","confidence":0.9}`))
	}))
	defer srv.Close()

	got, err := NewHTTPClassifier(srv.URL, time.Second).Classify(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, complaint.IssueTypeOther, got.IssueType)
}

func TestHTTPClassifier_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	_, err := NewHTTPClassifier(srv.URL+"/broken", time.Second).Classify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")

	_, err = NewHTTPClassifier(srv.URL, time.Second).Classify(context.Background(), []byte("img"))
	assert.Error(t, err)
}
