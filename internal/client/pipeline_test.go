package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(baseURL string) *Pipeline {
	return New(
		SecurityContext{BaseURL: baseURL, SessionToken: "session-token"},
		CSRFOptions{},
		5*time.Second,
		NewMetrics(),
		nil,
	)
}

func TestExecuteSuccessUnwrapsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":7}}`))
	}))
	defer server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/students/pending")
	require.True(t, outcome.Success)
	assert.Equal(t, FailureNone, outcome.Kind)

	var payload struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, outcome.Decode(&payload))
	assert.Equal(t, int64(7), payload.ID)
}

func TestExecuteSuccessWithoutFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[1,2,3]}`))
	}))
	defer server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/anything")
	require.True(t, outcome.Success)

	var payload struct {
		Items []int `json:"items"`
	}
	require.NoError(t, outcome.Decode(&payload))
	assert.Len(t, payload.Items, 3)
}

func TestExecuteLogicalRejectionInside2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"entity is not in a state that allows this action"}`))
	}))
	defer server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/x")
	require.False(t, outcome.Success)
	assert.Equal(t, FailureRejected, outcome.Kind)
	assert.Equal(t, "entity is not in a state that allows this action", outcome.Message)
	assert.Error(t, outcome.Err())
}

func TestExecuteValidationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"validation failed","errors":{"guardian_email":["guardian email is required","second message"],"name":"name is required"}}`))
	}))
	defer server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/x")
	require.False(t, outcome.Success)
	assert.Equal(t, FailureValidation, outcome.Kind)
	assert.Equal(t, "guardian email is required", outcome.FieldErrors["guardian_email"])
	assert.Equal(t, "name is required", outcome.FieldErrors["name"])
}

func TestExecuteStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   FailureKind
	}{
		{http.StatusUnauthorized, FailureUnauthenticated},
		{http.StatusNotFound, FailureNotFound},
		{http.StatusForbidden, FailureTransport},
		{http.StatusInternalServerError, FailureTransport},
		{http.StatusBadGateway, FailureTransport},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"message":"nope"}`))
		}))

		outcome := newTestPipeline(server.URL).Get(context.Background(), "/x")
		require.False(t, outcome.Success, "status %d", tc.status)
		assert.Equal(t, tc.kind, outcome.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, outcome.HTTPStatus)
		assert.Equal(t, "nope", outcome.Message)
		server.Close()
	}
}

func TestExecuteTruncatesNonJSONErrorBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(long))
	}))
	defer server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/x")
	require.False(t, outcome.Success)
	assert.Equal(t, FailureTransport, outcome.Kind)
	assert.Len(t, outcome.Message, maxRawBody)
}

func TestExecuteNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	outcome := newTestPipeline(server.URL).Get(context.Background(), "/x")
	require.False(t, outcome.Success)
	assert.Equal(t, FailureNetwork, outcome.Kind)
	assert.Zero(t, outcome.HTTPStatus)
	assert.Error(t, outcome.Err())
}

func TestMutationBootstrapsCSRFTokenOnce(t *testing.T) {
	var bootstraps, mutations int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/csrf-cookie" {
			atomic.AddInt32(&bootstraps, 1)
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "issued-token", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
			return
		}
		atomic.AddInt32(&mutations, 1)
		assert.Equal(t, "issued-token", r.Header.Get("X-CSRF-Token"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	pipeline := newTestPipeline(server.URL)
	ctx := context.Background()

	outcome := pipeline.Execute(ctx, http.MethodPost, "/students/pending/1/confirm", nil)
	require.True(t, outcome.Success)
	outcome = pipeline.Execute(ctx, http.MethodPost, "/students/pending/2/confirm", nil)
	require.True(t, outcome.Success)

	assert.Equal(t, int32(1), atomic.LoadInt32(&bootstraps))
	assert.Equal(t, int32(2), atomic.LoadInt32(&mutations))
}

func TestMutationProceedsWithoutObtainedToken(t *testing.T) {
	var bootstraps int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/csrf-cookie" {
			atomic.AddInt32(&bootstraps, 1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Empty(t, r.Header.Get("X-CSRF-Token"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	pipeline := newTestPipeline(server.URL)
	ctx := context.Background()

	require.True(t, pipeline.Execute(ctx, http.MethodPost, "/a", nil).Success)
	require.True(t, pipeline.Execute(ctx, http.MethodPost, "/b", nil).Success)

	// No token was ever obtained, so each detection bootstraps again.
	assert.Equal(t, int32(2), atomic.LoadInt32(&bootstraps))
}

func TestGetSkipsCSRFBootstrap(t *testing.T) {
	var bootstraps int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/csrf-cookie" {
			atomic.AddInt32(&bootstraps, 1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Empty(t, r.Header.Get("X-CSRF-Token"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	require.True(t, newTestPipeline(server.URL).Get(context.Background(), "/list").Success)
	assert.Zero(t, atomic.LoadInt32(&bootstraps))
}

func TestExecuteMultipartBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/csrf-cookie" {
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "value", r.FormValue("field"))
		file, header, err := r.FormFile("attachment")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "note.txt", header.Filename)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	body := &Multipart{
		Fields: map[string]string{"field": "value"},
		Files:  []FilePart{{Field: "attachment", Filename: "note.txt", Content: []byte("hello")}},
	}
	outcome := newTestPipeline(server.URL).Execute(context.Background(), http.MethodPost, "/upload", body)
	require.True(t, outcome.Success)
}

func TestPresetCSRFTokenSkipsBootstrap(t *testing.T) {
	var bootstraps int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/csrf-cookie" {
			atomic.AddInt32(&bootstraps, 1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Equal(t, "preset", r.Header.Get("X-CSRF-Token"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	pipeline := New(
		SecurityContext{BaseURL: server.URL, SessionToken: "t", CSRFToken: "preset"},
		CSRFOptions{},
		time.Second,
		nil,
		nil,
	)
	require.True(t, pipeline.Execute(context.Background(), http.MethodPost, "/x", nil).Success)
	assert.Zero(t, atomic.LoadInt32(&bootstraps))
}
