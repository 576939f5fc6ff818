package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podkeep/internal/apiclient"
)

func TestClientDecodesEnvelopes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/status":
			_, _ = w.Write([]byte(`{"success":true,"status":{"running":true,"episodes":4}}`))
		case r.URL.Path == "/api/downloads":
			_, _ = w.Write([]byte(`{"success":true,"downloads":[{"id":"t1","status":"pending"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := apiclient.NewForAddress(strings.TrimPrefix(server.URL, "http://"), "")

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.Episodes != 4 {
		t.Fatalf("unexpected status: %+v", status)
	}

	tasks, err := client.ListDownloads(context.Background())
	if err != nil {
		t.Fatalf("list downloads: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			http.Error(w, `{"success":false,"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"status":"ok"}`))
	}))
	defer server.Close()

	client := apiclient.NewForAddress(strings.TrimPrefix(server.URL, "http://"), "sekrit")
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("health with token: %v", err)
	}

	bare := apiclient.NewForAddress(strings.TrimPrefix(server.URL, "http://"), "")
	err := bare.Health(context.Background())
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestClientSurfacesErrorMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":"task t1 is already completed"}`))
	}))
	defer server.Close()

	client := apiclient.NewForAddress(strings.TrimPrefix(server.URL, "http://"), "")
	_, err := client.CancelDownload(context.Background(), "t1")

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || !strings.Contains(apiErr.Message, "already completed") {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}
