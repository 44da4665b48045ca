package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"registration-service/internal/adminclient"
	"registration-service/internal/registration"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T, posts *atomic.Int32) string {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/api/catalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"strict":false,"services":[]}}`))
	})
	router.Post("/api/registrations", func(w http.ResponseWriter, _ *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"Email already registered"}`))
	})
	router.Get("/api/registrations", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"1","email":"asha@example.com","fullName":"Asha Rao","service":"EduTech"}],"total":1,"page":1,"pageSize":100,"totalPages":1}`))
	})
	router.Get("/api/registrations/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"total":1,"byService":[{"service":"EduTech","count":1}]}}`))
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRegctl_ListAndStats(t *testing.T) {
	var posts atomic.Int32
	url := fakeServer(t, &posts)

	out, _, err := run(t, "--server", url, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "asha@example.com")
	assert.Contains(t, out, "page 1 of 1, 1 total")

	out, _, err = run(t, "--server", url, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "EduTech")
	assert.Contains(t, out, "total")
}

func TestRegctl_RegisterValidatesLocally(t *testing.T) {
	var posts atomic.Int32
	url := fakeServer(t, &posts)

	_, stderr, err := run(t, "--server", url, "register",
		"--full-name", "Asha Rao", "--email", "asha@example.com", "--phone", "123",
		"--service", "EduTech", "--course", "Online Tutoring")
	require.Error(t, err)
	assert.Contains(t, stderr, "phone: Phone number must be 10 digits")
	assert.Equal(t, int32(0), posts.Load())
}

func TestRegctl_RegisterShowsServerMessage(t *testing.T) {
	var posts atomic.Int32
	url := fakeServer(t, &posts)

	_, stderr, err := run(t, "--server", url, "register",
		"--full-name", "Asha Rao", "--email", "asha@example.com", "--phone", "9876543210",
		"--service", "EduTech", "--course", "Online Tutoring")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
	assert.True(t, strings.Contains(stderr, "Email already registered"))
	assert.Equal(t, int32(1), posts.Load())
}

func TestPrintWatchEvent_AppliesFilters(t *testing.T) {
	var out bytes.Buffer
	view := adminclient.NewView(adminclient.Query{Page: 1, Search: "asha", Service: "EduTech"})
	show := printWatchEvent(&out)

	show(view, adminclient.Event{Kind: adminclient.EventCreated, Registration: registration.Registration{
		ID: "1", FullName: "Asha Rao", Email: "asha@example.com", Service: "EduTech",
	}})
	show(view, adminclient.Event{Kind: adminclient.EventCreated, Registration: registration.Registration{
		ID: "2", FullName: "Ravi Kumar", Email: "ravi@example.com", Service: "EduTech",
	}})
	show(view, adminclient.Event{Kind: adminclient.EventCreated, Registration: registration.Registration{
		ID: "3", FullName: "Asha Menon", Email: "menon@example.com", Service: "Data Science",
	}})

	assert.Contains(t, out.String(), "asha@example.com")
	assert.NotContains(t, out.String(), "ravi@example.com")
	assert.NotContains(t, out.String(), "menon@example.com")
}
