package regclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"registration-service/internal/adminclient"
	"registration-service/internal/logger"
	"registration-service/internal/registration"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() registration.Input {
	return registration.Input{
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "9876543210",
		PassingYear: registration.YearOf(2021),
		Service:     "EduTech",
		Course:      "Online Tutoring",
	}
}

type server struct {
	posts  atomic.Int32
	status int
	body   string
}

func newClient(t *testing.T, s *server) *Client {
	t.Helper()

	router := chi.NewRouter()
	router.Post("/api/registrations", func(w http.ResponseWriter, r *http.Request) {
		s.posts.Add(1)
		var in registration.Input
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
	})
	router.Get("/api/catalog", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"strict":true,"services":[{"name":"EduTech","courses":["Online Tutoring"]}]}}`))
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	api, err := adminclient.New(srv.URL, logger.Discard(), adminclient.WithRetries(0))
	require.NoError(t, err)
	return New(api)
}

func TestSubmit_Success(t *testing.T) {
	s := &server{status: http.StatusCreated, body: `{"success":true,"data":{"id":"abc","email":"asha@example.com"}}`}
	c := newClient(t, s)

	reg, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "abc", reg.ID)
	assert.Equal(t, int32(1), s.posts.Load())
}

func TestSubmit_LocalValidationNeverReachesServer(t *testing.T) {
	s := &server{status: http.StatusCreated, body: `{"success":true,"data":{}}`}
	c := newClient(t, s)

	in := validInput()
	in.Phone = "12345"
	in.Email = "not-an-email"

	_, err := c.Submit(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, int32(0), s.posts.Load())

	fields := FieldErrors(err)
	assert.Equal(t, "Phone number must be 10 digits", fields["phone"])
	assert.Equal(t, "Please enter a valid email", fields["email"])
	assert.Contains(t, Message(err), "Phone number must be 10 digits")
}

func TestSubmit_ServerMessageVerbatim(t *testing.T) {
	s := &server{status: http.StatusBadRequest, body: `{"success":false,"message":"Email already registered"}`}
	c := newClient(t, s)

	_, err := c.Submit(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, "Email already registered", Message(err))
}

func TestLoadCatalog_EnablesCourseCheck(t *testing.T) {
	s := &server{status: http.StatusCreated, body: `{"success":true,"data":{"id":"x","email":"asha@example.com"}}`}
	c := newClient(t, s)

	in := validInput()
	in.Course = "Underwater Basket Weaving"
	assert.NoError(t, c.Validate(in), "without a catalog any course is accepted")

	cat, err := c.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, cat.Strict())

	err = c.Validate(in)
	require.Error(t, err)
	assert.Contains(t, FieldErrors(err)["course"], "is not offered")
}
