package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"registration-service/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MergesDuplicatesAndKeepsOrder(t *testing.T) {
	c := New(true, []Service{
		{Name: "EduTech", Courses: []string{"Online Tutoring"}},
		{Name: " Data Science ", Courses: []string{"Machine Learning", ""}},
		{Name: "EduTech", Courses: []string{"Online Tutoring", "Learning Management System"}},
		{Name: "  "},
	})

	assert.True(t, c.Strict())
	assert.Equal(t, []Service{
		{Name: "EduTech", Courses: []string{"Online Tutoring", "Learning Management System"}},
		{Name: "Data Science", Courses: []string{"Machine Learning"}},
	}, c.Services())
}

func TestCatalog_Lookups(t *testing.T) {
	c := FromConfig(config.CatalogConfig{
		Services: []config.CatalogService{
			{Name: "EduTech", Courses: []string{"Online Tutoring"}},
		},
	})

	assert.False(t, c.Strict())
	assert.True(t, c.HasService("EduTech"))
	assert.False(t, c.HasService("edutech"))
	assert.True(t, c.HasCourse("EduTech", "Online Tutoring"))
	assert.False(t, c.HasCourse("EduTech", "Machine Learning"))
	assert.False(t, c.HasCourse("Unknown", "Online Tutoring"))
}

func TestCatalog_NilIsEmpty(t *testing.T) {
	var c *Catalog
	assert.False(t, c.Strict())
	assert.False(t, c.HasService("EduTech"))
	assert.Nil(t, c.Services())
}

func TestServices_ReturnsCopy(t *testing.T) {
	c := New(false, []Service{{Name: "EduTech", Courses: []string{"Online Tutoring"}}})
	out := c.Services()
	out[0].Courses[0] = "changed"

	assert.Equal(t, "Online Tutoring", c.Services()[0].Courses[0])
}

func TestHandler_Get(t *testing.T) {
	c := New(true, []Service{
		{Name: "IT Services", Courses: []string{"Web Development"}},
		{Name: "Consulting"},
	})

	router := chi.NewRouter()
	NewHandler(c).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool     `json:"success"`
		Data    response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Strict)
	require.Len(t, body.Data.Services, 2)
	assert.Equal(t, []string{"Web Development"}, body.Data.Services[0].Courses)
	assert.NotNil(t, body.Data.Services[1].Courses)
	assert.Contains(t, rec.Body.String(), `"courses":[]`)
}
