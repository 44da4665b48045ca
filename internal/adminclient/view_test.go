package adminclient

import (
	"testing"

	"registration-service/internal/registration"

	"github.com/stretchr/testify/assert"
)

func TestView_ReplaceApplyRemove(t *testing.T) {
	v := NewView(Query{Page: 1, PageSize: 2})

	v.Replace(&registration.ListResult{
		Records:  []registration.Registration{rec("a", "a@example.com", "A"), rec("b", "b@example.com", "B")},
		Total:    5,
		Page:     1,
		PageSize: 2,
	})
	assert.Len(t, v.Records, 2)
	assert.Equal(t, 5, v.Total)

	assert.True(t, v.Apply(rec("c", "c@example.com", "C")))
	assert.Equal(t, 6, v.Total)
	assert.Equal(t, "c", v.Records[0].ID)

	assert.False(t, v.Apply(rec("c", "c@example.com", "C2")))
	assert.Equal(t, 6, v.Total)
	assert.Equal(t, "C2", v.Records[0].FullName)

	v.Remove("a")
	assert.Equal(t, 5, v.Total)
	assert.Len(t, v.Records, 2)

	v.Remove("missing")
	assert.Equal(t, 5, v.Total)

	// a fresh fetch wins over local merges
	v.Replace(&registration.ListResult{Total: 0})
	assert.Empty(t, v.Records)
	assert.Equal(t, 0, v.Total)
	assert.Equal(t, 1, v.Page)
}

func TestView_Filtered(t *testing.T) {
	v := &View{Records: []registration.Registration{
		{ID: "1", FullName: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Service: "EduTech", Course: "Online Tutoring"},
		{ID: "2", FullName: "Ravi Kumar", Email: "ravi@example.com", Phone: "9123456780", Service: "IT Services", Course: "Web Development"},
		{ID: "3", FullName: "Meera Iyer", Email: "meera@example.com", Phone: "9000000000", Service: "EduTech", Course: "Learning Management System"},
	}}

	ids := func(rs []registration.Registration) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(v.Filtered()))

	v.Search = "WEB"
	assert.Equal(t, []string{"2"}, ids(v.Filtered()))

	v.Search = "91234"
	assert.Equal(t, []string{"2"}, ids(v.Filtered()))

	v.Search = ""
	v.Service = "EduTech"
	assert.Equal(t, []string{"1", "3"}, ids(v.Filtered()))

	v.Search = "meera"
	assert.Equal(t, []string{"3"}, ids(v.Filtered()))

	v.Service = "edutech"
	assert.Empty(t, v.Filtered(), "service filter is an exact match")
}
