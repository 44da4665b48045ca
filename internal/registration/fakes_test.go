package registration_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"registration-service/internal/registration"
)

// fakeRepo is an in-memory Repository enforcing the same email uniqueness
// as the unique constraint in Postgres.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]registration.Registration

	// err is returned from every call when set.
	err error
	// hideEmails makes GetByEmail miss so only the insert-time check applies.
	hideEmails bool

	statsCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]registration.Registration{}}
}

func (f *fakeRepo) Create(_ context.Context, reg *registration.Registration) (*registration.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.Email == reg.Email {
			return nil, registration.ErrEmailTaken
		}
	}
	f.rows[reg.ID] = *reg
	return reg, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*registration.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, registration.ErrRegistrationNotFound
	}
	return &r, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*registration.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.hideEmails {
		return nil, registration.ErrRegistrationNotFound
	}
	for _, r := range f.rows {
		if r.Email == registration.NormalizeEmail(email) {
			return &r, nil
		}
	}
	return nil, registration.ErrRegistrationNotFound
}

func (f *fakeRepo) List(_ context.Context, p registration.ListParams) ([]registration.Registration, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, 0, f.err
	}

	var matched []registration.Registration
	term := strings.ToLower(p.Search)
	for _, r := range f.rows {
		if p.Service != "" && r.Service != p.Service {
			continue
		}
		if term != "" && !containsAny(term, r.FullName, r.Email, r.Phone, r.Service, r.Course) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (p.Page - 1) * p.PageSize
	if start > total {
		start = total
	}
	end := start + p.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[id]; !ok {
		return registration.ErrRegistrationNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) CountByService(_ context.Context) ([]registration.ServiceCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statsCalls++
	if f.err != nil {
		return nil, f.err
	}
	counts := map[string]int{}
	for _, r := range f.rows {
		counts[r.Service]++
	}
	out := make([]registration.ServiceCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, registration.ServiceCount{Service: s, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func containsAny(term string, fields ...string) bool {
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []registration.Registration
	deleted []string
	err     error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) NotifyCreated(_ context.Context, reg registration.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, reg)
	return n.err
}

func (n *recordingNotifier) NotifyDeleted(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, id)
	return n.err
}

func (n *recordingNotifier) createdCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func validInput() registration.Input {
	return registration.Input{
		FullName:    "Asha Rao",
		Email:       "ASHA@Example.com",
		Phone:       "9876543210",
		PassingYear: registration.YearOf(2021),
		Service:     "EduTech",
		Course:      "Online Tutoring",
	}
}
