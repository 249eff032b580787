package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/trainersamay-api/internal/events"
	"github.com/noah-isme/trainersamay-api/internal/models"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAudit) actions() []string {
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type mockUserRepo struct {
	users   map[string]*models.User
	tokens  map[string]*models.RefreshToken
	findErr error
	seq     int

	lastLoginUpdated bool
	revokedUsers     []string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == models.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.sorted() {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) ListTrainers(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.sorted() {
		if u.Role == models.RoleTrainer && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) sorted() []models.User {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockUserRepo) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	count := 0
	for _, u := range m.users {
		if u.Role == role && u.Active {
			count++
		}
	}
	return count, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Active = false
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string, _ time.Time) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.seq++
	token.ID = fmt.Sprintf("rt-%d", m.seq)
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	rt, ok := m.tokens[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockUserRepo) RevokeRefreshToken(_ context.Context, id string, revokedAt time.Time) error {
	for _, rt := range m.tokens {
		if rt.ID == id {
			at := revokedAt
			rt.RevokedAt = &at
		}
	}
	return nil
}

type mockAvailabilityRepo struct {
	items       []models.Availability
	replaced    []models.Availability
	replaceHits int
}

func (m *mockAvailabilityRepo) List(_ context.Context) ([]models.Availability, error) {
	return m.items, nil
}

func (m *mockAvailabilityRepo) ListByTrainer(_ context.Context, trainerID string) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range m.items {
		if a.TrainerID == trainerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) Replace(_ context.Context, trainerID string, slots []models.Availability) ([]models.Availability, error) {
	m.replaceHits++
	kept := m.items[:0:0]
	for _, a := range m.items {
		if a.TrainerID != trainerID {
			kept = append(kept, a)
		}
	}
	for i := range slots {
		slots[i].TrainerID = trainerID
		slots[i].ID = fmt.Sprintf("avail-%s-%d", trainerID, i)
	}
	m.items = append(kept, slots...)
	m.replaced = slots
	return slots, nil
}

// mockSessionRepo applies guards against its in-memory rows the way the
// SQL repository applies them against locked rows.
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions []models.Session
	seq      int
	listErr  error

	lastFilter models.SessionFilter
	marked     []string
	beforeMark func([]models.Session)
}

func (m *mockSessionRepo) List(_ context.Context, filter models.SessionFilter) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Session
	for _, s := range m.sessions {
		if filter.TrainerID != "" && s.TrainerID != filter.TrainerID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.From != nil && s.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.Date.Before(*filter.To) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) NextScheduled(_ context.Context, trainerID string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *models.Session
	for i := range m.sessions {
		s := m.sessions[i]
		if s.Status != models.SessionScheduled || !s.Date.After(now) {
			continue
		}
		if trainerID != "" && s.TrainerID != trainerID {
			continue
		}
		if next == nil || s.Date.Before(next.Date) {
			next = &s
		}
	}
	if next == nil {
		return nil, sql.ErrNoRows
	}
	return next, nil
}

func (m *mockSessionRepo) ListScheduledBefore(_ context.Context, cutoff time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.Status == models.SessionScheduled && s.Date.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) trainerRows(trainerID string) []models.Session {
	var out []models.Session
	for _, s := range m.sessions {
		if s.TrainerID == trainerID {
			out = append(out, s)
		}
	}
	return out
}

func (m *mockSessionRepo) CreateBatch(_ context.Context, sessions []*models.Session, guard models.SessionGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(sessions) == 0 {
		return nil
	}
	if guard != nil {
		if err := guard(m.trainerRows(sessions[0].TrainerID)); err != nil {
			return err
		}
	}
	for _, s := range sessions {
		m.seq++
		s.ID = fmt.Sprintf("session-%d", m.seq)
		m.sessions = append(m.sessions, *s)
	}
	return nil
}

func (m *mockSessionRepo) UpdateGuarded(_ context.Context, session *models.Session, guard models.SessionGuard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if guard != nil {
		if err := guard(m.trainerRows(session.TrainerID)); err != nil {
			return err
		}
	}
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			m.sessions[i] = *session
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockSessionRepo) UpdateStatus(_ context.Context, id string, status models.SessionStatus, feedback *string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions[i].Status = status
			if feedback != nil {
				m.sessions[i].Feedback = *feedback
			}
			m.sessions[i].UpdatedAt = at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockSessionRepo) MarkAbsent(_ context.Context, ids []string, _ time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeMark != nil {
		m.beforeMark(m.sessions)
	}
	var changed []string
	for _, id := range ids {
		for i := range m.sessions {
			if m.sessions[i].ID == id && m.sessions[i].Status == models.SessionScheduled {
				m.sessions[i].Status = models.SessionAbsent
				m.marked = append(m.marked, id)
				changed = append(changed, id)
			}
		}
	}
	return changed, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockSessionRepo) status(id string) models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return s.Status
		}
	}
	return ""
}

type publishedEvent struct {
	kind    events.Kind
	session models.Session
	actorID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishSession(_ context.Context, kind events.Kind, s models.Session, actorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: kind, session: s, actorID: actorID})
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

type stubCacheRepo struct {
	store       map[string]interface{}
	ttls        map[string]time.Duration
	invalidated []string
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{store: map[string]interface{}{}, ttls: map[string]time.Duration{}}
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *models.ReportSummary:
		*d = v.(models.ReportSummary)
	case *models.DashboardStats:
		*d = v.(models.DashboardStats)
	}
	return nil
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	s.store[key] = value
	s.ttls[key] = ttl
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	s.store = map[string]interface{}{}
	return nil
}

func trainer(id, name string) *models.User {
	return &models.User{ID: id, Name: name, Email: id + "@example.com", Role: models.RoleTrainer, Active: true}
}

func adminActor() models.Actor {
	return models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
}

func trainerActor(id string) models.Actor {
	return models.Actor{UserID: id, Role: models.RoleTrainer}
}
