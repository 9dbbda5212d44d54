package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/internal/repository"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. It
// honours the same uniqueness and cascade rules as the schema.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	modules     map[string]*models.TrainingModule
	assignments map[string]*models.Assignment
	messages    []*models.Message
	auditLogs   []*models.AuditLog

	failNext  error
	batchErr  error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*models.User),
		modules:     make(map[string]*models.TrainingModule),
		assignments: make(map[string]*models.Assignment),
	}
}

func (f *fakeStore) addUser(id, username string, role models.UserRole, active bool) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &models.User{ID: id, Username: username, Email: username + "@example.com", Role: role, IsActive: active, CreatedAt: time.Now().UTC()}
	f.users[id] = u
	return u
}

func (f *fakeStore) addModule(id, title, createdBy string, active bool) *models.TrainingModule {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &models.TrainingModule{ID: id, Title: title, CreatedBy: createdBy, IsActive: active, CreatedAt: time.Now().UTC()}
	f.modules[id] = m
	return m
}

func (f *fakeStore) addAssignment(id, traineeID, moduleID string, completed bool, completedAt *time.Time) *models.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &models.Assignment{ID: id, TraineeID: traineeID, ModuleID: moduleID, IsCompleted: completed, CompletedAt: completedAt, AssignedAt: time.Now().UTC()}
	f.assignments[id] = a
	return a
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

// users

func (f *fakeStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	if u, ok := f.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if filter.ExcludeSuperuser && u.Role == models.RoleSuperAdmin {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, len(out), nil
}

func (f *fakeStore) ListByRole(ctx context.Context, role models.UserRole, activeOnly bool) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range f.users {
		if u.Role != role || (activeOnly && !u.IsActive) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeStore) CountByRole(ctx context.Context) ([]models.RoleCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[models.UserRole]*models.RoleCount{}
	for _, u := range f.users {
		c, ok := counts[u.Role]
		if !ok {
			c = &models.RoleCount{Role: u.Role}
			counts[u.Role] = c
		}
		if u.IsActive {
			c.Active++
		} else {
			c.Inactive++
		}
	}
	var out []models.RoleCount
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (f *fakeStore) Recent(ctx context.Context, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	copy := *user
	f.users[user.ID] = &copy
	return nil
}

func (f *fakeStore) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[user.ID]
	if !ok {
		return sql.ErrNoRows
	}
	role := existing.Role
	copy := *user
	copy.Role = role
	f.users[user.ID] = &copy
	return nil
}

func (f *fakeStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	for mid, m := range f.modules {
		if m.CreatedBy == id {
			delete(f.modules, mid)
		}
	}
	for aid, a := range f.assignments {
		if a.TraineeID == id {
			delete(f.assignments, aid)
			continue
		}
		if _, ok := f.modules[a.ModuleID]; !ok {
			delete(f.assignments, aid)
			continue
		}
		if a.AssignedBy != nil && *a.AssignedBy == id {
			a.AssignedBy = nil
		}
	}
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.SenderID != id && m.RecipientID != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func (f *fakeStore) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.auditLogs))
	for i, l := range f.auditLogs {
		out[i] = l.Action
	}
	return out
}

// modules, exposed through fakeModules to avoid method name clashes.

type fakeModules struct{ *fakeStore }

func (f fakeModules) List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TrainingModule
	for _, m := range f.modules {
		if !filter.IncludeInactive && !m.IsActive {
			continue
		}
		if filter.CreatedBy != "" && m.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeModules) FindByID(ctx context.Context, id string) (*models.TrainingModule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.modules[id]; ok {
		copy := *m
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeModules) Create(ctx context.Context, module *models.TrainingModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	copy := *module
	f.modules[module.ID] = &copy
	return nil
}

func (f fakeModules) Update(ctx context.Context, module *models.TrainingModule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *module
	f.modules[module.ID] = &copy
	return nil
}

func (f fakeModules) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.modules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.modules, id)
	for aid, a := range f.assignments {
		if a.ModuleID == id {
			delete(f.assignments, aid)
		}
	}
	return nil
}

func (f fakeModules) Count(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := 0
	for _, m := range f.modules {
		if m.IsActive {
			active++
		}
	}
	return len(f.modules), active, nil
}

// assignments

type fakeAssignments struct{ *fakeStore }

func (f fakeAssignments) Create(ctx context.Context, a *models.Assignment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.assignments {
		if existing.TraineeID == a.TraineeID && existing.ModuleID == a.ModuleID {
			*a = *existing
			return false, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	copy := *a
	f.assignments[a.ID] = &copy
	return true, nil
}

func (f fakeAssignments) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f.detail(a), nil
}

func (f fakeAssignments) detail(a *models.Assignment) *models.AssignmentDetail {
	d := &models.AssignmentDetail{Assignment: *a}
	if u, ok := f.users[a.TraineeID]; ok {
		d.TraineeUsername = u.Username
	}
	if m, ok := f.modules[a.ModuleID]; ok {
		d.ModuleTitle = m.Title
	}
	return d
}

func (f fakeAssignments) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	var out []models.AssignmentDetail
	for _, a := range f.assignments {
		if filter.ModuleID != "" && a.ModuleID != filter.ModuleID {
			continue
		}
		if filter.TraineeID != "" && a.TraineeID != filter.TraineeID {
			continue
		}
		out = append(out, *f.detail(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeAssignments) MarkCompleted(ctx context.Context, id, traineeID string, at time.Time) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok || a.TraineeID != traineeID {
		return nil, sql.ErrNoRows
	}
	a.IsCompleted = true
	if a.CompletedAt == nil {
		ts := at
		a.CompletedAt = &ts
	}
	copy := *a
	return &copy, nil
}

func (f fakeAssignments) SetCompletion(ctx context.Context, id string, completed bool, at time.Time) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.IsCompleted = completed
	if completed && a.CompletedAt == nil {
		ts := at
		a.CompletedAt = &ts
	}
	if !completed {
		a.CompletedAt = nil
	}
	copy := *a
	return &copy, nil
}

func (f fakeAssignments) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.assignments, id)
	return nil
}

// messages

type fakeMessages struct{ *fakeStore }

func (f fakeMessages) Create(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	copy := *m
	f.messages = append(f.messages, &copy)
	return nil
}

func (f fakeMessages) CreateBatch(ctx context.Context, messages []*models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	now := time.Now().UTC()
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.CreatedAt = now
		copy := *m
		f.messages = append(f.messages, &copy)
	}
	return nil
}

func (f fakeMessages) FindForRecipient(ctx context.Context, id, recipientID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == id && m.RecipientID == recipientID {
			copy := *m
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeMessages) detail(m *models.Message) models.MessageDetail {
	d := models.MessageDetail{Message: *m}
	if u, ok := f.users[m.SenderID]; ok {
		d.SenderUsername = u.Username
	}
	if u, ok := f.users[m.RecipientID]; ok {
		d.RecipientUsername = u.Username
	}
	return d
}

func (f fakeMessages) Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MessageDetail
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].RecipientID == userID {
			out = append(out, f.detail(f.messages[i]))
		}
	}
	return out, nil
}

func (f fakeMessages) Thread(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MessageDetail
	for _, m := range f.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			out = append(out, f.detail(m))
		}
	}
	return out, nil
}

func (f fakeMessages) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages), nil
}

func newTestAuthService(store *fakeStore) (*AuthService, *repository.MemoryRevocationRepository) {
	revoker := repository.NewMemoryRevocationRepository()
	svc := NewAuthService(store, revoker, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "training-api",
	})
	return svc, revoker
}
