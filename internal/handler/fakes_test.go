package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ridelink/ride-hail-backend/internal/model"
	"github.com/ridelink/ride-hail-backend/internal/repository"
)

// memUsers is an in-memory UserStore mirroring the MySQL repository's
// contract, including the uniqueness sentinels and listing semantics.
type memUsers struct {
	mu    sync.Mutex
	byID  map[string]model.User
	clock time.Time
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]model.User{}, clock: time.Now().UTC()}
}

// tick returns strictly increasing timestamps so creation order is
// observable through the newest-first listing.
func (m *memUsers) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.byID {
		if ex.Email == u.Email {
			return repository.ErrEmailExists
		}
		if u.Phone != "" && ex.Phone == u.Phone {
			return repository.ErrPhoneExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.tick()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmailAndRole(_ context.Context, email, role string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email && u.Role == role {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByPhone(_ context.Context, phone string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Phone != "" && u.Phone == phone {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (m *memUsers) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, ex := range m.byID {
		if ex.ID == u.ID {
			continue
		}
		if ex.Email == u.Email {
			return repository.ErrEmailExists
		}
		if u.Phone != "" && ex.Phone == u.Phone {
			return repository.ErrPhoneExists
		}
	}
	u.UpdatedAt = m.tick()
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) List(_ context.Context, f repository.ListFilter) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0)
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	for _, u := range m.byID {
		if u.Role == model.RoleAdmin {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Approved != nil && u.Approved != *f.Approved {
			continue
		}
		if needle != "" {
			hay := strings.ToLower(u.FirstName + "\x00" + u.LastName + "\x00" + u.Email + "\x00" + u.Phone)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type storedToken struct {
	userID  string
	exp     time.Time
	revoked bool
}

// memTokens is an in-memory RefreshTokenStore.
type memTokens struct {
	mu     sync.Mutex
	byHash map[string]storedToken
}

func newMemTokens() *memTokens {
	return &memTokens{byHash: map[string]storedToken{}}
}

func (m *memTokens) Store(_ context.Context, userID, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[tokenHash] = storedToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) Validate(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[tokenHash]
	if !ok || t.revoked || time.Now().UTC().After(t.exp) {
		return "", repository.ErrTokenNotFound
	}
	return t.userID, nil
}

func (m *memTokens) Revoke(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byHash[tokenHash]; ok {
		t.revoked = true
		m.byHash[tokenHash] = t
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.byHash {
		if t.userID == userID {
			t.revoked = true
			m.byHash[h] = t
		}
	}
	return nil
}
