package iam

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// User is a principal the seed-admin and `user create|list|delete` CLI
// surface operate on.
type User struct {
	Name      string
	CreatedAt time.Time
}

// AccessKey is one (accessKey, secretKey) credential pair bound to a user.
type AccessKey struct {
	AccessKey string
	SecretKey string
	Owner     string
	Status    string // Active or Inactive
	CreatedAt time.Time
}

// Manager is the in-memory principal/credential/policy-attachment registry
// backing SigV4 principal resolution and the CLI's user management surface.
type Manager struct {
	mu       sync.RWMutex
	users    map[string]*User
	keys     map[string]*AccessKey
	policies map[string][]string // username -> attached policy IDs
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		users:    make(map[string]*User),
		keys:     make(map[string]*AccessKey),
		policies: make(map[string][]string),
	}
}

func (m *Manager) CreateUser(name string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[name]; exists {
		return nil, fmt.Errorf("user already exists: %s", name)
	}
	u := &User{Name: name, CreatedAt: time.Now()}
	m.users[name] = u
	return u, nil
}

func (m *Manager) GetUser(name string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[name]
	if !ok {
		return nil, fmt.Errorf("user not found: %s", name)
	}
	return u, nil
}

func (m *Manager) DeleteUser(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[name]; !ok {
		return fmt.Errorf("user not found: %s", name)
	}
	delete(m.users, name)
	delete(m.policies, name)
	for ak, key := range m.keys {
		if key.Owner == name {
			delete(m.keys, ak)
		}
	}
	return nil
}

func (m *Manager) ListUsers() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (m *Manager) CreateAccessKey(username string) (*AccessKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		return nil, fmt.Errorf("user not found: %s", username)
	}

	accessKeyID, err := randomHex(10)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access key: %w", err)
	}
	secret, err := randomHex(20)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}

	key := &AccessKey{
		AccessKey: "AKIA" + accessKeyID,
		SecretKey: secret,
		Owner:     username,
		Status:    "Active",
		CreatedAt: time.Now(),
	}
	m.keys[key.AccessKey] = key
	return key, nil
}

// SeedAccessKey registers a caller-chosen (accessKey, secretKey) pair for
// username, creating the user if it does not already exist. Used once at
// startup to bind the config-supplied or default admin credential into
// the same principal registry the access evaluator resolves against,
// rather than generating an unrelated random pair via CreateAccessKey.
func (m *Manager) SeedAccessKey(username, accessKey, secretKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		m.users[username] = &User{Name: username, CreatedAt: time.Now()}
	}
	if _, exists := m.keys[accessKey]; exists {
		return nil
	}
	m.keys[accessKey] = &AccessKey{
		AccessKey: accessKey,
		SecretKey: secretKey,
		Owner:     username,
		Status:    "Active",
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *Manager) GetAccessKey(accessKey string) (*AccessKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.keys[accessKey]
	if !ok {
		return nil, fmt.Errorf("access key not found: %s", accessKey)
	}
	return k, nil
}

func (m *Manager) DeleteAccessKey(accessKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[accessKey]; !ok {
		return fmt.Errorf("access key not found: %s", accessKey)
	}
	delete(m.keys, accessKey)
	return nil
}

func (m *Manager) AttachPolicy(username, policyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		return fmt.Errorf("user not found: %s", username)
	}
	for _, p := range m.policies[username] {
		if p == policyID {
			return nil
		}
	}
	m.policies[username] = append(m.policies[username], policyID)
	return nil
}

func (m *Manager) DetachPolicy(username, policyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	attached := m.policies[username]
	for i, p := range attached {
		if p == policyID {
			m.policies[username] = append(attached[:i], attached[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("policy not attached: %s", policyID)
}

func (m *Manager) ListPolicies(username string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.policies[username]))
	copy(out, m.policies[username])
	return out
}

// PrincipalForAccessKey resolves a SigV4 access key id to the owning
// username, for use by the access evaluator.
func (m *Manager) PrincipalForAccessKey(accessKey string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.keys[accessKey]
	if !ok || k.Status != "Active" {
		return "", false
	}
	return k.Owner, true
}
