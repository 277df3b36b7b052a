package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
)

const (
	// SessionTTL is how long an idle session survives before the cleanup
	// loop drops it. Any request through Get resets the clock.
	SessionTTL = 12 * time.Hour

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrSessionNotFound = errors.New("session not found")
	ErrFutureSaleDate  = errors.New("sale date must not be in the future")
)

// Session is one logged-in terminal. The cart lives here, not in the
// database, so closing the session discards any in-progress sale.
type Session struct {
	Token    string
	User     domain.User
	Cart     *cart.Cart
	SaleDate time.Time

	lastSeen time.Time
}

// Manager keeps active sessions in memory, keyed by opaque token.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	users   repository.UserRepository
	cartCfg cart.Config
	now     func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(users repository.UserRepository, cartCfg cart.Config) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		users:       users,
		cartCfg:     cartCfg,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireSessions()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) expireSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-SessionTTL)
	for token, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			s.Cart.Clear()
			delete(m.sessions, token)
		}
	}
}

// Login resolves the user by email and opens a fresh session with an empty
// cart and today's sale date.
func (m *Manager) Login(ctx context.Context, email string) (*Session, error) {
	user, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	now := m.now()
	s := &Session{
		Token:    uuid.New().String(),
		User:     *user,
		Cart:     cart.New(m.cartCfg),
		SaleDate: now,
		lastSeen: now,
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	return s, nil
}

// Get looks up a session by token and marks it as recently used.
func (m *Manager) Get(token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// SetSaleDate changes the date the next sale will be recorded under.
// Backdating is allowed, future dates are not.
func (m *Manager) SetSaleDate(token string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[token]
	if !exists {
		return ErrSessionNotFound
	}
	if date.After(m.now()) {
		return ErrFutureSaleDate
	}
	s.SaleDate = date
	return nil
}

// Logout drops the session and discards its cart.
func (m *Manager) Logout(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, exists := m.sessions[token]
	if !exists {
		return ErrSessionNotFound
	}
	s.Cart.Clear()
	delete(m.sessions, token)
	return nil
}

// Close stops the background cleanup and waits for it to finish
func (m *Manager) Close() error {
	close(m.stopCleanup)
	m.wg.Wait()
	return nil
}
