// Package identity signs administrators in with email and password and tells
// interested components when the set of signed-in principals changes.
package identity

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotSignedIn        = errors.New("principal is not signed in")
)

type Account struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"passwordHash"`
}

type Principal struct {
	Email      string    `json:"email"`
	SignedInAt time.Time `json:"signedInAt"`
}

// Event is published after every sign-in and sign-out. Principal is the one that
// changed; Active is the number of open principal sessions afterwards.
type Event struct {
	Principal Principal
	SignedIn  bool
	Active    int
}

type Listener func(Event)

type Provider struct {
	clock    clockwork.Clock
	accounts map[string][]byte

	mu        sync.Mutex
	sessions  map[string]int
	listeners map[int]Listener
	nextID    int
}

func NewProvider(accounts []Account, clock clockwork.Clock) *Provider {
	p := &Provider{
		clock:     clock,
		accounts:  make(map[string][]byte, len(accounts)),
		sessions:  make(map[string]int),
		listeners: make(map[int]Listener),
	}
	for _, a := range accounts {
		email := normalize(a.Email)
		if email == "" || a.PasswordHash == "" {
			logging.Log.Warnf("ADMIN: skipping incomplete account entry '%s'", a.Email)
			continue
		}
		p.accounts[email] = []byte(a.PasswordHash)
	}
	if len(p.accounts) == 0 {
		logging.Log.Warn("ADMIN: no administrator accounts configured")
	}
	return p
}

// HashPassword produces the value stored in admin.accounts[].passwordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (p *Provider) SignIn(email, password string) (Principal, error) {
	email = normalize(email)
	hash, ok := p.accounts[email]
	if !ok || password == "" {
		logging.Log.Warnf("ADMIN: rejected sign-in for '%s'", email)
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		logging.Log.Warnf("ADMIN: rejected sign-in for '%s'", email)
		return Principal{}, ErrInvalidCredentials
	}

	principal := Principal{Email: email, SignedInAt: p.clock.Now().UTC()}
	p.mu.Lock()
	p.sessions[email]++
	event := Event{Principal: principal, SignedIn: true, Active: p.activeLocked()}
	listeners := p.snapshotLocked()
	p.mu.Unlock()

	logging.Log.Infof("ADMIN: '%s' signed in, %d active", email, event.Active)
	publish(listeners, event)
	return principal, nil
}

func (p *Provider) SignOut(email string) error {
	email = normalize(email)
	p.mu.Lock()
	if p.sessions[email] == 0 {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	p.sessions[email]--
	if p.sessions[email] == 0 {
		delete(p.sessions, email)
	}
	event := Event{Principal: Principal{Email: email}, SignedIn: false, Active: p.activeLocked()}
	listeners := p.snapshotLocked()
	p.mu.Unlock()

	logging.Log.Infof("ADMIN: '%s' signed out, %d active", email, event.Active)
	publish(listeners, event)
	return nil
}

// Subscribe registers a listener and returns the function that removes it.
// Listeners run synchronously on the signing goroutine, outside the provider lock.
func (p *Provider) Subscribe(listener Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// SignedIn reports whether email holds at least one open session. Sessions live
// in memory, so a browser cookie can outlive them across a restart.
func (p *Provider) SignedIn(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[normalize(email)] > 0
}

func (p *Provider) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeLocked()
}

func (p *Provider) activeLocked() int {
	total := 0
	for _, n := range p.sessions {
		total += n
	}
	return total
}

func (p *Provider) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		out = append(out, l)
	}
	return out
}

func publish(listeners []Listener, event Event) {
	for _, l := range listeners {
		l(event)
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
