package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ChallengeMessage is the exact text a wallet signs to log in.
func ChallengeMessage(nonce string) string {
	return "Sign in to resalehub\nnonce: " + nonce
}

// Challenges hands out single-use login nonces.
type Challenges struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]time.Time
}

// NewChallenges creates a store whose nonces live for ttl.
func NewChallenges(ttl time.Duration) *Challenges {
	return &Challenges{ttl: ttl, pending: make(map[string]time.Time)}
}

// Issue creates a nonce and returns it with its expiry.
func (s *Challenges) Issue(now time.Time) (string, time.Time) {
	nonce := uuid.New().String()
	exp := now.Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for n, e := range s.pending {
		if !now.Before(e) {
			delete(s.pending, n)
		}
	}
	s.pending[nonce] = exp
	return nonce, exp
}

// Consume reports whether nonce was issued and has not expired. A nonce can
// be consumed once.
func (s *Challenges) Consume(nonce string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.pending[nonce]
	if !ok {
		return false
	}
	delete(s.pending, nonce)
	return now.Before(exp)
}

// Handler serves the /auth routes.
type Handler struct {
	secret     []byte
	ttl        time.Duration
	challenges *Challenges
	isArbiter  func(addr string) bool
	now        func() time.Time
}

// NewHandler builds auth routes. isArbiter decides the role claim.
func NewHandler(secret []byte, tokenTTL time.Duration, challenges *Challenges, isArbiter func(string) bool) *Handler {
	return &Handler{
		secret:     secret,
		ttl:        tokenTTL,
		challenges: challenges,
		isArbiter:  isArbiter,
		now:        time.Now,
	}
}

type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ===== Challenge =====
func (h *Handler) Challenge(c echo.Context) error {
	nonce, exp := h.challenges.Issue(h.now())
	return c.JSON(http.StatusOK, ChallengeResponse{
		Nonce:     nonce,
		Message:   ChallengeMessage(nonce),
		ExpiresAt: exp,
	})
}
