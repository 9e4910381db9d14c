package auth

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/revendaauto/backoffice/internal/utils"
)

const maxOTPAttempts = 5

type otpEntry struct {
	code     string
	attempts int
}

// otpStore keeps one pending code per email. A code dies on success, on
// expiry or after maxOTPAttempts wrong guesses.
type otpStore struct {
	mu     sync.Mutex
	length int
	codes  *expirable.LRU[string, *otpEntry]
}

func newOTPStore(length int, ttl time.Duration) *otpStore {
	return &otpStore{
		length: length,
		codes:  expirable.NewLRU[string, *otpEntry](0, nil, ttl), // 0 = unbounded
	}
}

// issue replaces any pending code for email.
func (s *otpStore) issue(email string) (string, error) {
	code, err := utils.RandBase34(s.length)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes.Add(email, &otpEntry{code: code})
	return code, nil
}

func (s *otpStore) check(email, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes.Get(email)
	if !ok {
		return ErrInvalidOTP
	}

	if len(code) != len(entry.code) || subtle.ConstantTimeCompare([]byte(code), []byte(entry.code)) != 1 {
		entry.attempts++
		if entry.attempts >= maxOTPAttempts {
			s.codes.Remove(email)
			return ErrTooManyAttempts
		}
		return ErrInvalidOTP
	}

	s.codes.Remove(email)
	return nil
}

func (s *otpStore) pending(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes.Contains(email)
}
