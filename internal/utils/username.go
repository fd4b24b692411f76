package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var (
	ErrUsernameLength  = fmt.Errorf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)
	ErrUsernameCharset = errors.New("username may only contain letters, digits, '_' and '-'")

	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Word lists for usernames when nothing usable can be derived
var adjectives = []string{
	"Swift", "Brave", "Clever", "Noble", "Mighty", "Silent", "Golden", "Silver",
	"Crimson", "Azure", "Cosmic", "Mystic", "Royal", "Fierce", "Bold", "Keen",
}

var nouns = []string{
	"Knight", "Bishop", "Rook", "Queen", "King", "Pawn", "Castle", "Tower",
	"Gambit", "Fork", "Pin", "Skewer", "Tempo", "Zugzwang", "Endgame", "Opening",
}

// ValidateUsername checks length and character set.
func ValidateUsername(name string) error {
	if len(name) < MinUsernameLength || len(name) > MaxUsernameLength {
		return ErrUsernameLength
	}
	if !usernamePattern.MatchString(name) {
		return ErrUsernameCharset
	}
	return nil
}

// SanitizeUsername turns free text such as an email local part into a
// candidate username. The result may still be too short.
func SanitizeUsername(s string) string {
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	s = disallowedChars.ReplaceAllString(s, "")
	if len(s) > MaxUsernameLength-4 {
		s = s[:MaxUsernameLength-4]
	}
	return s
}

// RandomUsername returns a name like "SwiftKnight123".
func RandomUsername() string {
	return fmt.Sprintf("%s%s%d",
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
		rand.Intn(1000))
}

// GenerateUniqueUsername returns base if it is valid and free, otherwise base
// with a numeric suffix, and finally a random name.
func GenerateUniqueUsername(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	candidates := make([]string, 0, 21)
	if ValidateUsername(base) == nil {
		candidates = append(candidates, base)
	}
	if base != "" {
		for i := 0; i < 10; i++ {
			candidates = append(candidates, fmt.Sprintf("%s%d", base, rand.Intn(10000)))
		}
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, RandomUsername())
	}

	for _, name := range candidates {
		if ValidateUsername(name) != nil {
			continue
		}
		exists, err := taken(ctx, name)
		if err != nil {
			return "", fmt.Errorf("database error checking username: %w", err)
		}
		if !exists {
			return name, nil
		}
	}

	return "", errors.New("failed to generate unique username after many attempts")
}
