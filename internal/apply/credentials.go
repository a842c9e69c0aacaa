package apply

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const passwordLength = 16

var passwordClasses = []string{
	"abcdefghijkmnopqrstuvwxyz",
	"ABCDEFGHJKLMNPQRSTUVWXYZ",
	"23456789",
	"!@#$%*-_",
}

// GenerateCredentials derives a portal login from the candidate's email:
// "<local>+<portal>@<domain>" with a random password containing every
// character class portals commonly require.
func GenerateCredentials(email string, portal jobs.PortalKind) (jobs.PortalCredentials, error) {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return jobs.PortalCredentials{}, fmt.Errorf("candidate email %q is not usable for a %s login", email, portal)
	}
	if i := strings.IndexByte(local, '+'); i > 0 {
		local = local[:i]
	}
	password, err := randomPassword(passwordLength)
	if err != nil {
		return jobs.PortalCredentials{}, err
	}
	return jobs.PortalCredentials{
		Email:    fmt.Sprintf("%s+%s@%s", local, portal, domain),
		Password: password,
	}, nil
}

func randomPassword(n int) (string, error) {
	all := strings.Join(passwordClasses, "")
	out := make([]byte, 0, n)
	for _, class := range passwordClasses {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < n {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	// Shuffle so the class order is not predictable.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("shuffle password: %w", err)
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func pick(chars string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
	if err != nil {
		return 0, fmt.Errorf("generate password: %w", err)
	}
	return chars[idx.Int64()], nil
}
