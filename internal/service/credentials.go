package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// generatePassword returns a random initial password of the given length.
func generatePassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// generateAdmissionNumber renders PREFIX/YEAR/NNNN with four random digits. Collisions are not checked.
func generateAdmissionNumber(prefix string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate admission number: %w", err)
	}
	return fmt.Sprintf("%s/%d/%04d", strings.ToUpper(strings.TrimSpace(prefix)), now.Year(), n.Int64()), nil
}

// fallbackStudentEmail derives a login address from the admission number, e.g. ALD/2024/0042 -> ald-2024-0042@domain.
func fallbackStudentEmail(admissionNumber, domain string) string {
	local := nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(admissionNumber)), "-")
	local = strings.Trim(local, "-")
	return local + "@" + strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
}
