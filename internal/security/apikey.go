package security

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "glk"

// GenerateAPIKey mints a merchant API key "glk_<keyID>_<secret>" and the
// bcrypt hash of its secret. Only keyID and hash are stored; the full key
// is shown to the merchant exactly once.
func GenerateAPIKey() (key, keyID, secretHash string, err error) {
	keyID = strings.ReplaceAll(uuid.NewString(), "-", "")
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash API key: %w", err)
	}

	return fmt.Sprintf("%s_%s_%s", apiKeyPrefix, keyID, secret), keyID, string(hash), nil
}

// SplitAPIKey breaks a presented key into its lookup ID and secret.
func SplitAPIKey(key string) (keyID, secret string, ok bool) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// CompareAPIKey checks a presented secret against the stored bcrypt hash.
func CompareAPIKey(secretHash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)) == nil
}
