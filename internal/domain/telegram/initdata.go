package telegram

// Package telegram verifies Telegram Mini App initData payloads. It is pure
// domain logic: no HTTP, no platform calls, clock injected for tests.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

// secretKeySeed is the fixed HMAC key Telegram documents for deriving the
// per-bot verification key: HMAC-SHA256(key="WebAppData", message=botToken).
const secretKeySeed = "WebAppData"

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// User is the authenticated Telegram user embedded in initData.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// InitData is the result of successful verification. It is constructed fresh
// per request and never stored.
type InitData struct {
	User     User
	AuthDate time.Time
	QueryID  string
	Hash     string
	// Raw is the original payload, kept for credential derivation and audit logs.
	Raw string
}

// VerifyOptions carries the inputs Verify needs beyond the payload itself.
// Now is injected so tests can pin the clock; when nil, time.Now is used.
type VerifyOptions struct {
	BotToken string
	MaxAge   time.Duration
	Now      func() time.Time
}

// Verify parses and cryptographically verifies a raw initData payload.
//
// Parsing policy: the payload is a URL query string; when a key repeats, the
// last occurrence wins. The data-check string is built from all pairs except
// hash, sorted by key byte-wise and joined as "key=value" lines.
//
// Freshness is inclusive: a payload exactly MaxAge old is still accepted.
func Verify(raw string, opts VerifyOptions) (*InitData, error) {
	if opts.BotToken == "" {
		return nil, apperrors.Auth("bot token not configured")
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, apperrors.Auth("malformed initData")
	}

	pairs := make(map[string]string, len(values))
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		pairs[key] = vs[len(vs)-1]
	}

	receivedHash := strings.ToLower(pairs["hash"])
	if !hashPattern.MatchString(receivedHash) {
		return nil, apperrors.Auth("missing or malformed hash")
	}
	delete(pairs, "hash")

	expected := expectedHash(pairs, opts.BotToken)
	// hmac.Equal is constant-time; never compare signature bytes directly.
	if !hmac.Equal([]byte(receivedHash), []byte(expected)) {
		return nil, apperrors.Auth("signature mismatch")
	}

	authDate, err := strconv.ParseInt(pairs["auth_date"], 10, 64)
	if err != nil || authDate <= 0 {
		return nil, apperrors.Auth("missing or invalid auth_date")
	}
	age := now().Unix() - authDate
	if opts.MaxAge > 0 && age > int64(opts.MaxAge/time.Second) {
		return nil, apperrors.Auth("initData expired")
	}

	userJSON, ok := pairs["user"]
	if !ok {
		return nil, apperrors.Auth("missing user payload")
	}
	var user User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, apperrors.Auth("invalid user JSON")
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	return &InitData{
		User:     user,
		AuthDate: time.Unix(authDate, 0),
		QueryID:  pairs["query_id"],
		Hash:     receivedHash,
		Raw:      raw,
	}, nil
}

// expectedHash computes the hex HMAC over the data-check string using the
// key derived from the bot token.
func expectedHash(pairs map[string]string, botToken string) string {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+pairs[key])
	}
	dataCheckString := strings.Join(lines, "\n")

	seed := hmac.New(sha256.New, []byte(secretKeySeed))
	seed.Write([]byte(botToken))
	secretKey := seed.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}

func validateUser(user User) error {
	if user.ID <= 0 {
		return apperrors.Auth("invalid user payload: id must be positive")
	}
	if strings.TrimSpace(user.FirstName) == "" {
		return apperrors.Auth("invalid user payload: first_name is required")
	}
	if user.PhotoURL != "" {
		parsed, err := url.Parse(user.PhotoURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return apperrors.Auth("invalid user payload: photo_url is not a valid URL")
		}
	}
	return nil
}
