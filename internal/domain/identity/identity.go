package identity

// Package identity derives the platform credentials that stand in for a
// Telegram user. Derivation is deterministic: the same Telegram id and bot
// token always yield the same email/password pair, so no mapping table is
// needed between Telegram ids and platform accounts.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

const (
	emailPrefix = "tg_"
	emailDomain = "telegram.miniapp.local"

	// passwordPrefix satisfies complexity rules that require a letter, an
	// uppercase character and a symbol in front of the hex digest.
	passwordPrefix = "Tg!"

	derivationScope = "miniapp:"
)

// Credentials is a derived platform login for a Telegram user. The password
// is an HMAC of the Telegram id keyed by the bot token, so it cannot be
// reproduced without server-side secrets.
type Credentials struct {
	Email    string
	Password string
}

// Derive computes the credentials for a Telegram user id.
func Derive(botToken string, telegramID int64) Credentials {
	id := strconv.FormatInt(telegramID, 10)

	mac := hmac.New(sha256.New, []byte(botToken))
	mac.Write([]byte(derivationScope + id))

	return Credentials{
		Email:    emailPrefix + id + "@" + emailDomain,
		Password: passwordPrefix + hex.EncodeToString(mac.Sum(nil)),
	}
}
