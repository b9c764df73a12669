package testutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SignInitData builds a correctly signed Telegram initData query string from
// the given params (hash excluded). It mirrors what Telegram clients produce:
// HMAC-SHA256(key="WebAppData", msg=botToken) derives the secret key, which
// then signs the byte-sorted "key=value" lines joined by newlines.
func SignInitData(botToken string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+params[key])
	}
	dataCheckString := strings.Join(lines, "\n")

	seed := hmac.New(sha256.New, []byte("WebAppData"))
	seed.Write([]byte(botToken))
	mac := hmac.New(sha256.New, seed.Sum(nil))
	mac.Write([]byte(dataCheckString))

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}
