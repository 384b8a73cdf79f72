// Package auth resolves Telegram WebApp initData payloads into durable user
// identities and provisions trial accounts on first sighting.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidInitData indicates the payload failed signature verification or
// carried no usable user identity.
var ErrInvalidInitData = errors.New("auth: invalid initData")

// initDataUser maps the nested user JSON inside initData.
type initDataUser struct {
	ID int64 `json:"id"`
}

// VerifyInitData validates a Telegram WebApp initData payload against the bot
// token and returns the embedded Telegram user ID.
//
// The check string is every key=value pair except hash, sorted by key and
// joined with newlines; the HMAC-SHA256 key is the SHA-256 digest of the bot
// token. The supplied hash must match the hex digest exactly.
func VerifyInitData(initData, botToken string) (int64, error) {
	if strings.TrimSpace(initData) == "" || botToken == "" {
		return 0, ErrInvalidInitData
	}

	values, errParse := url.ParseQuery(initData)
	if errParse != nil {
		return 0, ErrInvalidInitData
	}

	suppliedHash := values.Get("hash")
	if suppliedHash == "" {
		return 0, ErrInvalidInitData
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(suppliedHash)) {
		return 0, ErrInvalidInitData
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return 0, ErrInvalidInitData
	}
	var user initDataUser
	if errUnmarshal := json.Unmarshal([]byte(userJSON), &user); errUnmarshal != nil {
		return 0, ErrInvalidInitData
	}
	if user.ID == 0 {
		return 0, ErrInvalidInitData
	}
	return user.ID, nil
}
