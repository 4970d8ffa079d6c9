package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"srg-miniapp-backend/internal/models"
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrInitDataExpired = errors.New("init data expired")
)

// InitData is the verified content of a Telegram WebApp launch.
type InitData struct {
	User       models.TelegramUser
	StartParam string
	AuthDate   time.Time
}

// ReferrerID parses the start parameter as a sponsor's user id.
func (d *InitData) ReferrerID() int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(d.StartParam), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// VerifyInitData checks the initData signature against the bot token. A
// maxAge of zero disables the freshness check.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" || botToken == "" {
		return nil, ErrInvalidInitData
	}

	vals, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	providedHash := vals.Get("hash")
	if providedHash == "" {
		return nil, ErrInvalidInitData
	}
	vals.Del("hash")

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vals.Get(k))
	}

	if !hmac.Equal([]byte(signInitData(strings.Join(parts, "\n"), botToken)), []byte(providedHash)) {
		return nil, ErrInvalidInitData
	}

	authUnix, err := strconv.ParseInt(vals.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	authDate := time.Unix(authUnix, 0)
	if maxAge > 0 && now.Sub(authDate) > maxAge {
		return nil, ErrInitDataExpired
	}

	var user models.TelegramUser
	if err := json.Unmarshal([]byte(vals.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, ErrInvalidInitData
	}

	return &InitData{
		User:       user,
		StartParam: vals.Get("start_param"),
		AuthDate:   authDate,
	}, nil
}

func signInitData(dataCheck, botToken string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignInitData builds a signed initData query string. It is what the
// Telegram client does; tests and local tooling use it to mint logins.
func SignInitData(vals url.Values, botToken string) string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+vals.Get(k))
	}

	signed := url.Values{}
	for _, k := range keys {
		signed.Set(k, vals.Get(k))
	}
	signed.Set("hash", signInitData(strings.Join(parts, "\n"), botToken))
	return signed.Encode()
}
