// Package telegram verifies Mini App init data signed by a bot token.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
)

// DefaultMaxAge is how long signed init data stays acceptable.
const DefaultMaxAge = 24 * time.Hour

const webAppDataKey = "WebAppData"

var (
	ErrMissingPayload   = errors.New("missing init data")
	ErrMissingBotToken  = errors.New("bot token not configured")
	ErrMalformedPayload = errors.New("init data is not a valid query string")
	ErrMissingHash      = errors.New("init data has no hash")
	ErrInvalidSignature = errors.New("init data signature mismatch")
	ErrStale            = errors.New("init data is outdated")
	ErrMalformedUser    = errors.New("init data user is malformed")
)

// Claim is the verified identity carried by init data.
type Claim struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name,omitempty"`
	Username     string    `json:"username,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	AuthDate     time.Time `json:"-"`
}

func (c Claim) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.FirstName, validation.Length(0, 255)),
		validation.Field(&c.LastName, validation.Length(0, 255)),
		validation.Field(&c.Username, validation.Length(0, 255)),
	)
}

// Verify checks the signature and freshness of raw init data and returns
// the embedded user. maxAge <= 0 means DefaultMaxAge. Exactly maxAge old
// is still fresh.
func Verify(raw, botToken string, now time.Time, maxAge time.Duration) (*Claim, error) {
	if raw == "" {
		return nil, ErrMissingPayload
	}
	if botToken == "" {
		return nil, ErrMissingBotToken
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	expected := signature(checkString(values), botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return nil, ErrInvalidSignature
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable auth_date", ErrStale)
	}
	if now.Unix()-authDate > int64(maxAge/time.Second) {
		return nil, ErrStale
	}

	claim, err := parseUser(values.Get("user"))
	if err != nil {
		return nil, err
	}
	claim.AuthDate = time.Unix(authDate, 0).UTC()
	return claim, nil
}

func parseUser(raw string) (*Claim, error) {
	if raw == "" || !gjson.Valid(raw) {
		return nil, ErrMalformedUser
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return nil, ErrMalformedUser
	}
	id := doc.Get("id")
	if id.Type != gjson.Number {
		return nil, fmt.Errorf("%w: id is not a number", ErrMalformedUser)
	}
	if _, err := strconv.ParseInt(id.Raw, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: id is not an integer", ErrMalformedUser)
	}

	var claim Claim
	if err := json.Unmarshal([]byte(raw), &claim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	if err := claim.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	claim.LanguageCode = canonicalLanguage(claim.LanguageCode)
	claim.PhotoURL = cleanPhotoURL(claim.PhotoURL)
	return &claim, nil
}

// cleanPhotoURL drops a photo URL that is not a usable absolute link.
func cleanPhotoURL(raw string) string {
	if validation.Validate(raw, validation.Length(0, 1024), is.URL) != nil {
		return ""
	}
	return raw
}

// canonicalLanguage normalises a BCP 47 tag; unknown codes are dropped.
func canonicalLanguage(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}

// checkString joins key=value pairs sorted by key with newlines. Repeated
// keys keep their original order.
func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

func signature(data, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns values encoded as init data with a valid hash for botToken.
// Any existing hash is replaced.
func Sign(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k == "hash" {
			continue
		}
		signed[k] = append([]string(nil), v...)
	}
	signed.Set("hash", signature(checkString(signed), botToken))
	return signed.Encode()
}
