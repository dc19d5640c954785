// Package session keeps the per-browser state of the web app in a signed
// cookie: the session ID that prefixes uploads and outputs, the CSRF token of
// the upload form and the name of the last generated file.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "session"
	maxAge     = 31 * 24 * time.Hour
)

type Data struct {
	SessionID  string
	CSRFToken  string
	OutputFile string
}

type claims struct {
	SessionID  string `json:"sid,omitempty"`
	CSRFToken  string `json:"csrf,omitempty"`
	OutputFile string `json:"out,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session cookies with HS256.
type Manager struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewManager returns a Manager for secret. An empty secret gets a random
// one, so sessions do not survive a restart.
func NewManager(secret string, secure bool) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("session: failed to generate secret: " + err.Error())
		}
	}
	return &Manager{secret: key, secure: secure, now: time.Now}
}

// Load returns the session carried by r. A missing, expired or tampered
// cookie yields an empty session.
func (m *Manager) Load(r *http.Request) *Data {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &Data{}
	}
	data, err := m.decode(cookie.Value)
	if err != nil {
		return &Data{}
	}
	return data
}

func (m *Manager) decode(value string) (*Data, error) {
	token, err := jwt.ParseWithClaims(value, &claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return &Data{SessionID: c.SessionID, CSRFToken: c.CSRFToken, OutputFile: c.OutputFile}, nil
}

// Save writes data back as the session cookie.
func (m *Manager) Save(w http.ResponseWriter, data *Data) error {
	if data == nil {
		return errors.New("session: nil data")
	}
	now := m.now()
	c := claims{
		SessionID:  data.SessionID,
		CSRFToken:  data.CSRFToken,
		OutputFile: data.OutputFile,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(maxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// NewSessionID returns 16 random bytes, hex encoded.
func NewSessionID() string {
	b := make([]byte, 16)
	mustRead(b)
	return hex.EncodeToString(b)
}

// NewToken returns a URL-safe CSRF token.
func NewToken() string {
	b := make([]byte, 32)
	mustRead(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func mustRead(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("session: crypto/rand failed: " + err.Error())
	}
}

// EnsureID gives data a session ID if it has none and reports whether one
// was added.
func (d *Data) EnsureID() bool {
	if d.SessionID != "" {
		return false
	}
	d.SessionID = NewSessionID()
	return true
}

// EnsureCSRF gives data a CSRF token if it has none and returns the token.
func (d *Data) EnsureCSRF() string {
	if d.CSRFToken == "" {
		d.CSRFToken = NewToken()
	}
	return d.CSRFToken
}

// RotateCSRF replaces the CSRF token after a successful upload.
func (d *Data) RotateCSRF() string {
	d.CSRFToken = NewToken()
	return d.CSRFToken
}

// CSRFValid compares token against the session's token in constant time.
func CSRFValid(data *Data, token string) bool {
	if data == nil || data.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(data.CSRFToken), []byte(token)) == 1
}
