// Package session remembers the database a browser last selected.
package session

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Name is the session cookie name.
const Name = "csvloader-session"

// KeySelectedDatabase holds the database chosen in the selector.
const KeySelectedDatabase = "selected_database"

// Options configures the cookie store.
type Options struct {
	// Secret is SHA-256 hashed to derive the signing key. When empty a random
	// key is generated, so sessions do not survive a restart.
	Secret string
	MaxAge int
	Secure bool
}

// Store is a signed cookie store scoped to this application's session values.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore initializes the cookie-based session store.
//
// Security settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - SameSite: Lax (the selector form posts back to the same site)
func NewStore(opts Options) (*Store, error) {
	var key []byte
	if opts.Secret != "" {
		sum := sha256.Sum256([]byte(opts.Secret))
		key = sum[:]
	} else {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, errors.New("failed to generate session key")
		}
	}

	cookies := sessions.NewCookieStore(key)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cookies}, nil
}

// SelectedDatabase returns the database stored for this browser, or "".
// A cookie that fails verification is treated as empty.
func (s *Store) SelectedDatabase(r *http.Request) string {
	sess, err := s.cookies.Get(r, Name)
	if err != nil {
		return ""
	}
	db, _ := sess.Values[KeySelectedDatabase].(string)
	return db
}

// SetSelectedDatabase stores database for this browser. An empty database
// clears the selection.
func (s *Store) SetSelectedDatabase(w http.ResponseWriter, r *http.Request, database string) error {
	// Get returns a usable new session alongside a decode error.
	sess, _ := s.cookies.Get(r, Name)
	if database == "" {
		delete(sess.Values, KeySelectedDatabase)
	} else {
		sess.Values[KeySelectedDatabase] = database
	}
	return sess.Save(r, w)
}
