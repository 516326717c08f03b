// Package storage keeps the little state the client persists between runs:
// the current session and the telemetry consent flag.
package storage

import (
	"chat-panel/domain"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	sessionKey = "session:current"
	consentKey = "telemetry:opt-in"
)

type ILocalStore interface {
	SaveSession(session domain.Session) error
	LoadSession() (domain.Session, bool, error)
	ClearSession() error
	SetConsent(optedIn bool) error
	Consent() (optedIn bool, decided bool, err error)
}

type LocalStore struct {
	db  *badger.DB
	log *slog.Logger
}

func NewLocalStore(db *badger.DB, log *slog.Logger) *LocalStore {
	return &LocalStore{db: db, log: log}
}

type diskSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// SaveSession overwrites the persisted session.
func (l *LocalStore) SaveSession(session domain.Session) error {
	bytes, err := json.Marshal(fromSession(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKey), bytes)
	})
}

// LoadSession returns false when nothing was persisted.
func (l *LocalStore) LoadSession() (domain.Session, bool, error) {
	var disk diskSession
	found, err := l.get(sessionKey, &disk)
	if err != nil || !found {
		return domain.Session{}, false, err
	}
	return toSession(disk), true, nil
}

func (l *LocalStore) ClearSession() error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKey))
	})
}

func (l *LocalStore) SetConsent(optedIn bool) error {
	bytes, err := json.Marshal(optedIn)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(consentKey), bytes)
	})
}

// Consent reports the stored choice; decided is false until the user answered once.
func (l *LocalStore) Consent() (bool, bool, error) {
	var optedIn bool
	found, err := l.get(consentKey, &optedIn)
	if err != nil || !found {
		return false, false, err
	}
	return optedIn, true, nil
}

func (l *LocalStore) get(key string, out any) (bool, error) {
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		l.log.Warn("Local state unreadable", "key", key, "error", err)
		return false, err
	}
	return true, nil
}

func fromSession(s domain.Session) diskSession {
	return diskSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID,
		Email:        s.User.Email,
	}
}

func toSession(d diskSession) domain.Session {
	return domain.Session{
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		ExpiresAt:    d.ExpiresAt.UTC(),
		User:         domain.Identity{ID: d.UserID, Email: d.Email},
	}
}
