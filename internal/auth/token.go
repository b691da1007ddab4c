// Package auth stores the catalog credential and captures it from the OAuth
// implicit-grant redirect.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/yamp/internal/store"
	"github.com/jfmyers9/yamp/pkg/ymusic"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no credential is stored.
var ErrNoToken = ymusic.ErrNoToken

// TokenStore persists the catalog access token.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

const (
	keyringService = "yamp"
	keyringUser    = "yandex-music-token"
)

// KeyringStore keeps the token in the system keyring.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore returns a keyring-backed TokenStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, user: keyringUser}
}

// Token retrieves the token from the system keyring.
func (k *KeyringStore) Token(context.Context) (string, error) {
	tok, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && tok == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("keyring: %w", err)
	}
	return tok, nil
}

// SetToken persists the token to the system keyring.
func (k *KeyringStore) SetToken(_ context.Context, token string) error {
	return keyring.Set(k.service, k.user, token)
}

// DeleteToken removes the token from the system keyring.
func (k *KeyringStore) DeleteToken(context.Context) error {
	err := keyring.Delete(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// KVStore keeps the token next to the playback snapshot.
type KVStore struct {
	store store.Store
}

// NewKVStore returns a TokenStore on top of s.
func NewKVStore(s store.Store) *KVStore {
	return &KVStore{store: s}
}

// Token implements TokenStore.
func (k *KVStore) Token(ctx context.Context) (string, error) {
	var tok string
	ok, err := k.store.Get(ctx, store.KeyToken, &tok)
	if err != nil {
		return "", err
	}
	if !ok || tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// SetToken implements TokenStore.
func (k *KVStore) SetToken(ctx context.Context, token string) error {
	return k.store.Set(ctx, store.KeyToken, token)
}

// DeleteToken implements TokenStore.
func (k *KVStore) DeleteToken(ctx context.Context) error {
	return k.store.Delete(ctx, store.KeyToken)
}

type tokenSource struct {
	store TokenStore
}

// TokenSource adapts a TokenStore for the catalog client. The store is read
// on every call.
func TokenSource(s TokenStore) oauth2.TokenSource {
	return tokenSource{store: s}
}

func (t tokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.store.Token(context.Background())
	if err != nil {
		return nil, err
	}
	return ymusic.Token(tok), nil
}
