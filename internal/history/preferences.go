package history

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/set-night/coworker/internal/storage"
)

const (
	confidentialKey  = "confidential"
	termsAcceptedKey = "terms_accepted"
	miamIDKey        = "miam_id"
)

// Confidential reports the user's confidential-mode preference. It defaults
// to true when unset or unreadable.
func (s *Store) Confidential(ctx context.Context) bool {
	v, ok := s.getBool(ctx, confidentialKey)
	if !ok {
		return true
	}
	return v
}

func (s *Store) SetConfidential(ctx context.Context, on bool) {
	s.setString(ctx, confidentialKey, strconv.FormatBool(on))
}

func (s *Store) TermsAccepted(ctx context.Context) bool {
	v, _ := s.getBool(ctx, termsAcceptedKey)
	return v
}

func (s *Store) AcceptTerms(ctx context.Context) {
	s.setString(ctx, termsAcceptedKey, "true")
}

// MiamID is the identity the user registered with.
func (s *Store) MiamID(ctx context.Context) string {
	v, err := s.storage.Get(ctx, miamIDKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("load miam id", "error", err)
		}
		return ""
	}
	return v
}

func (s *Store) SetMiamID(ctx context.Context, id string) {
	s.setString(ctx, miamIDKey, id)
}

func (s *Store) getBool(ctx context.Context, key string) (bool, bool) {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("load preference", "error", err, "key", key)
		}
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func (s *Store) setString(ctx context.Context, key, value string) {
	if err := s.storage.Set(ctx, key, value); err != nil {
		slog.Error("save preference", "error", err, "key", key)
	}
}
