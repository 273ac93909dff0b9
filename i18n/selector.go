package i18n

import (
	"github.com/pkg/errors"
	"github.com/storefrontapp/authkit/storage"
)

// Selector owns the persisted language preference. It is the sole writer of
// the app_language key; other components only read it.
type Selector struct {
	store storage.Store
}

func NewSelector(store storage.Store) *Selector {
	return &Selector{store: store}
}

// Language returns the stored language preference, or the default language
// when nothing is stored, the stored code is unsupported, or the store
// misbehaves.
func (s *Selector) Language() Language {
	var lang Language
	ok, err := s.store.Get(storage.KeyAppLanguage, &lang)
	if err != nil || !ok || !Supported(lang) {
		return DefaultLanguage
	}
	return lang
}

// SetLanguage persists a new language preference. Unsupported codes are
// rejected.
func (s *Selector) SetLanguage(lang Language) error {
	if !Supported(lang) {
		return errors.Errorf("[Selector.SetLanguage] unsupported language %q", lang)
	}
	if err := s.store.Set(storage.KeyAppLanguage, lang); err != nil {
		return errors.Wrap(err, "[Selector.SetLanguage] store.Set")
	}
	return nil
}

// Messages is a convenience for Lookup(s.Language()).
func (s *Selector) Messages() Table {
	return Lookup(s.Language())
}
