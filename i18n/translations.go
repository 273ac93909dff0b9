// Package i18n holds the bilingual (English / Malay) message tables and the
// persisted language selection.
package i18n

// Language is a supported language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageMalay   Language = "ms"
)

// DefaultLanguage is used when no language is stored or the stored code is
// unsupported.
const DefaultLanguage = LanguageEnglish

// ValidationMessages holds the localized strings produced by form validation
// and by the session manager's failure fallbacks.
type ValidationMessages struct {
	NameRequired         string
	EmailRequired        string
	EmailInvalid         string
	PasswordRequired     string
	PasswordMinLength    string
	IncorrectCredentials string
	LoginError           string
	SignupError          string
	UserExists           string
}

// Table is the full message table for one language.
type Table struct {
	Validation ValidationMessages
}

var translations = map[Language]Table{
	LanguageEnglish: {
		Validation: ValidationMessages{
			NameRequired:         "Name is required",
			EmailRequired:        "Email is required",
			EmailInvalid:         "Please enter a valid email address",
			PasswordRequired:     "Password is required",
			PasswordMinLength:    "Password must be at least 6 characters",
			IncorrectCredentials: "Incorrect email or password",
			LoginError:           "Login failed. Please try again.",
			SignupError:          "Signup failed. Please try again.",
			UserExists:           "An account with this email already exists",
		},
	},
	LanguageMalay: {
		Validation: ValidationMessages{
			NameRequired:         "Nama diperlukan",
			EmailRequired:        "E-mel diperlukan",
			EmailInvalid:         "Sila masukkan alamat e-mel yang sah",
			PasswordRequired:     "Kata laluan diperlukan",
			PasswordMinLength:    "Kata laluan mestilah sekurang-kurangnya 6 aksara",
			IncorrectCredentials: "E-mel atau kata laluan salah",
			LoginError:           "Log masuk gagal. Sila cuba lagi.",
			SignupError:          "Pendaftaran gagal. Sila cuba lagi.",
			UserExists:           "Akaun dengan e-mel ini sudah wujud",
		},
	},
}

// Lookup returns the message table for lang, silently falling back to the
// default language when lang is unsupported.
func Lookup(lang Language) Table {
	if t, ok := translations[lang]; ok {
		return t
	}
	return translations[DefaultLanguage]
}

// Supported reports whether lang is a known language code.
func Supported(lang Language) bool {
	_, ok := translations[lang]
	return ok
}
