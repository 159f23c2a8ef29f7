// Package i18n picks the user's language and holds the user-facing API
// messages in Slovak and English.
package i18n

import (
	"golang.org/x/text/language"

	"github.com/Kerhoff/chcemmat/internal/models"
)

// Message keys
const (
	MsgAlreadyReserved       = "already_reserved"
	MsgForbidden             = "forbidden"
	MsgReservationIncomplete = "reservation_incomplete"
	MsgInconsistentState     = "inconsistent_state"
	MsgNotFound              = "not_found"
	MsgUnauthorized          = "unauthorized"
	MsgInvalid               = "invalid"
	MsgStore                 = "store"
	MsgContactSent           = "contact_sent"
	MsgInternal              = "internal"
)

var supported = []language.Tag{
	language.Slovak, // first entry is the fallback
	language.English,
}

var matcher = language.NewMatcher(supported)

var messages = map[models.Language]map[string]string{
	models.LanguageSK: {
		MsgAlreadyReserved:       "Táto položka je už rezervovaná.",
		MsgForbidden:             "Na túto akciu nemáte oprávnenie.",
		MsgReservationIncomplete: "Rezerváciu sa nepodarilo dokončiť. Skúste to znova.",
		MsgInconsistentState:     "Pri rezervácii nastala chyba. Pracujeme na jej odstránení.",
		MsgNotFound:              "Požadovaný záznam neexistuje.",
		MsgUnauthorized:          "Pre pokračovanie sa prihláste.",
		MsgInvalid:               "Neplatné údaje.",
		MsgStore:                 "Nastala chyba. Skúste to neskôr.",
		MsgContactSent:           "Správa bola úspešne odoslaná.",
		MsgInternal:              "Nastala neočakávaná chyba.",
	},
	models.LanguageEN: {
		MsgAlreadyReserved:       "This item is already reserved.",
		MsgForbidden:             "You are not allowed to do this.",
		MsgReservationIncomplete: "Could not complete the reservation. Please try again.",
		MsgInconsistentState:     "Something went wrong with the reservation. We are fixing it.",
		MsgNotFound:              "The requested record does not exist.",
		MsgUnauthorized:          "Please sign in to continue.",
		MsgInvalid:               "Invalid input.",
		MsgStore:                 "Something went wrong. Please try again later.",
		MsgContactSent:           "Message sent successfully.",
		MsgInternal:              "An unexpected error occurred.",
	},
}

// Negotiate picks the best supported language for an Accept-Language header
func Negotiate(acceptLanguage string) models.Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return models.DefaultLanguage
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return models.DefaultLanguage
	}
	if supported[idx] == language.English {
		return models.LanguageEN
	}
	return models.LanguageSK
}

// T returns the message for key in lang, falling back to Slovak and then
// to the key itself.
func T(lang models.Language, key string) string {
	if msg, ok := messages[lang][key]; ok {
		return msg
	}
	if msg, ok := messages[models.DefaultLanguage][key]; ok {
		return msg
	}
	return key
}
