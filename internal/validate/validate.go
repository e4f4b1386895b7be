// Package validate guards the dispatch boundary. Every check is
// short-circuiting: the first violation found is returned as the error.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/patrona-app/patrona-backend/internal/models"
)

const (
	maxUserNameLen = 100
	maxContacts    = 10
)

var (
	// E.164: optional +, then 7-15 digits, no leading zero.
	phoneRE = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	// Characters carriers and users sneak into phone numbers.
	phoneJunkRE = regexp.MustCompile(`[\s\-()]`)
)

// NormalizePhone strips spaces, dashes and parentheses. Idempotent:
// normalizing an already-clean E.164 number returns it unchanged.
func NormalizePhone(phone string) string {
	return phoneJunkRE.ReplaceAllString(phone, "")
}

// ValidPhone reports whether a normalized number matches E.164.
func ValidPhone(phone string) bool {
	return phoneRE.MatchString(phone)
}

func checkUserName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("userName is required")
	}
	if utf8.RuneCountInString(name) > maxUserNameLen {
		return errors.New("userName too long")
	}
	return nil
}

func checkContacts(contacts []models.Contact) error {
	if len(contacts) == 0 {
		return errors.New("contacts must be a non-empty array")
	}
	if len(contacts) > maxContacts {
		return fmt.Errorf("too many contacts (max %d)", maxContacts)
	}
	for _, c := range contacts {
		if !ValidPhone(NormalizePhone(c.Phone)) {
			return fmt.Errorf("invalid phone number: %s", c.Phone)
		}
	}
	return nil
}

func checkLatitude(lat *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return errors.New("latitude must be a number between -90 and 90")
	}
	return nil
}

func checkLongitude(lng *float64) error {
	if lng != nil && (*lng < -180 || *lng > 180) {
		return errors.New("longitude must be a number between -180 and 180")
	}
	return nil
}

// AlertBody validates a POST /api/alert payload.
func AlertBody(req *models.AlertRequest) error {
	if err := checkUserName(req.UserName); err != nil {
		return err
	}
	if err := checkContacts(req.Contacts); err != nil {
		return err
	}
	// Coords are optional — the alert still sends without a location.
	if err := checkLatitude(req.Latitude); err != nil {
		return err
	}
	if err := checkLongitude(req.Longitude); err != nil {
		return err
	}
	if req.TriggerType != "" && !models.TriggerType(req.TriggerType).Valid() {
		return errors.New("triggerType must be safeword, silence, or deviation")
	}
	return nil
}

// ClearBody validates a POST /api/alert/clear payload.
func ClearBody(req *models.ClearRequest) error {
	if err := checkUserName(req.UserName); err != nil {
		return err
	}
	return checkContacts(req.Contacts)
}

// WalkStartBody validates a POST /api/walk/start payload.
func WalkStartBody(req *models.WalkStartRequest) error {
	if err := checkUserName(req.UserName); err != nil {
		return err
	}
	if strings.TrimSpace(req.SafeWord) == "" {
		return errors.New("safeWord is required")
	}
	return checkContacts(req.Contacts)
}

// PingBody validates a POST /api/ping payload. A missing sessionId is valid:
// the handler treats it as a no-op. With a sessionId present, coordinates
// are required.
func PingBody(req *models.PingRequest) error {
	if req.SessionID == "" {
		return nil
	}
	if req.Latitude == nil {
		return errors.New("latitude must be a number between -90 and 90")
	}
	if err := checkLatitude(req.Latitude); err != nil {
		return err
	}
	if req.Longitude == nil {
		return errors.New("longitude must be a number between -180 and 180")
	}
	return checkLongitude(req.Longitude)
}
