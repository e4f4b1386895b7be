package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/patrona-app/patrona-backend/internal/models"
	"github.com/patrona-app/patrona-backend/internal/validate"
)

// ErrInvalidContact rejects a whole dispatch when any contact's number
// fails E.164 normalization.
var ErrInvalidContact = errors.New("invalid contact phone number")

// ErrTransportUnavailable marks a dispatch where the SMS transport itself
// was unreachable. Operation-fatal, unlike per-recipient failures.
var ErrTransportUnavailable = errors.New("sms transport unavailable")

const defaultFrontendURL = "https://patrona.vercel.app"

// AlertDispatcher composes notification messages and delivers them to every
// contact, tolerating partial delivery failure.
type AlertDispatcher struct {
	sms         SMSSender
	frontendURL string
}

// NewAlertDispatcher creates a dispatcher over the given transport. The
// tracking link base comes from FRONTEND_URL.
func NewAlertDispatcher(sms SMSSender) *AlertDispatcher {
	base := os.Getenv("FRONTEND_URL")
	if base == "" {
		base = defaultFrontendURL
	}
	return &AlertDispatcher{
		sms:         sms,
		frontendURL: base,
	}
}

// SendAlert delivers the emergency message to every contact concurrently.
// One recipient's failure never blocks the others; the result aggregates
// counts and stringified reasons without naming which contact failed.
func (d *AlertDispatcher) SendAlert(ctx context.Context, userName string, contacts []models.Contact, pos *models.Position, trigger models.TriggerType) (*models.DispatchResult, error) {
	contacts, err := normalizeContacts(contacts)
	if err != nil {
		return nil, err
	}
	return d.fanOut(ctx, contacts, d.buildAlertMessage(userName, pos, trigger))
}

// SendAllClear delivers the fixed reassurance message through the same
// pipeline.
func (d *AlertDispatcher) SendAllClear(ctx context.Context, userName string, contacts []models.Contact) (*models.DispatchResult, error) {
	contacts, err := normalizeContacts(contacts)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("✅ Patrona Update: %s has confirmed they are safe. Alert cleared. No further action needed.", userName)
	return d.fanOut(ctx, contacts, message)
}

// normalizeContacts strips formatting junk from every number, failing the
// whole batch on the first one that is not E.164.
func normalizeContacts(contacts []models.Contact) ([]models.Contact, error) {
	out := make([]models.Contact, len(contacts))
	for i, c := range contacts {
		phone := validate.NormalizePhone(c.Phone)
		if !validate.ValidPhone(phone) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidContact, c.Phone)
		}
		c.Phone = phone
		out[i] = c
	}
	return out, nil
}

// triggerLabel maps a trigger type to the human reason in the SMS body.
// Empty for an unspecified trigger; the message then carries no Reason line.
func triggerLabel(t models.TriggerType) string {
	switch t {
	case models.TriggerSafeWord:
		return "safe word detected"
	case models.TriggerSilence:
		return "no response to check-ins"
	case models.TriggerDeviation:
		return "route deviation detected"
	}
	return ""
}

// buildAlertMessage assembles the emergency SMS. Bare coordinates stay
// plain "lat, lng" — carrier URL filtering drops messages with odd
// characters.
func (d *AlertDispatcher) buildAlertMessage(userName string, pos *models.Position, trigger models.TriggerType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆘 Patrona Alert: %s may need help.\n", userName)
	if label := triggerLabel(trigger); label != "" {
		fmt.Fprintf(&b, "Reason: %s.\n", label)
	}
	if pos != nil {
		fmt.Fprintf(&b, "Last location: %.6f, %.6f\n", pos.Latitude, pos.Longitude)
		fmt.Fprintf(&b, "Live map: https://www.google.com/maps?q=%.6f,%.6f\n", pos.Latitude, pos.Longitude)
		fmt.Fprintf(&b, "Track here: %s\n", d.trackingURL(userName, pos))
	} else {
		b.WriteString("Location unavailable.\n")
	}
	b.WriteString("Sent by Patrona safety system.")
	return b.String()
}

// trackingURL builds the public tracking-page link.
func (d *AlertDispatcher) trackingURL(name string, pos *models.Position) string {
	params := url.Values{}
	params.Set("tracking", "1")
	params.Set("name", name)
	params.Set("lat", strconv.FormatFloat(pos.Latitude, 'f', 6, 64))
	params.Set("lng", strconv.FormatFloat(pos.Longitude, 'f', 6, 64))
	params.Set("ts", strconv.FormatInt(pos.Timestamp.UnixMilli(), 10))
	return d.frontendURL + "?" + params.Encode()
}

// fanOut sends one message per contact with all-settle semantics: every
// send is attempted regardless of sibling outcomes. With no transport
// configured it reports success in mock mode.
func (d *AlertDispatcher) fanOut(ctx context.Context, contacts []models.Contact, message string) (*models.DispatchResult, error) {
	result := &models.DispatchResult{Attempted: len(contacts)}

	if d.sms == nil || !d.sms.Configured() {
		log.Printf("⚠️  SMS transport not configured — would have sent: %q", message)
		result.MessagesSent = len(contacts)
		result.Mock = true
		return result, nil
	}

	errs := make([]error, len(contacts))
	var wg sync.WaitGroup
	for i := range contacts {
		wg.Add(1)
		go func(i int, to string) {
			defer wg.Done()
			errs[i] = d.sms.SendSMS(to, message)
		}(i, contacts[i].Phone)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// In-flight sends keep running; an alert, once triggered, is
		// not cancelable.
		return nil, ctx.Err()
	}

	transportDown := true
	for _, err := range errs {
		if err == nil {
			result.MessagesSent++
			transportDown = false
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, err.Error())
		if !isTransportErr(err) {
			transportDown = false
		}
	}

	if result.Failed > 0 {
		log.Printf("⚠️  %d of %d messages failed", result.Failed, result.Attempted)
	}
	if transportDown && result.Failed > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTransportUnavailable, result.Errors[0])
	}
	return result, nil
}

// isTransportErr classifies network-level failures (DNS, connect, timeout)
// as distinct from a definitive rejection by the SMS provider.
func isTransportErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
