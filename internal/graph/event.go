package graph

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// EventForm is the caller-supplied data for a new calendar event.
// Start and End are local date-times interpreted in the time zone passed to
// BuildEvent, e.g. "2024-03-01T09:00".
type EventForm struct {
	Subject   string
	Start     string
	End       string
	Body      string
	Attendees []string
}

// Validate checks that the form can be turned into an event Graph accepts.
func (f EventForm) Validate() error {
	if strings.TrimSpace(f.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidArgument)
	}
	if f.Start == "" || f.End == "" {
		return fmt.Errorf("%w: start and end are required", ErrInvalidArgument)
	}
	for _, address := range f.Attendees {
		if _, err := mail.ParseAddress(address); err != nil {
			return fmt.Errorf("%w: attendee %q is not a valid address", ErrInvalidArgument, address)
		}
	}
	return nil
}

// ParseAttendees splits a list of addresses separated by semicolons or commas.
// Blank entries are dropped; an empty input yields nil.
func ParseAttendees(raw string) []string {
	var attendees []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			attendees = append(attendees, part)
		}
	}
	return attendees
}

// BuildEvent builds the Graph event for form in timeZone. The body is plain
// text. Without attendees the attendees property is left unset so it is
// omitted from the payload; each attendee is added as required.
func BuildEvent(form EventForm, timeZone string) models.Eventable {
	event := models.NewEvent()
	event.SetSubject(&form.Subject)
	event.SetStart(dateTimeZone(form.Start, timeZone))
	event.SetEnd(dateTimeZone(form.End, timeZone))

	body := models.NewItemBody()
	contentType := models.TEXT_BODYTYPE
	body.SetContentType(&contentType)
	body.SetContent(&form.Body)
	event.SetBody(body)

	if len(form.Attendees) > 0 {
		attendees := make([]models.Attendeeable, 0, len(form.Attendees))
		for _, address := range form.Attendees {
			email := models.NewEmailAddress()
			email.SetAddress(&address)

			attendee := models.NewAttendee()
			required := models.REQUIRED_ATTENDEETYPE
			attendee.SetTypeEscaped(&required)
			attendee.SetEmailAddress(email)
			attendees = append(attendees, attendee)
		}
		event.SetAttendees(attendees)
	}

	return event
}

func dateTimeZone(dateTime, timeZone string) models.DateTimeTimeZoneable {
	dt := models.NewDateTimeTimeZone()
	dt.SetDateTime(&dateTime)
	dt.SetTimeZone(&timeZone)
	return dt
}

// Subscription constants: every change to the signed-in user's events.
const (
	subscriptionChangeType = "created,updated,deleted"
	subscriptionResource   = "/me/events"
)

// BuildSubscription builds a change-notification subscription for the user's
// events delivered to notificationURL until expiration.
func BuildSubscription(notificationURL, clientState string, expiration time.Time) models.Subscriptionable {
	changeType := subscriptionChangeType
	resource := subscriptionResource
	expiration = expiration.UTC()

	sub := models.NewSubscription()
	sub.SetChangeType(&changeType)
	sub.SetNotificationUrl(&notificationURL)
	sub.SetResource(&resource)
	sub.SetExpirationDateTime(&expiration)
	sub.SetClientState(&clientState)
	return sub
}

// newClientState returns a random opaque value for subscription verification.
func newClientState() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate client state: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
