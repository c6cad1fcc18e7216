package graph

import (
	"context"
	"fmt"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/instrumentation"
	"github.com/teemow/graphcal/internal/logging"
)

// Operation names used in logs, metrics and span names.
const (
	OpProfile            = "profile"
	OpCalendarView       = "calendar_view"
	OpCreateEvent        = "create_event"
	OpCreateSubscription = "create_subscription"
	OpTeamsMeetings      = "teams_meetings"
)

var (
	profileFields         = []string{"displayName", "mail", "mailboxSettings", "userPrincipalName"}
	calendarViewFields    = []string{"subject", "organizer", "start", "end"}
	teamsMeetingFields    = []string{"subject", "organizer", "start", "end", "onlineMeeting", "isOnlineMeeting"}
	orderByStartAscending = []string{"start/dateTime"}
)

// run executes one Graph call under the operation timeout, a client span,
// metrics and logging. Errors come back classified.
func (s *Service) run(ctx context.Context, operation, userID string, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ctx, span := instrumentation.StartGraphSpan(ctx, operation,
		attribute.String(instrumentation.SpanAttrUserHash, logging.AnonymizeUser(userID)))
	defer span.End()

	start := time.Now()
	s.logger.Debug("graph request started", logging.Operation(operation), logging.UserHash(userID))

	err := call(ctx)
	duration := time.Since(start)

	if err != nil {
		err = classifyError(operation, err)
		if remote, ok := err.(*RemoteAPIError); ok && remote.StatusCode != 0 {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrStatusCode, remote.StatusCode))
		}
		instrumentation.SetSpanError(span, err)
		s.recorder.RecordGraphOperation(ctx, operation, instrumentation.StatusError, duration)
		s.logger.Error("graph request failed",
			logging.Operation(operation),
			logging.UserHash(userID),
			logging.Duration(duration),
			logging.Err(err))
		return err
	}

	instrumentation.SetSpanSuccess(span)
	s.recorder.RecordGraphOperation(ctx, operation, instrumentation.StatusSuccess, duration)
	s.logger.Debug("graph request completed",
		logging.Operation(operation),
		logging.UserHash(userID),
		logging.Duration(duration))
	return nil
}

// GetUserDetails fetches the signed-in user's profile restricted to display
// name, mail, mailbox settings and user principal name.
func (s *Service) GetUserDetails(ctx context.Context, idc identity.Client, userID string) (models.Userable, error) {
	client, err := s.GetClient(idc, userID)
	if err != nil {
		return nil, err
	}

	var user models.Userable
	err = s.run(ctx, OpProfile, userID, func(ctx context.Context) error {
		user, err = client.Me().Get(ctx, &users.UserItemRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.UserItemRequestBuilderGetQueryParameters{
				Select: profileFields,
			},
		})
		if err == nil && user == nil {
			return ErrEmptyResponse
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetCalendarView lists events overlapping [start, end], ordered by start
// time and capped at the configured page size. Times in the response are
// expressed in timeZone when it is set.
func (s *Service) GetCalendarView(ctx context.Context, idc identity.Client, userID, start, end, timeZone string) (models.EventCollectionResponseable, error) {
	client, err := s.GetClient(idc, userID)
	if err != nil {
		return nil, err
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("%w: start and end are required", ErrInvalidArgument)
	}

	headers := abstractions.NewRequestHeaders()
	if timeZone != "" {
		headers.Add("Prefer", preferTimeZone(timeZone))
	}
	top := s.config.PageSize

	var events models.EventCollectionResponseable
	err = s.run(ctx, OpCalendarView, userID, func(ctx context.Context) error {
		events, err = client.Me().CalendarView().Get(ctx, &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
			Headers: headers,
			QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &start,
				EndDateTime:   &end,
				Select:        calendarViewFields,
				Orderby:       orderByStartAscending,
				Top:           &top,
			},
		})
		if err != nil {
			return err
		}
		if events == nil {
			return ErrEmptyResponse
		}
		setItemCount(ctx, len(events.GetValue()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent creates an event in the user's default calendar from form,
// with start and end in timeZone, and returns the created event.
func (s *Service) CreateEvent(ctx context.Context, idc identity.Client, userID string, form EventForm, timeZone string) (models.Eventable, error) {
	client, err := s.GetClient(idc, userID)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var created models.Eventable
	err = s.run(ctx, OpCreateEvent, userID, func(ctx context.Context) error {
		created, err = client.Me().Events().Post(ctx, BuildEvent(form, timeZone), nil)
		if err == nil && created == nil {
			return ErrEmptyResponse
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		logging.UserHash(userID),
		"event_id", deref(created.GetId()),
		"attendees", len(form.Attendees))
	return created, nil
}

// CreateSubscription subscribes the configured notification URL to changes
// of the user's events for the configured TTL.
func (s *Service) CreateSubscription(ctx context.Context, idc identity.Client, userID string) (models.Subscriptionable, error) {
	client, err := s.GetClient(idc, userID)
	if err != nil {
		return nil, err
	}
	if s.config.NotificationURL == "" {
		return nil, ErrNotificationURLRequired
	}

	clientState := s.config.ClientState
	if clientState == "" {
		if clientState, err = newClientState(); err != nil {
			return nil, err
		}
	}
	body := BuildSubscription(s.config.NotificationURL, clientState, s.now().Add(s.config.SubscriptionTTL))

	var created models.Subscriptionable
	err = s.run(ctx, OpCreateSubscription, userID, func(ctx context.Context) error {
		created, err = client.Subscriptions().Post(ctx, body, nil)
		if err == nil && created == nil {
			return ErrEmptyResponse
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		logging.UserHash(userID),
		"subscription_id", deref(created.GetId()),
		"resource", deref(created.GetResource()),
		"expires", expiry(created))
	return created, nil
}

// GetTeamsMeetings lists the user's events ordered by start time, capped at
// the configured page size, and keeps only online meetings.
func (s *Service) GetTeamsMeetings(ctx context.Context, idc identity.Client, userID string) (models.EventCollectionResponseable, error) {
	client, err := s.GetClient(idc, userID)
	if err != nil {
		return nil, err
	}
	top := s.config.PageSize

	meetings := models.NewEventCollectionResponse()
	err = s.run(ctx, OpTeamsMeetings, userID, func(ctx context.Context) error {
		events, err := client.Me().Events().Get(ctx, &users.ItemEventsRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemEventsRequestBuilderGetQueryParameters{
				Select:  teamsMeetingFields,
				Orderby: orderByStartAscending,
				Top:     &top,
			},
		})
		if err != nil {
			return err
		}
		if events == nil {
			return ErrEmptyResponse
		}
		meetings.SetValue(FilterOnlineMeetings(events.GetValue()))
		setItemCount(ctx, len(meetings.GetValue()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// FilterOnlineMeetings returns the events flagged as online meetings in
// their original order.
func FilterOnlineMeetings(events []models.Eventable) []models.Eventable {
	meetings := make([]models.Eventable, 0, len(events))
	for _, event := range events {
		if event == nil {
			continue
		}
		if online := event.GetIsOnlineMeeting(); online != nil && *online {
			meetings = append(meetings, event)
		}
	}
	return meetings
}

// setItemCount records the number of returned items on the operation span.
func setItemCount(ctx context.Context, n int) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(instrumentation.SpanAttrItemCount, n))
}

func preferTimeZone(timeZone string) string {
	return fmt.Sprintf("outlook.timezone=%q", timeZone)
}

func expiry(sub models.Subscriptionable) string {
	if t := sub.GetExpirationDateTime(); t != nil {
		return t.Format(time.RFC3339)
	}
	return ""
}
