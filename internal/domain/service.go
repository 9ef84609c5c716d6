// Package domain defines the business logic for the activity sign-up service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/observability"
)

var (
	// ErrActivityNotFound is returned when no activity has the requested name.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the roster.
	ErrAlreadySignedUp = errors.New("student is already signed up for this activity")
	// ErrNotSignedUp is returned when removing an email that is not on the roster.
	ErrNotSignedUp = errors.New("student is not signed up for this activity")
)

// ActivityRepository captures roster storage operations. Implementations apply each
// mutation atomically and return the activity as it looks after the change.
type ActivityRepository interface {
	List(ctx context.Context) (map[string]Activity, error)
	AddParticipant(ctx context.Context, name, email string) (Activity, error)
	RemoveParticipant(ctx context.Context, name, email string) (Activity, error)
}

// Service orchestrates roster workflows.
type Service struct {
	repo      ActivityRepository
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher routes roster events to p.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger overrides the logger used to report publish failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service. Without WithPublisher events are dropped.
func NewService(repo ActivityRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.NopPublisher{},
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns a snapshot of every activity keyed by name.
func (s *Service) ListActivities(ctx context.Context) (map[string]Activity, error) {
	return s.repo.List(ctx)
}

// SignUp appends email to the roster of the named activity. Capacity is not enforced.
func (s *Service) SignUp(ctx context.Context, name, email string) (Activity, error) {
	activity, err := s.repo.AddParticipant(ctx, name, email)
	if err != nil {
		return Activity{}, err
	}
	observability.RecordRosterChange(events.TypeParticipantSignedUp, activity.Name)
	s.publish(ctx, events.TypeParticipantSignedUp, activity, email)
	return activity, nil
}

// Remove takes email off the roster of the named activity.
func (s *Service) Remove(ctx context.Context, name, email string) (Activity, error) {
	activity, err := s.repo.RemoveParticipant(ctx, name, email)
	if err != nil {
		return Activity{}, err
	}
	observability.RecordRosterChange(events.TypeParticipantRemoved, activity.Name)
	s.publish(ctx, events.TypeParticipantRemoved, activity, email)
	return activity, nil
}

func (s *Service) publish(ctx context.Context, eventType string, activity Activity, email string) {
	event := events.RosterChanged{
		Activity:        activity.Name,
		Email:           email,
		RosterSize:      len(activity.Participants),
		MaxParticipants: activity.MaxParticipants,
		OccurredAt:      s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		// Roster changes stand even when the event is lost.
		s.logger.Warn().Err(err).Str("event_type", eventType).Str("activity", activity.Name).Msg("failed to publish roster event")
		observability.RecordPublishFailure(eventType)
	}
}
