// Package memory keeps activity rosters in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/observability"
)

// Repository stores activities in a map guarded by a single lock.
type Repository struct {
	mu         sync.RWMutex
	activities map[string]*domain.Activity
}

// NewRepository constructs a Repository holding copies of seed.
func NewRepository(seed []domain.Activity) *Repository {
	repo := &Repository{activities: make(map[string]*domain.Activity, len(seed))}
	for _, activity := range seed {
		cloned := activity.Clone()
		repo.activities[cloned.Name] = &cloned
		observability.SetRosterSize(cloned.Name, len(cloned.Participants))
	}
	return repo
}

// NewSeededRepository constructs a Repository populated with the school's activities.
func NewSeededRepository() *Repository {
	return NewRepository(SeedActivities())
}

// List implements domain.ActivityRepository.
func (r *Repository) List(ctx context.Context) (map[string]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.Activity, len(r.activities))
	for name, activity := range r.activities {
		out[name] = activity.Clone()
	}
	return out, nil
}

// AddParticipant implements domain.ActivityRepository.
func (r *Repository) AddParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if lo.Contains(activity.Participants, email) {
		return domain.Activity{}, domain.ErrAlreadySignedUp
	}
	activity.Participants = append(activity.Participants, email)
	observability.SetRosterSize(name, len(activity.Participants))
	return activity.Clone(), nil
}

// RemoveParticipant implements domain.ActivityRepository.
func (r *Repository) RemoveParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	idx := lo.IndexOf(activity.Participants, email)
	if idx < 0 {
		return domain.Activity{}, domain.ErrNotSignedUp
	}
	activity.Participants = append(activity.Participants[:idx], activity.Participants[idx+1:]...)
	observability.SetRosterSize(name, len(activity.Participants))
	return activity.Clone(), nil
}
