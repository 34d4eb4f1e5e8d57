package competition

import (
	"context"
	"slices"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu            sync.RWMutex
	competitions  map[string]Competition
	teams         map[string]Team
	registrations map[string][]Registration
	sponsorships  map[string][]Sponsorship
}

// NewMemoryRepository builds an in-memory repository for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		competitions:  make(map[string]Competition),
		teams:         make(map[string]Team),
		registrations: make(map[string][]Registration),
		sponsorships:  make(map[string][]Sponsorship),
	}
}

func (r *memoryRepository) CreateCompetition(_ context.Context, c Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[c.TeamID]; !ok {
		return ErrNotFound
	}
	r.competitions[c.ID] = c
	return nil
}

func (r *memoryRepository) UpdateCompetition(_ context.Context, c Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.competitions[c.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name = c.Name
	stored.Location = c.Location
	stored.Date = c.Date
	stored.StartTime = c.StartTime
	stored.MaxParticipants = c.MaxParticipants
	stored.Description = c.Description
	r.competitions[c.ID] = stored
	return nil
}

func (r *memoryRepository) FinalizeCompetition(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[id]
	if !ok {
		return ErrNotFound
	}
	if c.Finalized {
		return ErrFinalized
	}
	c.Finalized = true
	r.competitions[id] = c
	return nil
}

func (r *memoryRepository) GetCompetition(_ context.Context, id string) (Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.competitions[id]
	if !ok {
		return Competition{}, ErrNotFound
	}
	c.Registrations = len(r.registrations[id])
	return c, nil
}

func (r *memoryRepository) ListCompetitions(_ context.Context) ([]Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Competition, 0, len(r.competitions))
	for id, c := range r.competitions {
		c.Registrations = len(r.registrations[id])
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Name < out[j].Name
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *memoryRepository) CreateTeam(_ context.Context, t Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Members = slices.Clone(t.Members)
	r.teams[t.ID] = t
	return nil
}

func (r *memoryRepository) GetTeam(_ context.Context, id string) (Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	t.Members = slices.Clone(t.Members)
	return t, nil
}

func (r *memoryRepository) ListTeams(_ context.Context) ([]Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Team, 0, len(r.teams))
	for _, t := range r.teams {
		t.Members = slices.Clone(t.Members)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) AddTeamMember(_ context.Context, teamID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	if slices.Contains(t.Members, userID) {
		return ErrAlreadyMember
	}
	t.Members = append(slices.Clone(t.Members), userID)
	r.teams[teamID] = t
	return nil
}

func (r *memoryRepository) AddRegistration(_ context.Context, reg Registration, capacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[reg.CompetitionID]
	if !ok {
		return ErrNotFound
	}
	if c.Finalized {
		return ErrFinalized
	}
	existing := r.registrations[reg.CompetitionID]
	for _, e := range existing {
		if e.ParticipantID == reg.ParticipantID {
			return ErrAlreadyRegistered
		}
	}
	if capacity > 0 && len(existing) >= capacity {
		return ErrFull
	}
	r.registrations[reg.CompetitionID] = append(existing, reg)
	return nil
}

func (r *memoryRepository) ListRegistrations(_ context.Context, competitionID string) ([]Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.registrations[competitionID]), nil
}

func (r *memoryRepository) AddSponsorship(_ context.Context, s Sponsorship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.competitions[s.CompetitionID]
	if !ok {
		return ErrNotFound
	}
	if c.Finalized {
		return ErrFinalized
	}
	for _, e := range r.sponsorships[s.CompetitionID] {
		if e.SponsorID == s.SponsorID {
			return ErrAlreadySponsored
		}
	}
	r.sponsorships[s.CompetitionID] = append(r.sponsorships[s.CompetitionID], s)
	return nil
}

func (r *memoryRepository) ListSponsorships(_ context.Context, competitionID string) ([]Sponsorship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sponsorships[competitionID]), nil
}
