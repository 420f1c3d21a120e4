package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/2beens/apexhq/internal/appstate"
	"github.com/2beens/apexhq/internal/athlete"
	"github.com/2beens/apexhq/internal/kv"
	"github.com/2beens/apexhq/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type State string

const (
	Unauthenticated          State = "unauthenticated"
	AuthenticatedNoProfile   State = "authenticated-no-profile"
	AuthenticatedWithProfile State = "authenticated-with-profile"
)

const (
	authTokenLength = 35

	defaultInjuries          = "None"
	defaultTrainingFrequency = 4
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAthleteExists    = errors.New("athlete with this id already exists")
)

// Manager owns the auth flag and the current athlete selection. It is the
// only reader and writer of those two keys.
type Manager struct {
	mu            sync.Mutex
	kv            kv.Store
	keys          kv.Keys
	aggregator    *appstate.Aggregator
	authenticated bool
	athleteID     string

	// ability to inject random string / id generators (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	NewIDFunc      func() string
	ExistsFunc     func(ctx context.Context, athleteID string) bool
}

func NewManager(kvStore kv.Store, keys kv.Keys, aggregator *appstate.Aggregator) *Manager {
	return &Manager{
		kv:             kvStore,
		keys:           keys,
		aggregator:     aggregator,
		RandStringFunc: pkg.GenerateRandomString,
		NewIDFunc:      uuid.NewString,
	}
}

// State is derived, never stored: authenticated flag AND whether the loaded
// document has a profile.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	if !m.authenticated {
		return Unauthenticated
	}
	doc, _, ok := m.aggregator.Snapshot()
	if !ok || !doc.HasProfile() {
		return AuthenticatedNoProfile
	}
	return AuthenticatedWithProfile
}

func (m *Manager) AthleteID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.athleteID
}

// Login authenticates and selects the athlete. Without an id the selection
// is cleared, which leads to onboarding.
func (m *Manager) Login(ctx context.Context, athleteID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.RandStringFunc(authTokenLength)
	if err != nil {
		return m.stateLocked(), fmt.Errorf("generate auth token: %w", err)
	}
	m.setFlag(ctx, m.keys.AuthFlag(), token)
	m.authenticated = true

	athleteID = strings.TrimSpace(athleteID)
	if athleteID == "" {
		m.clearFlag(ctx, m.keys.CurrentAthleteID())
		m.athleteID = ""
		m.aggregator.Clear()
		log.Debugln("session, logged in without athlete")
		return m.stateLocked(), nil
	}

	m.setFlag(ctx, m.keys.CurrentAthleteID(), athleteID)
	m.athleteID = athleteID
	m.aggregator.Switch(ctx, athleteID)

	state := m.stateLocked()
	log.Debugf("session, logged in as [%s]: %s", athleteID, state)
	return state, nil
}

// Logout always ends in Unauthenticated.
func (m *Manager) Logout(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearFlag(ctx, m.keys.AuthFlag())
	m.clearFlag(ctx, m.keys.CurrentAthleteID())
	m.authenticated = false
	m.athleteID = ""
	m.aggregator.Clear()

	log.Debugln("session, logged out")
	return Unauthenticated
}

// CompleteOnboarding creates and selects a brand-new athlete document.
func (m *Manager) CompleteOnboarding(ctx context.Context, profile athlete.Profile) (athlete.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authenticated {
		return athlete.Profile{}, ErrNotAuthenticated
	}

	profile, err := m.prepareProfile(ctx, profile)
	if err != nil {
		return athlete.Profile{}, err
	}

	m.aggregator.Replace(ctx, athlete.NewDocument(profile))
	m.setFlag(ctx, m.keys.CurrentAthleteID(), profile.ID)
	m.athleteID = profile.ID

	log.Infof("session, onboarding completed for [%s] %s", profile.ID, profile.Name)
	return profile, nil
}

func (m *Manager) prepareProfile(ctx context.Context, profile athlete.Profile) (athlete.Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Sport = strings.TrimSpace(profile.Sport)
	if profile.Name == "" || profile.Sport == "" {
		return athlete.Profile{}, fmt.Errorf("onboarding: %w", appstate.ErrValidationSkipped)
	}

	if profile.ID == "" {
		profile.ID = m.NewIDFunc()
	} else if m.ExistsFunc != nil && m.ExistsFunc(ctx, profile.ID) {
		return athlete.Profile{}, fmt.Errorf("onboarding [%s]: %w", profile.ID, ErrAthleteExists)
	}

	if profile.TrainingPhase == "" {
		profile.TrainingPhase = athlete.PhaseMaintenance
	}
	if profile.ExperienceLevel == "" {
		profile.ExperienceLevel = athlete.LevelIntermediate
	}
	if strings.TrimSpace(profile.Injuries) == "" {
		profile.Injuries = defaultInjuries
	}
	if profile.TrainingFrequency <= 0 {
		profile.TrainingFrequency = defaultTrainingFrequency
	}

	return profile, nil
}

// Restore re-derives the session from the persisted flags, e.g. at startup.
func (m *Manager) Restore(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.getFlag(ctx, m.keys.AuthFlag())
	if !ok || token == "" {
		m.authenticated = false
		m.athleteID = ""
		m.aggregator.Clear()
		return Unauthenticated
	}
	m.authenticated = true

	athleteID, _ := m.getFlag(ctx, m.keys.CurrentAthleteID())
	m.athleteID = athleteID
	if athleteID == "" {
		m.aggregator.Clear()
	} else {
		m.aggregator.Switch(ctx, athleteID)
	}

	state := m.stateLocked()
	log.Infof("session restored for [%s]: %s", athleteID, state)
	return state
}

// flag write failures are logged only: the in-memory session still works,
// it just won't survive a restart
func (m *Manager) setFlag(ctx context.Context, key, value string) {
	valueJson, err := json.Marshal(value)
	if err != nil {
		log.Errorf("session, marshal flag [%s]: %s", key, err)
		return
	}
	if err := m.kv.Set(ctx, key, valueJson); err != nil {
		log.Errorf("session, write flag [%s]: %s", key, err)
	}
}

func (m *Manager) clearFlag(ctx context.Context, key string) {
	if err := m.kv.Del(ctx, key); err != nil {
		log.Errorf("session, clear flag [%s]: %s", key, err)
	}
}

func (m *Manager) getFlag(ctx context.Context, key string) (string, bool) {
	valueJson, err := m.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			log.Errorf("session, read flag [%s]: %s", key, err)
		}
		return "", false
	}

	var value string
	if err := json.Unmarshal(valueJson, &value); err != nil {
		log.Errorf("session, flag [%s] corrupt: %s", key, err)
		return "", false
	}
	return value, true
}
