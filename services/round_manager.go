package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"strik-trivia/metrics"
	"strik-trivia/models"

	"github.com/sirupsen/logrus"
)

type RoundManagerConfig struct {
	DefaultTimeLimit time.Duration
	IdleTimeout      time.Duration
	TickInterval     time.Duration
}

type managedRound struct {
	ctrl      *RoundController
	stopClock context.CancelFunc
}

// RoundManager holds one RoundController per player and drives their clocks.
type RoundManager struct {
	Users    *UserService
	Recorder *SessionRecorder
	Bank     *QuestionBank
	Outbox   *Outbox
	Metrics  metrics.Recorder
	Config   RoundManagerConfig
	Now      func() time.Time
	NewRand  func() *rand.Rand

	mu     sync.Mutex
	rounds map[string]*managedRound
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoundManager(users *UserService, recorder *SessionRecorder, bank *QuestionBank, outbox *Outbox, rec metrics.Recorder, cfg RoundManagerConfig) *RoundManager {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RoundManager{
		Users:    users,
		Recorder: recorder,
		Bank:     bank,
		Outbox:   outbox,
		Metrics:  rec,
		Config:   cfg,
		Now:      time.Now,
		NewRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		rounds: make(map[string]*managedRound),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins a round for identity. The player's lifetime best streak seeds
// the round when the profile can be read; otherwise the round runs without it.
func (m *RoundManager) Start(ctx context.Context, identity string, mode models.GameMode) (RoundSnapshot, error) {
	if identity == "" {
		return RoundSnapshot{}, models.NewAuthRequiredError()
	}

	for {
		mr := m.lookupOrCreate(ctx, identity)
		snap, err := mr.ctrl.Start(mode)
		if errors.Is(err, errControllerClosed) {
			continue
		}
		if err != nil {
			return snap, err
		}
		if m.restartClock(identity, mr) {
			return snap, nil
		}
	}
}

// lookupOrCreate returns the player's controller, creating one when the
// player has none.
func (m *RoundManager) lookupOrCreate(ctx context.Context, identity string) *managedRound {
	m.mu.Lock()
	mr, ok := m.rounds[identity]
	m.mu.Unlock()
	if ok {
		return mr
	}

	previousBest := 0
	if u, err := m.Users.CurrentUser(ctx, identity); err != nil {
		logrus.WithError(err).WithField("identity", identity).Warn("[ROUND] could not load profile, starting without previous best")
	} else if u != nil {
		previousBest = u.BestStreak
	}

	ctrl := NewRoundController(RoundConfig{
		Bank:             m.Bank,
		Sink:             &recorderSink{identity: identity, recorder: m.Recorder, outbox: m.Outbox},
		Metrics:          m.Metrics,
		Rand:             m.NewRand(),
		Now:              m.Now,
		DefaultTimeLimit: int(m.Config.DefaultTimeLimit / time.Second),
		PreviousBest:     previousBest,
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, raced := m.rounds[identity]; raced {
		return existing
	}
	mr = &managedRound{ctrl: ctrl}
	m.rounds[identity] = mr
	m.Metrics.SetActiveRounds(len(m.rounds))
	return mr
}

// restartClock replaces the clock of mr. It reports false, starting nothing,
// when mr was evicted in the meantime.
func (m *RoundManager) restartClock(identity string, mr *managedRound) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rounds[identity] != mr {
		return false
	}
	if mr.stopClock != nil {
		mr.stopClock()
	}
	clockCtx, stop := context.WithCancel(m.ctx)
	mr.stopClock = stop
	go m.runClock(clockCtx, mr.ctrl)
	return true
}

func (m *RoundManager) runClock(ctx context.Context, ctrl *RoundController) {
	ticker := time.NewTicker(m.Config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ctrl.Redrawn():
			// A new question gets its full time limit.
			ticker.Reset(m.Config.TickInterval)
		case <-ticker.C:
			if !ctrl.tickDown() {
				return
			}
		}
	}
}

func (m *RoundManager) controller(identity string) (*RoundController, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.rounds[identity]
	if !ok {
		return nil, models.NewNoActiveRoundError()
	}
	return mr.ctrl, nil
}

func (m *RoundManager) Current(identity string) (RoundSnapshot, error) {
	ctrl, err := m.controller(identity)
	if err != nil {
		return RoundSnapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

func (m *RoundManager) SubmitAnswer(identity, text string) (bool, RoundSnapshot, error) {
	ctrl, err := m.controller(identity)
	if err != nil {
		return false, RoundSnapshot{}, err
	}
	return ctrl.SubmitAnswer(text)
}

func (m *RoundManager) End(identity string) (RoundSnapshot, error) {
	ctrl, err := m.controller(identity)
	if err != nil {
		return RoundSnapshot{}, err
	}
	snap, ended := ctrl.End()
	if !ended {
		return snap, models.NewNoActiveRoundError()
	}
	return snap, nil
}

func (m *RoundManager) Subscribe(identity string) (<-chan RoundSnapshot, func(), error) {
	ctrl, err := m.controller(identity)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ctrl.Subscribe()
	return ch, cancel, nil
}

// Active reports how many controllers are held.
func (m *RoundManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rounds)
}

// SweepIdle drops controllers untouched for longer than the idle timeout.
// A round still playing is abandoned; its session stays open.
func (m *RoundManager) SweepIdle() int {
	if m.Config.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.Now().Add(-m.Config.IdleTimeout)

	m.mu.Lock()
	var evicted []*managedRound
	for identity, mr := range m.rounds {
		if mr.ctrl.IdleSince().Before(cutoff) {
			evicted = append(evicted, mr)
			delete(m.rounds, identity)
		}
	}
	m.Metrics.SetActiveRounds(len(m.rounds))
	m.mu.Unlock()

	for _, mr := range evicted {
		if mr.stopClock != nil {
			mr.stopClock()
		}
		mr.ctrl.Close()
	}
	if len(evicted) > 0 {
		logrus.WithField("evicted", len(evicted)).Info("[SWEEP] dropped idle rounds")
	}
	return len(evicted)
}

// Shutdown stops every clock and closes all subscriptions.
func (m *RoundManager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for identity, mr := range m.rounds {
		mr.ctrl.Close()
		delete(m.rounds, identity)
	}
}

// recorderSink hands round side effects to the outbox.
type recorderSink struct {
	identity string
	recorder *SessionRecorder
	outbox   *Outbox
}

func (s *recorderSink) BeginSession(mode models.GameMode) *SessionTicket {
	ticket := &SessionTicket{}
	s.outbox.Enqueue(Job{
		Name: "create_session",
		Run: func(ctx context.Context) error {
			id, err := s.recorder.StartSession(ctx, s.identity, mode)
			if err != nil {
				return err
			}
			ticket.set(id)
			return nil
		},
	})
	return ticket
}

func (s *recorderSink) FinishSession(ticket *SessionTicket, c models.SessionCompletion) {
	s.outbox.Enqueue(Job{
		Name: "complete_session",
		Run: func(ctx context.Context) error {
			id := ticket.ID()
			if id == "" {
				logrus.WithField("identity", s.identity).Warn("[RECORDER] round ended without a remote session, keeping local stats only")
				return nil
			}
			_, err := s.recorder.CompleteSession(ctx, s.identity, id, c)
			return err
		},
	})
}
