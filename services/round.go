package services

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"strik-trivia/metrics"
	"strik-trivia/models"

	"github.com/sirupsen/logrus"
)

type RoundStatus string

const (
	RoundIdle    RoundStatus = "idle"
	RoundPlaying RoundStatus = "playing"
	RoundEnded   RoundStatus = "ended"
)

type EndReason string

const (
	EndWrongAnswer EndReason = "wrong_answer"
	EndTimeout     EndReason = "timeout"
	EndManual      EndReason = "manual"
)

// errControllerClosed is returned by Start once Close has run.
var errControllerClosed = errors.New("round controller closed")

// PointsPerCorrectAnswer is the score awarded for each accepted answer.
const PointsPerCorrectAnswer = 10

// StreakMilestones are the streak values the UI celebrates.
var StreakMilestones = []int{5, 10, 20, 50}

// StreakMessage is the encouragement line shown for a streak.
func StreakMessage(streak int) string {
	switch {
	case streak <= 0:
		return "Let's get started!"
	case streak < 3:
		return "Good start!"
	case streak < 5:
		return "You're on fire!"
	case streak < 10:
		return "Incredible streak!"
	case streak < 20:
		return "Unstoppable!"
	case streak < 50:
		return "Football genius!"
	default:
		return "LEGENDARY!"
	}
}

// NextMilestone returns the first milestone above streak, or nil past the last one.
func NextMilestone(streak int) *int {
	for _, m := range StreakMilestones {
		if streak < m {
			next := m
			return &next
		}
	}
	return nil
}

// SessionTicket carries the remote session id of a round once it is known.
// It stays empty when session creation failed.
type SessionTicket struct {
	mu sync.Mutex
	id string
}

func (t *SessionTicket) ID() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *SessionTicket) set(id string) {
	t.mu.Lock()
	t.id = id
	t.mu.Unlock()
}

// SessionSink receives the persistence side effects of a round. Both calls
// must return without waiting on storage.
type SessionSink interface {
	BeginSession(mode models.GameMode) *SessionTicket
	FinishSession(ticket *SessionTicket, c models.SessionCompletion)
}

// RoundSnapshot is a read-only view of a round.
type RoundSnapshot struct {
	Status            RoundStatus            `json:"status"`
	GameMode          models.GameMode        `json:"gameMode,omitempty"`
	Question          *models.PublicQuestion `json:"question,omitempty"`
	TimeRemaining     int                    `json:"timeRemaining"`
	Streak            int                    `json:"streak"`
	BestStreak        int                    `json:"bestStreak"`
	CorrectAnswers    int                    `json:"correctAnswers"`
	IncorrectAnswers  int                    `json:"incorrectAnswers"`
	QuestionsAnswered int                    `json:"questionsAnswered"`
	Score             int64                  `json:"score"`
	StreakMessage     string                 `json:"streakMessage"`
	NextMilestone     *int                   `json:"nextMilestone,omitempty"`
	EndReason         EndReason              `json:"endReason,omitempty"`
	SessionID         string                 `json:"sessionId,omitempty"`
	StartedAt         *time.Time             `json:"startedAt,omitempty"`
}

type RoundConfig struct {
	Bank             *QuestionBank
	Sink             SessionSink
	Metrics          metrics.Recorder
	Rand             *rand.Rand
	Now              func() time.Time
	DefaultTimeLimit int // seconds
	PreviousBest     int
}

// RoundController owns the round state of one player. The set of served
// question ids outlives individual rounds so consecutive rounds do not
// repeat questions until the bank is exhausted.
type RoundController struct {
	mu sync.Mutex

	bank             *QuestionBank
	sink             SessionSink
	metrics          metrics.Recorder
	rng              *rand.Rand
	now              func() time.Time
	defaultTimeLimit int

	status        RoundStatus
	mode          models.GameMode
	question      *models.Question
	timeRemaining int
	streak        int
	correct       int
	incorrect     int
	previousBest  int
	bestStreak    int
	endReason     EndReason
	ticket        *SessionTicket
	startedAt     time.Time
	lastActive    time.Time
	used          map[string]bool

	shownAt     time.Time
	answerTotal time.Duration
	answerCount int

	subscribers map[int]chan RoundSnapshot
	nextSubID   int
	closed      bool

	// redrawn signals the clock that a new question was shown.
	redrawn chan struct{}
}

func NewRoundController(cfg RoundConfig) *RoundController {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(cfg.Now().UnixNano()))
	}
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = 30
	}
	return &RoundController{
		bank:             cfg.Bank,
		sink:             cfg.Sink,
		metrics:          cfg.Metrics,
		rng:              cfg.Rand,
		now:              cfg.Now,
		defaultTimeLimit: cfg.DefaultTimeLimit,
		status:           RoundIdle,
		previousBest:     cfg.PreviousBest,
		bestStreak:       cfg.PreviousBest,
		lastActive:       cfg.Now(),
		used:             make(map[string]bool),
		subscribers:      make(map[int]chan RoundSnapshot),
		redrawn:          make(chan struct{}, 1),
	}
}

// Start begins a new round. A round still in progress is abandoned: its
// session stays open and is never counted.
func (c *RoundController) Start(mode models.GameMode) (RoundSnapshot, error) {
	if !mode.Valid() {
		return RoundSnapshot{}, models.NewValidationError("gameMode must be one of streak, practice, versus")
	}
	if c.bank == nil || c.bank.Len() == 0 {
		return RoundSnapshot{}, models.NewNoQuestionsError()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return RoundSnapshot{}, errControllerClosed
	}
	if c.status == RoundPlaying {
		logrus.WithField("session_id", c.ticket.ID()).Info("[ROUND] abandoning round in progress")
	}

	c.mode = mode
	c.streak = 0
	c.correct = 0
	c.incorrect = 0
	c.previousBest = c.bestStreak
	c.endReason = ""
	c.answerTotal = 0
	c.answerCount = 0
	c.startedAt = c.now()
	c.lastActive = c.startedAt
	c.drawLocked()
	c.status = RoundPlaying

	if c.sink != nil {
		c.ticket = c.sink.BeginSession(mode)
	} else {
		c.ticket = nil
	}
	c.metrics.RoundStarted(string(mode))

	snap := c.snapshotLocked()
	c.broadcastLocked(snap)
	return snap, nil
}

// SubmitAnswer checks text against the current question. A correct answer
// extends the streak and draws the next question; a wrong one ends the round.
func (c *RoundController) SubmitAnswer(text string) (bool, RoundSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != RoundPlaying {
		return false, c.snapshotLocked(), models.NewNoActiveRoundError()
	}

	now := c.now()
	c.lastActive = now
	c.answerTotal += now.Sub(c.shownAt)
	c.answerCount++

	correct := MatchAnswer(text, c.question.AcceptedAnswers)
	c.metrics.AnswerSubmitted(correct)

	if correct {
		c.correct++
		c.streak++
		if c.streak > c.bestStreak {
			c.bestStreak = c.streak
		}
		c.drawLocked()
	} else {
		c.incorrect++
		c.endLocked(EndWrongAnswer)
	}

	snap := c.snapshotLocked()
	c.broadcastLocked(snap)
	return correct, snap, nil
}

// Tick sets the time remaining on the current question. Reaching zero ends
// the round as a timeout, which is not counted as an incorrect answer.
func (c *RoundController) Tick(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickLocked(remaining)
}

// tickDown advances the clock by one second and reports whether the round
// is still playing.
func (c *RoundController) tickDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickLocked(c.timeRemaining - 1)
	return c.status == RoundPlaying
}

func (c *RoundController) tickLocked(remaining int) {
	if c.status != RoundPlaying {
		return
	}
	if remaining <= 0 {
		c.timeRemaining = 0
		c.endLocked(EndTimeout)
	} else {
		c.timeRemaining = remaining
	}
	c.broadcastLocked(c.snapshotLocked())
}

// End finishes the round in progress. It reports false when there was
// nothing to end, in which case no side effect runs.
func (c *RoundController) End() (RoundSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != RoundPlaying {
		return c.snapshotLocked(), false
	}
	c.lastActive = c.now()
	c.endLocked(EndManual)
	snap := c.snapshotLocked()
	c.broadcastLocked(snap)
	return snap, true
}

// endLocked is the only place a round terminates. The status check makes
// termination single-fire no matter which path triggers it.
func (c *RoundController) endLocked(reason EndReason) {
	if c.status != RoundPlaying {
		return
	}
	c.status = RoundEnded
	c.endReason = reason
	c.bestStreak = max(c.streak, c.previousBest, c.bestStreak)

	completion := models.SessionCompletion{
		Score:             int64(c.correct * PointsPerCorrectAnswer),
		Streak:            c.streak,
		QuestionsAnswered: c.correct + c.incorrect,
		CorrectAnswers:    c.correct,
	}
	if c.answerCount > 0 {
		avg := c.answerTotal.Seconds() / float64(c.answerCount)
		completion.AverageAnswerTime = &avg
	}

	logrus.WithFields(logrus.Fields{
		"session_id": c.ticket.ID(),
		"mode":       c.mode,
		"reason":     reason,
		"streak":     c.streak,
	}).Info("[ROUND] round ended")
	c.metrics.RoundEnded(string(c.mode), string(reason), c.streak)

	if c.sink != nil {
		c.sink.FinishSession(c.ticket, completion)
	}
}

// drawLocked picks a question uniformly from those not yet served. When
// every question has been served the history is cleared first.
func (c *RoundController) drawLocked() {
	pool := make([]int, 0, c.bank.Len())
	for i := 0; i < c.bank.Len(); i++ {
		if !c.used[c.bank.At(i).ID] {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		c.used = make(map[string]bool)
		for i := 0; i < c.bank.Len(); i++ {
			pool = append(pool, i)
		}
	}

	q := c.bank.At(pool[c.rng.Intn(len(pool))])
	c.used[q.ID] = true
	c.question = q
	c.timeRemaining = c.timeLimit(q)
	c.shownAt = c.now()

	select {
	case c.redrawn <- struct{}{}:
	default:
	}
}

// Redrawn delivers a signal after every new question.
func (c *RoundController) Redrawn() <-chan struct{} {
	return c.redrawn
}

func (c *RoundController) timeLimit(q *models.Question) int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return c.defaultTimeLimit
}

func (c *RoundController) Snapshot() RoundSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *RoundController) snapshotLocked() RoundSnapshot {
	snap := RoundSnapshot{
		Status:            c.status,
		GameMode:          c.mode,
		TimeRemaining:     c.timeRemaining,
		Streak:            c.streak,
		BestStreak:        c.bestStreak,
		CorrectAnswers:    c.correct,
		IncorrectAnswers:  c.incorrect,
		QuestionsAnswered: c.correct + c.incorrect,
		Score:             int64(c.correct * PointsPerCorrectAnswer),
		StreakMessage:     StreakMessage(c.streak),
		NextMilestone:     NextMilestone(c.streak),
		EndReason:         c.endReason,
		SessionID:         c.ticket.ID(),
	}
	if c.status == RoundPlaying && c.question != nil {
		snap.Question = c.question.Public(c.timeLimit(c.question))
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		snap.StartedAt = &started
	}
	return snap
}

// Subscribe returns a channel of snapshots published after every state
// change. Slow subscribers miss updates rather than block the round.
func (c *RoundController) Subscribe() (<-chan RoundSnapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan RoundSnapshot, 8)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

func (c *RoundController) broadcastLocked(snap RoundSnapshot) {
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close drops every subscriber. The controller must not be used afterwards.
func (c *RoundController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

// IdleSince reports the last time the player interacted with the round.
func (c *RoundController) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Playing reports whether a round is in progress.
func (c *RoundController) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == RoundPlaying
}
