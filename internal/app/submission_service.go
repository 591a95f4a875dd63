package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lesson-progress-service/internal/domain"

	"github.com/google/uuid"
)

// Stores groups the persistence dependencies of the submission workflow.
type Stores struct {
	Catalog     Catalog
	Answers     AnswerStore
	Leaderboard LeaderboardStore
	Progress    ProgressStore
}

// Options tunes the submission workflow. Zero values fall back to defaults.
type Options struct {
	Now             func() time.Time
	NewID           func() string
	FollowUpTimeout time.Duration
	NotifyTimeout   time.Duration
	FeedSize        int
}

const (
	defaultFollowUpTimeout = 10 * time.Second
	defaultNotifyTimeout   = 5 * time.Second
	defaultFeedSize        = 10
)

// SubmissionService runs the answer submission workflow: ledger write, leaderboard
// delta, then progress recompute.
type SubmissionService struct {
	ledger     *AnswerLedger
	aggregator *ScoreAggregator
	calculator *ProgressCalculator
	entries    LeaderboardStore
	locks      Locker
	notifier   Notifier
	feed       *LeaderboardFeed

	now             func() time.Time
	newID           func() string
	followUpTimeout time.Duration
	notifyTimeout   time.Duration
	feedSize        int

	wg sync.WaitGroup
}

// NewSubmissionService wires the workflow. notifier and feed may be nil.
func NewSubmissionService(stores Stores, locks Locker, notifier Notifier, feed *LeaderboardFeed, opts Options) *SubmissionService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.FollowUpTimeout <= 0 {
		opts.FollowUpTimeout = defaultFollowUpTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.FeedSize <= 0 {
		opts.FeedSize = defaultFeedSize
	}
	return &SubmissionService{
		ledger:          NewAnswerLedger(stores.Catalog, stores.Answers, opts.Now, opts.NewID),
		aggregator:      NewScoreAggregator(stores.Leaderboard, stores.Answers, opts.Now, opts.NewID),
		calculator:      NewProgressCalculator(stores.Catalog, stores.Answers, stores.Progress, opts.Now, opts.NewID),
		entries:         stores.Leaderboard,
		locks:           locks,
		notifier:        notifier,
		feed:            feed,
		now:             opts.Now,
		newID:           opts.NewID,
		followUpTimeout: opts.FollowUpTimeout,
		notifyTimeout:   opts.NotifyTimeout,
		feedSize:        opts.FeedSize,
	}
}

// SubmitAnswer records the user's answer and brings the leaderboard and lesson
// progress up to date. It is the only mutating entry point of the workflow.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.SubmissionResult, error) {
	if err := validateSubmission(sub); err != nil {
		return domain.SubmissionResult{}, err
	}

	entry, lb, err := s.recordAndScore(ctx, sub)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	// The answer is committed; the remaining steps must not be abandoned with the request.
	followCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.followUpTimeout)
	defer cancel()

	change, err := s.recomputeProgress(followCtx, sub.UserID, entry.LessonID)
	if err != nil {
		logFailure("recompute progress", sub, err)
		return domain.SubmissionResult{}, err
	}

	if entry.Created || entry.OldScore != entry.NewScore {
		s.publishLeaderboard(followCtx)
	}
	if change.JustCompleted() {
		s.notifyCompletion(sub.UserID, change.Record)
	}

	return domain.SubmissionResult{
		Answer:   entry.Answer,
		OldScore: entry.OldScore,
		NewScore: entry.NewScore,
		Entry:    lb,
		Progress: change.Record,
	}, nil
}

// recordAndScore holds the (user, question) lock across the ledger write and the
// leaderboard delta so retries of the same answer cannot interleave.
func (s *SubmissionService) recordAndScore(ctx context.Context, sub domain.AnswerSubmission) (LedgerEntry, domain.LeaderboardEntry, error) {
	unlock, err := s.locks.Lock(ctx, AnswerLockKey(sub.UserID, sub.QuestionID))
	if err != nil {
		return LedgerEntry{}, domain.LeaderboardEntry{}, err
	}
	defer unlock()

	entry, err := s.ledger.Submit(ctx, sub)
	if err != nil {
		logFailure("record answer", sub, err)
		return LedgerEntry{}, domain.LeaderboardEntry{}, err
	}

	scoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.followUpTimeout)
	defer cancel()
	lb, err := s.aggregator.ApplyDelta(scoreCtx, sub.UserID, entry.OldScore, entry.NewScore)
	if err != nil {
		logFailure("apply leaderboard delta", sub, err)
		return LedgerEntry{}, domain.LeaderboardEntry{}, err
	}
	return entry, lb, nil
}

// recomputeProgress holds the (user, lesson) lock so concurrent submissions in the
// same lesson cannot overwrite a newer count with an older one.
func (s *SubmissionService) recomputeProgress(ctx context.Context, userID, lessonID string) (ProgressChange, error) {
	unlock, err := s.locks.Lock(ctx, ProgressLockKey(userID, lessonID))
	if err != nil {
		return ProgressChange{}, err
	}
	defer unlock()
	return s.calculator.Recompute(ctx, userID, lessonID)
}

// Reconcile rebuilds a user's leaderboard total from their answers.
func (s *SubmissionService) Reconcile(ctx context.Context, userID string) (domain.LeaderboardEntry, error) {
	entry, err := s.aggregator.Reconcile(ctx, userID)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}
	s.publishLeaderboard(ctx)
	return entry, nil
}

// ReconcileAll rebuilds the total of every user with answers.
func (s *SubmissionService) ReconcileAll(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	entries, err := s.aggregator.ReconcileAll(ctx)
	if err != nil {
		return entries, err
	}
	s.publishLeaderboard(ctx)
	return entries, nil
}

// Subscribe returns a channel that receives leaderboard snapshots after score changes.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SubmissionService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	if s.feed == nil {
		return nil, nil, errors.New("leaderboard feed disabled")
	}
	ch, cancel := s.feed.Subscribe()
	// prime newcomers with a fresh snapshot rather than whatever was last published
	s.publishLeaderboard(ctx)
	return ch, cancel, nil
}

// Wait blocks until in-flight notifications have finished.
func (s *SubmissionService) Wait() {
	s.wg.Wait()
}

func (s *SubmissionService) publishLeaderboard(ctx context.Context) {
	if s.feed == nil || !s.feed.HasSubscribers() {
		return
	}
	top, err := s.entries.Top(ctx, s.feedSize)
	if err != nil {
		log.Printf("leaderboard feed: load top %d: %v", s.feedSize, err)
		return
	}
	s.feed.Publish(domain.Leaderboard{Entries: top, UpdatedAt: s.now()})
}

func (s *SubmissionService) notifyCompletion(userID string, record domain.ProgressRecord) {
	if s.notifier == nil {
		return
	}
	n := domain.Notification{
		ID:          s.newID(),
		UserID:      userID,
		Title:       "Lesson completed",
		Description: fmt.Sprintf("You answered every question in lesson %s.", record.LessonID),
		CreatedAt:   s.now(),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			log.Printf("notify lesson completion user=%s lesson=%s: %v", userID, record.LessonID, err)
		}
	}()
}

func logFailure(step string, sub domain.AnswerSubmission, err error) {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return
	}
	log.Printf("submit answer: %s user=%s question=%s: %v", step, sub.UserID, sub.QuestionID, err)
}

// AnswerLockKey names the lock guarding one user's answer to one question.
func AnswerLockKey(userID, questionID string) string {
	return "answer:" + userID + ":" + questionID
}

// ProgressLockKey names the lock guarding one user's progress in one lesson.
func ProgressLockKey(userID, lessonID string) string {
	return "progress:" + userID + ":" + lessonID
}

// Notifiers fans a notification out to several sinks, reporting every failure.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	log.Printf("notification user=%s: %s", n.UserID, n.Title)
	return nil
}
