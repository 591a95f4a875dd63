package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lesson-progress-service/internal/app"
	"lesson-progress-service/internal/domain"
	"lesson-progress-service/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog       *memory.Catalog
	answers       *memory.AnswerStore
	leaderboard   *memory.LeaderboardStore
	progress      *memory.ProgressStore
	notifications *memory.NotificationStore
	feed          *app.LeaderboardFeed
	service       *app.SubmissionService
	reports       *app.ReportService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	answers     app.AnswerStore
	leaderboard app.LeaderboardStore
	notifier    app.Notifier
}

func withAnswers(s app.AnswerStore) fixtureOption {
	return func(c *fixtureConfig) { c.answers = s }
}

func withLeaderboard(s app.LeaderboardStore) fixtureOption {
	return func(c *fixtureConfig) { c.leaderboard = s }
}

func withNotifier(n app.Notifier) fixtureOption {
	return func(c *fixtureConfig) { c.notifier = n }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		catalog:       memory.NewCatalog(sampleCatalog()),
		answers:       memory.NewAnswerStore(),
		leaderboard:   memory.NewLeaderboardStore(),
		progress:      memory.NewProgressStore(),
		notifications: memory.NewNotificationStore(),
		feed:          app.NewLeaderboardFeed(),
	}
	cfg := fixtureConfig{answers: f.answers, leaderboard: f.leaderboard, notifier: f.notifications}
	for _, opt := range opts {
		opt(&cfg)
	}

	stores := app.Stores{
		Catalog:     f.catalog,
		Answers:     cfg.answers,
		Leaderboard: cfg.leaderboard,
		Progress:    f.progress,
	}
	f.service = app.NewSubmissionService(stores, memory.NewLocker(), cfg.notifier, f.feed, app.Options{
		Now:   steppingClock(),
		NewID: sequentialIDs(),
	})
	f.reports = app.NewReportService(stores, f.notifications)
	return f
}

func (f *fixture) submit(t *testing.T, userID, questionID, value string) domain.SubmissionResult {
	t.Helper()
	res, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
		UserID:       userID,
		QuestionID:   questionID,
		SubmitAnswer: value,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) total(t *testing.T, userID string) int {
	t.Helper()
	entry, err := f.leaderboard.Get(context.Background(), userID)
	require.NoError(t, err)
	return entry.TotalScore
}

func (f *fixture) lessonProgress(t *testing.T, userID, lessonID string) float64 {
	t.Helper()
	record, err := f.progress.Find(context.Background(), userID, lessonID)
	require.NoError(t, err)
	return record.Progress
}

func TestSubmitAnswer_Scenarios(t *testing.T) {
	f := newFixture(t)

	// A: correct answer to one of two questions
	res := f.submit(t, "u1", "q1", "4")
	assert.Equal(t, 1, res.Answer.Score)
	assert.Equal(t, "4", res.Answer.RightAnswer)
	assert.Equal(t, "l1", res.Answer.LessonID)
	assert.Equal(t, "c1", res.Answer.CourseID)
	assert.Equal(t, 1, f.total(t, "u1"))
	assert.Equal(t, 50.0, f.lessonProgress(t, "u1", "l1"))
	assert.Equal(t, "c1", res.Progress.CourseID)

	// B: incorrect answer to the other question
	res = f.submit(t, "u1", "q2", "7")
	assert.Equal(t, 0, res.Answer.Score)
	assert.Equal(t, 1, f.total(t, "u1"))
	assert.Equal(t, 100.0, f.lessonProgress(t, "u1", "l1"))

	// C: resubmit the first question wrong
	res = f.submit(t, "u1", "q1", "5")
	assert.Equal(t, 1, res.OldScore)
	assert.Equal(t, 0, res.NewScore)
	assert.Equal(t, 0, f.total(t, "u1"))
	assert.Equal(t, 100.0, f.lessonProgress(t, "u1", "l1"))
}

func TestSubmitAnswer_UnknownQuestionWritesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
		UserID: "u1", QuestionID: "missing", SubmitAnswer: "4",
	})
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Zero(t, f.answers.Writes())
	assert.Zero(t, f.leaderboard.Writes())
	assert.Zero(t, f.progress.Writes())
}

func TestSubmitAnswer_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
		UserID: "ghost", QuestionID: "q1", SubmitAnswer: "4",
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Zero(t, f.answers.Writes())
}

func TestSubmitAnswer_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []domain.AnswerSubmission{
		{UserID: "u1", QuestionID: "q1", SubmitAnswer: ""},
		{UserID: "", QuestionID: "q1", SubmitAnswer: "4"},
		{UserID: "u1", QuestionID: "  ", SubmitAnswer: "4"},
	}
	for _, sub := range cases {
		_, err := f.service.SubmitAnswer(context.Background(), sub)
		assert.ErrorIs(t, err, domain.ErrValidation, "submission %+v", sub)
	}
	assert.Zero(t, f.answers.Writes())
}

func TestSubmitAnswer_ResubmissionIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.submit(t, "u1", "q1", "4")
	second := f.submit(t, "u1", "q1", "4")

	assert.Equal(t, first.Answer.ID, second.Answer.ID)
	assert.Equal(t, first.Answer.CreatedAt, second.Answer.CreatedAt)
	assert.Equal(t, 1, second.OldScore)
	assert.Equal(t, 1, second.NewScore)
	assert.Equal(t, 1, f.total(t, "u1"))
	assert.Equal(t, 50.0, f.lessonProgress(t, "u1", "l1"))

	count, err := f.answers.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubmitAnswer_IncorrectThenCorrect(t *testing.T) {
	f := newFixture(t)

	f.submit(t, "u1", "q1", "3")
	before := f.total(t, "u1")
	progressBefore := f.lessonProgress(t, "u1", "l1")

	f.submit(t, "u1", "q1", "4")
	assert.Equal(t, before+1, f.total(t, "u1"))
	assert.Equal(t, progressBefore, f.lessonProgress(t, "u1", "l1"))
}

func TestSubmitAnswer_GradingIsExactMatch(t *testing.T) {
	f := newFixture(t)

	res := f.submit(t, "u1", "q1", " 4")
	assert.Equal(t, 0, res.Answer.Score)
	assert.Equal(t, " 4", res.Answer.SubmitAnswer)
}

func TestSubmitAnswer_KeepsSnapshotUntilResubmission(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "u1", "q1", "4")
	f.submit(t, "u2", "q1", "4")

	q, err := f.catalog.GetQuestion(context.Background(), "q1")
	require.NoError(t, err)
	q.CorrectAnswer = "four"
	f.catalog.PutQuestion(q)

	// u2 resubmits and is regraded against the edited answer
	res := f.submit(t, "u2", "q1", "4")
	assert.Equal(t, "four", res.Answer.RightAnswer)
	assert.Equal(t, 0, res.Answer.Score)
	assert.Equal(t, 0, f.total(t, "u2"))

	// u1 never resubmitted and keeps the old snapshot and score
	stale, err := f.answers.FindByUserQuestion(context.Background(), "u1", "q1")
	require.NoError(t, err)
	assert.Equal(t, "4", stale.RightAnswer)
	assert.Equal(t, 1, stale.Score)
	assert.Equal(t, 1, f.total(t, "u1"))
}

func TestSubmitAnswer_ScoreInvariantAcrossSequence(t *testing.T) {
	f := newFixture(t)
	sequence := []struct{ question, value string }{
		{"q1", "4"}, {"q2", "6"}, {"q3", "blue"}, {"q1", "x"}, {"q3", "red"}, {"q2", "6"}, {"q1", "4"}, {"q3", "blue"},
	}
	for _, step := range sequence {
		f.submit(t, "u1", step.question, step.value)

		sum, err := f.answers.SumScoreByUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, sum, f.total(t, "u1"), "after %s=%s", step.question, step.value)
	}
	assert.Equal(t, 3, f.total(t, "u1"))
	assert.Equal(t, 100.0, f.lessonProgress(t, "u1", "l1"))
	assert.Equal(t, 100.0, f.lessonProgress(t, "u1", "l2"))
}

func TestSubmitAnswer_ConcurrentRetriesStayConsistent(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		value := "4"
		if i%2 == 1 {
			value = "5"
		}
		wg.Add(1)
		go func(question, value string) {
			defer wg.Done()
			_, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
				UserID: "u1", QuestionID: question, SubmitAnswer: value,
			})
			assert.NoError(t, err)
		}([]string{"q1", "q2"}[i%4/2], value)
	}
	wg.Wait()

	count, err := f.answers.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	sum, err := f.answers.SumScoreByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, sum, f.total(t, "u1"))
	assert.Equal(t, 100.0, f.lessonProgress(t, "u1", "l1"))
}

func TestSubmitAnswer_NotifiesOnceWhenLessonCompletes(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.UserID == "u1" && n.Title == "Lesson completed"
	})).Return(nil).Once()

	f := newFixture(t, withNotifier(notifier))
	f.submit(t, "u1", "q1", "4")
	f.submit(t, "u1", "q2", "6")
	f.submit(t, "u1", "q2", "7") // already complete, no second notification
	f.service.Wait()

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSubmitAnswer_NotificationFailureDoesNotFailSubmission(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	f := newFixture(t, withNotifier(notifier))
	f.submit(t, "u1", "q1", "4")
	res := f.submit(t, "u1", "q2", "6")
	f.service.Wait()

	assert.Equal(t, 100.0, res.Progress.Progress)
	assert.Equal(t, 2, f.total(t, "u1"))
}

func TestSubmitAnswer_StoresCompletionNotification(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "u1", "q1", "4")
	f.submit(t, "u1", "q2", "6")
	f.service.Wait()

	list, err := f.reports.Notifications(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Description, "l1")
}

func TestSubmitAnswer_StorageFailureSurfaces(t *testing.T) {
	answers := &failingAnswerStore{AnswerStore: memory.NewAnswerStore(), failCreate: true}
	f := newFixture(t, withAnswers(answers))

	_, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
		UserID: "u1", QuestionID: "q1", SubmitAnswer: "4",
	})
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Zero(t, f.leaderboard.Writes())
	assert.Zero(t, f.progress.Writes())
}

func TestSubmitAnswer_ReconcileHealsMissedDelta(t *testing.T) {
	flaky := &flakyLeaderboard{LeaderboardStore: memory.NewLeaderboardStore()}
	f := newFixture(t, withLeaderboard(flaky))

	flaky.fail = true
	_, err := f.service.SubmitAnswer(context.Background(), domain.AnswerSubmission{
		UserID: "u1", QuestionID: "q1", SubmitAnswer: "4",
	})
	require.ErrorIs(t, err, domain.ErrStorage)

	// answer was committed before the leaderboard failed
	_, err = f.answers.FindByUserQuestion(context.Background(), "u1", "q1")
	require.NoError(t, err)

	flaky.fail = false
	entry, err := f.service.Reconcile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.TotalScore)

	entries, err := f.service.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
}

func TestSubmitAnswer_CancelledRequestStillCompletesFollowUps(t *testing.T) {
	answers := &cancellingAnswerStore{AnswerStore: memory.NewAnswerStore()}
	f := newFixture(t, withAnswers(answers))

	ctx, cancel := context.WithCancel(context.Background())
	answers.afterCreate = cancel

	res, err := f.service.SubmitAnswer(ctx, domain.AnswerSubmission{
		UserID: "u1", QuestionID: "q1", SubmitAnswer: "4",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entry.TotalScore)
	assert.Equal(t, 50.0, res.Progress.Progress)
}

func TestSubscribeReceivesLeaderboardUpdates(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "u2", "q1", "4")

	ch, cancel, err := f.service.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancel()

	<-ch // last published snapshot
	primed := <-ch
	require.Len(t, primed.Entries, 1)

	f.submit(t, "u1", "q1", "4")
	f.submit(t, "u1", "q2", "6")

	var latest domain.Leaderboard
	for i := 0; i < 2; i++ {
		select {
		case latest = <-ch:
		case <-time.After(time.Second):
			t.Fatalf("no leaderboard update received")
		}
	}
	require.Len(t, latest.Entries, 2)
	assert.Equal(t, "u1", latest.Entries[0].UserID)
	assert.Equal(t, 2, latest.Entries[0].TotalScore)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type failingAnswerStore struct {
	*memory.AnswerStore
	failCreate bool
}

func (s *failingAnswerStore) Create(ctx context.Context, a domain.Answer) error {
	if s.failCreate {
		return &domain.StorageError{Op: "create answer", Err: errors.New("connection reset")}
	}
	return s.AnswerStore.Create(ctx, a)
}

type cancellingAnswerStore struct {
	*memory.AnswerStore
	afterCreate func()
}

func (s *cancellingAnswerStore) Create(ctx context.Context, a domain.Answer) error {
	err := s.AnswerStore.Create(ctx, a)
	s.afterCreate()
	return err
}

type flakyLeaderboard struct {
	*memory.LeaderboardStore
	fail bool
}

func (s *flakyLeaderboard) ApplyDelta(ctx context.Context, seed domain.LeaderboardEntry, delta int) (domain.LeaderboardEntry, error) {
	if s.fail {
		return domain.LeaderboardEntry{}, &domain.StorageError{Op: "apply delta", Err: errors.New("timeout")}
	}
	return s.LeaderboardStore.ApplyDelta(ctx, seed, delta)
}

func sampleCatalog() memory.CatalogData {
	return memory.CatalogData{
		Users: []domain.User{{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}},
		Lessons: []domain.Lesson{
			{ID: "l1", CourseID: "c1", Name: "Arithmetic"},
			{ID: "l2", CourseID: "c1", Name: "Colours"},
			{ID: "l-empty", CourseID: "c2", Name: "Coming soon"},
		},
		Questions: []domain.Question{
			{ID: "q1", LessonID: "l1", CourseID: "c1", Name: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
			{ID: "q2", LessonID: "l1", CourseID: "c1", Name: "What is 3 + 3?", Options: []string{"6", "7"}, CorrectAnswer: "6"},
			{ID: "q3", LessonID: "l2", CourseID: "c1", Name: "Colour of the sky?", Options: []string{"blue", "red"}, CorrectAnswer: "blue"},
		},
	}
}

// steppingClock advances one second per call so ordering by time is deterministic.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
