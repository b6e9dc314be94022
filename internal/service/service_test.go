package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/lvdashuaibi/littlepoll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store         *testutil.MemStore
	cache         *testutil.MemCache
	publisher     *testutil.RecordingPublisher
	polls         *PollService
	analytics     *AnalyticsService
	participation *ParticipationService
}

func newFixture() *fixture {
	f := &fixture{
		store:     testutil.NewMemStore(),
		cache:     testutil.NewMemCache(),
		publisher: &testutil.RecordingPublisher{},
	}
	f.polls = NewPollService(f.store, 100)
	f.analytics = NewAnalyticsService(f.store, f.cache)
	f.participation = NewParticipationService(f.store, f.analytics, f.publisher, NewRewardSource(42))
	return f
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func coffeeRequest() *model.CreatePollRequest {
	return &model.CreatePollRequest{
		Title:     "Coffee",
		Category:  "food",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		MinReward: intPtr(5),
		MaxReward: intPtr(20),
		QuestionSets: []model.QuestionSetInput{
			{QuestionType: "single-choice", QuestionText: "Best roast?", Options: []string{"light", "medium", "dark"}},
		},
	}
}

func (f *fixture) createCoffee(t *testing.T) *model.CreatePollResponse {
	t.Helper()
	resp, err := f.polls.CreatePoll(context.Background(), coffeeRequest())
	require.NoError(t, err)
	return resp
}

func TestCreatePoll(t *testing.T) {
	f := newFixture()
	req := coffeeRequest()
	req.QuestionSets = append(req.QuestionSets, model.QuestionSetInput{QuestionType: "single-choice", QuestionText: "Milk?", Options: []string{"yes", "no"}})

	resp, err := f.polls.CreatePoll(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Poll is created successfully", resp.Message)
	require.Len(t, resp.QuestionSetIDs, 2)
	assert.Less(t, resp.QuestionSetIDs[0], resp.QuestionSetIDs[1])

	poll, err := f.store.GetPoll(context.Background(), resp.PollID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", poll.Title)
	assert.Equal(t, "food", poll.Category)
	assert.Equal(t, "2024-01-01", poll.StartDate.String())
	assert.Equal(t, "2024-01-31", poll.EndDate.String())
	assert.Equal(t, 5, poll.MinReward)
	assert.Equal(t, 20, poll.MaxReward)

	qs, err := f.store.GetQuestionSet(context.Background(), resp.PollID, resp.QuestionSetIDs[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"yes", "no"}, qs.Options)

	analytics, err := f.analytics.PollAnalytics(context.Background(), resp.PollID)
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalVotes)
	assert.Empty(t, analytics.OptionCounts)
}

func TestCreatePollValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.CreatePollRequest)
	}{
		{"missing title", func(r *model.CreatePollRequest) { r.Title = "" }},
		{"missing category", func(r *model.CreatePollRequest) { r.Category = " " }},
		{"missing start date", func(r *model.CreatePollRequest) { r.StartDate = "" }},
		{"bad end date", func(r *model.CreatePollRequest) { r.EndDate = "next week" }},
		{"start after end", func(r *model.CreatePollRequest) { r.StartDate = "2024-02-01" }},
		{"missing min reward", func(r *model.CreatePollRequest) { r.MinReward = nil }},
		{"inverted rewards", func(r *model.CreatePollRequest) { r.MinReward = intPtr(30) }},
		{"negative reward", func(r *model.CreatePollRequest) { r.MinReward = intPtr(-1) }},
		{"question sets missing", func(r *model.CreatePollRequest) { r.QuestionSets = nil }},
		{"question without options", func(r *model.CreatePollRequest) { r.QuestionSets[0].Options = nil }},
		{"duplicate options", func(r *model.CreatePollRequest) { r.QuestionSets[0].Options = []string{"a", "a"} }},
		{"empty option", func(r *model.CreatePollRequest) { r.QuestionSets[0].Options = []string{"a", ""} }},
		{"question without text", func(r *model.CreatePollRequest) { r.QuestionSets[0].QuestionText = "" }},
		{"option too long", func(r *model.CreatePollRequest) {
			r.QuestionSets[0].Options = []string{"a", strings.Repeat("x", MaxOptionLength+1)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := coffeeRequest()
			tt.mutate(req)

			_, err := f.polls.CreatePoll(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

			_, err = f.polls.ListPolls(context.Background(), 1, 10)
			assert.True(t, apperr.IsNotFound(err), "no poll should be stored")
		})
	}
}

func TestCreatePollAcceptsEmptyQuestionList(t *testing.T) {
	f := newFixture()
	req := coffeeRequest()
	req.QuestionSets = []model.QuestionSetInput{}

	resp, err := f.polls.CreatePoll(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.QuestionSetIDs)
}

func TestOptionsAreCaseAndAccentSensitive(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1, 2, 3, 4)
	req := coffeeRequest()
	longest := strings.Repeat("é", MaxOptionLength)
	req.QuestionSets[0].Options = []string{"Yes", "yes", "café", "cafe", longest}

	created, err := f.polls.CreatePoll(context.Background(), req)
	require.NoError(t, err)

	for userID, option := range map[int64]string{1: "Yes", 2: "yes", 3: "café", 4: longest} {
		_, err := f.participation.SubmitPoll(context.Background(), userID, &model.SubmitPollRequest{
			PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr(option),
		})
		require.NoError(t, err)
	}

	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, analytics.TotalVotes)
	assert.Equal(t, map[string]int64{"Yes": 1, "yes": 1, "café": 1, longest: 1}, analytics.OptionCounts)
}

func TestCreatePollStoreFailure(t *testing.T) {
	f := newFixture()
	f.store.Err = errors.New("connection refused")

	_, err := f.polls.CreatePoll(context.Background(), coffeeRequest())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestNormalizePage(t *testing.T) {
	s := NewPollService(nil, 50)
	tests := []struct {
		page, pageSize         int
		wantPage, wantPageSize int
	}{
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 5, 2, 5},
		{1, 500, 1, 50},
	}
	for _, tt := range tests {
		page, pageSize := s.NormalizePage(tt.page, tt.pageSize)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantPageSize, pageSize)
	}
}

func TestListPollsPagination(t *testing.T) {
	f := newFixture()
	const total, pageSize = 7, 3
	for i := 0; i < total; i++ {
		req := coffeeRequest()
		req.Title = fmt.Sprintf("Poll %d", i)
		_, err := f.polls.CreatePoll(context.Background(), req)
		require.NoError(t, err)
	}

	var lastID int64 = 1 << 62
	for page := 1; page <= 3; page++ {
		result, err := f.polls.ListPolls(context.Background(), page, pageSize)
		require.NoError(t, err)

		want := min(pageSize, max(0, total-(page-1)*pageSize))
		require.Len(t, result.Polls, want, "page %d", page)
		for _, p := range result.Polls {
			assert.Less(t, p.PollID, lastID)
			lastID = p.PollID
			assert.Equal(t, int64(1), p.NumberOfQuestionSets)
			require.NotNil(t, p.SampleQuestion)
			assert.Equal(t, "Best roast?", p.SampleQuestion.QuestionText)
		}
	}

	_, err := f.polls.ListPolls(context.Background(), 4, pageSize)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdatePoll(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)

	req := &model.UpdatePollRequest{
		Title:     "Coffee 2",
		Category:  "drinks",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-28",
		MinReward: intPtr(1),
		MaxReward: intPtr(2),
		QuestionSets: []model.QuestionSetUpdate{
			{QuestionSetID: created.QuestionSetIDs[0], QuestionType: "single-choice", QuestionText: "Roast?", Options: []string{"dark", "light"}},
		},
	}
	resp, err := f.polls.UpdatePoll(context.Background(), created.PollID, req)
	require.NoError(t, err)
	assert.True(t, resp.AllUpdated())
	assert.Equal(t, "Poll updated successfully", resp.Message)

	poll, err := f.store.GetPoll(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee 2", poll.Title)
	assert.Equal(t, 2, poll.MaxReward)

	qs, err := f.store.GetQuestionSet(context.Background(), created.PollID, created.QuestionSetIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Roast?", qs.QuestionText)
	assert.Equal(t, []string{"dark", "light"}, qs.Options)
}

func TestUpdatePollReportsFailedQuestionSets(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)
	other := f.createCoffee(t)

	req := &model.UpdatePollRequest{
		Title: "Coffee", Category: "food", StartDate: "2024-01-01", EndDate: "2024-01-31",
		MinReward: intPtr(5), MaxReward: intPtr(20),
		QuestionSets: []model.QuestionSetUpdate{
			{QuestionSetID: created.QuestionSetIDs[0], QuestionType: "single-choice", QuestionText: "Roast?", Options: []string{"dark"}},
			{QuestionSetID: other.QuestionSetIDs[0], QuestionType: "single-choice", QuestionText: "Wrong poll", Options: []string{"x"}},
			{QuestionSetID: created.QuestionSetIDs[0], QuestionType: "single-choice", QuestionText: "No options"},
		},
	}
	resp, err := f.polls.UpdatePoll(context.Background(), created.PollID, req)
	require.NoError(t, err)
	assert.False(t, resp.AllUpdated())
	require.Len(t, resp.QuestionSets, 3)

	assert.True(t, resp.QuestionSets[0].Updated)
	assert.False(t, resp.QuestionSets[1].Updated)
	assert.Equal(t, "Question set not found for the specified poll", resp.QuestionSets[1].Error)
	assert.False(t, resp.QuestionSets[2].Updated)
	assert.Contains(t, resp.QuestionSets[2].Error, "Invalid input data")

	qs, err := f.store.GetQuestionSet(context.Background(), other.PollID, other.QuestionSetIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Best roast?", qs.QuestionText)
}

func TestUpdatePollNotFound(t *testing.T) {
	f := newFixture()
	req := &model.UpdatePollRequest{
		Title: "x", Category: "y", StartDate: "2024-01-01", EndDate: "2024-01-02",
		MinReward: intPtr(1), MaxReward: intPtr(1),
	}
	_, err := f.polls.UpdatePoll(context.Background(), 99, req)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.polls.UpdatePoll(context.Background(), 0, req)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateQuestionSet(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)

	input := &model.QuestionSetInput{QuestionType: "multi", QuestionText: "Pick", Options: []string{"a", "b"}}
	require.NoError(t, f.polls.UpdateQuestionSet(context.Background(), created.PollID, created.QuestionSetIDs[0], input))

	err := f.polls.UpdateQuestionSet(context.Background(), created.PollID+1, created.QuestionSetIDs[0], input)
	assert.True(t, apperr.IsNotFound(err))

	err = f.polls.UpdateQuestionSet(context.Background(), created.PollID, created.QuestionSetIDs[0], &model.QuestionSetInput{QuestionType: "multi"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSubmitPollCoffeeExample(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1)
	created := f.createCoffee(t)

	// 预热缓存，提交后应失效
	_, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	require.True(t, f.cache.Has(created.PollID))

	resp, err := f.participation.SubmitPoll(context.Background(), 1, &model.SubmitPollRequest{
		PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("dark"),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.RewardAmount, 5)
	assert.LessOrEqual(t, resp.RewardAmount, 20)
	assert.False(t, f.cache.Has(created.PollID))

	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalVotes)
	assert.Equal(t, map[string]int64{"dark": 1}, analytics.OptionCounts)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, created.PollID, events[0].PollID)
	assert.Equal(t, "dark", events[0].SelectedOption)
	assert.Equal(t, resp.RewardAmount, events[0].RewardAmount)

	user, err := f.store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, user.CompletedQuestionID)
	assert.Equal(t, created.QuestionSetIDs[0], *user.CompletedQuestionID)
}

func TestSubmitPollRejections(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1)
	created := f.createCoffee(t)
	other := f.createCoffee(t)

	tests := []struct {
		name   string
		userID int64
		req    *model.SubmitPollRequest
		kind   apperr.Kind
	}{
		{"missing option", 1, &model.SubmitPollRequest{PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0]}, apperr.KindValidation},
		{"missing poll", 1, &model.SubmitPollRequest{QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("dark")}, apperr.KindValidation},
		{"unknown option", 1, &model.SubmitPollRequest{PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("decaf")}, apperr.KindValidation},
		{"unknown user", 2, &model.SubmitPollRequest{PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("dark")}, apperr.KindNotFound},
		{"question set of another poll", 1, &model.SubmitPollRequest{PollID: created.PollID, QuestionSetID: other.QuestionSetIDs[0], SelectedOption: strPtr("dark")}, apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.participation.SubmitPoll(context.Background(), tt.userID, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	for _, pollID := range []int64{created.PollID, other.PollID} {
		analytics, err := f.analytics.PollAnalytics(context.Background(), pollID)
		require.NoError(t, err)
		assert.Zero(t, analytics.TotalVotes)
		assert.Empty(t, analytics.OptionCounts)
	}
	assert.Empty(t, f.publisher.Events())
}

func TestSubmitPollTwiceConflicts(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1)
	created := f.createCoffee(t)
	req := &model.SubmitPollRequest{PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("dark")}

	_, err := f.participation.SubmitPoll(context.Background(), 1, req)
	require.NoError(t, err)

	_, err = f.participation.SubmitPoll(context.Background(), 1, req)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalVotes)
}

func TestSubmitPollSurvivesSideEffectFailures(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1)
	created := f.createCoffee(t)
	f.cache.Err = errors.New("redis down")
	f.publisher.Err = errors.New("kafka down")

	_, err := f.participation.SubmitPoll(context.Background(), 1, &model.SubmitPollRequest{
		PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("light"),
	})
	require.NoError(t, err)

	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.OptionCounts["light"])
}

func TestConcurrentSubmissionsDoNotLoseVotes(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)

	const k = 50
	for i := 1; i <= k; i++ {
		f.store.AddUser(int64(i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 1; i <= k; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := f.participation.SubmitPoll(context.Background(), userID, &model.SubmitPollRequest{
				PollID: created.PollID, QuestionSetID: created.QuestionSetIDs[0], SelectedOption: strPtr("medium"),
			})
			errs <- err
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, int64(k), analytics.TotalVotes)
	assert.Equal(t, int64(k), analytics.OptionCounts["medium"])
}

func TestUserPolls(t *testing.T) {
	f := newFixture()
	f.store.AddUser(1)

	twoQuestions := coffeeRequest()
	twoQuestions.QuestionSets = append(twoQuestions.QuestionSets, model.QuestionSetInput{QuestionType: "single-choice", QuestionText: "Milk?", Options: []string{"yes", "no"}})
	first, err := f.polls.CreatePoll(context.Background(), twoQuestions)
	require.NoError(t, err)
	second := f.createCoffee(t)

	outside := coffeeRequest()
	outside.StartDate, outside.EndDate = "2023-12-01", "2024-01-15"
	_, err = f.polls.CreatePoll(context.Background(), outside)
	require.NoError(t, err)

	polls, err := f.participation.UserPolls(context.Background(), 1, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, first.PollID, polls[0].PollID)
	require.Len(t, polls[0].Questions, 2)
	assert.Equal(t, first.QuestionSetIDs[0], polls[0].Questions[0].QuestionSetID)
	assert.Equal(t, []string{"yes", "no"}, polls[0].Questions[1].Options)
	assert.Equal(t, second.PollID, polls[1].PollID)

	// 参与过的投票活动整体不再返回
	_, err = f.participation.SubmitPoll(context.Background(), 1, &model.SubmitPollRequest{
		PollID: first.PollID, QuestionSetID: first.QuestionSetIDs[0], SelectedOption: strPtr("dark"),
	})
	require.NoError(t, err)

	polls, err = f.participation.UserPolls(context.Background(), 1, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, second.PollID, polls[0].PollID)

	_, err = f.participation.UserPolls(context.Background(), 1, "2025-01-01", "2025-12-31")
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, "No new polls exist", apperr.MessageOf(err))
}

func TestUserPollsValidation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name       string
		userID     int64
		start, end string
	}{
		{"missing user", 0, "2024-01-01", "2024-01-31"},
		{"missing start", 1, "", "2024-01-31"},
		{"bad end", 1, "2024-01-01", "31.01.2024"},
		{"inverted", 1, "2024-02-01", "2024-01-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.participation.UserPolls(context.Background(), tt.userID, tt.start, tt.end)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestPollAnalyticsCacheAside(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)

	_, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.True(t, f.cache.Has(created.PollID))

	// 命中缓存时不访问存储
	f.store.Err = errors.New("mysql down")
	analytics, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, created.PollID, analytics.PollID)

	f.store.Err = nil
	f.cache.Err = errors.New("redis down")
	analytics, err = f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)
	assert.Equal(t, created.PollID, analytics.PollID)
}

func TestPollAnalyticsNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.analytics.PollAnalytics(context.Background(), 12)
	assert.True(t, apperr.IsNotFound(err))
	assert.False(t, f.cache.Has(12))
}

func TestOverallAnalytics(t *testing.T) {
	f := newFixture()

	overall, err := f.analytics.OverallAnalytics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, overall.OverallTotalVotes)
	assert.NotNil(t, overall.OverallOptionCounts)
	assert.Empty(t, overall.OverallOptionCounts)

	f.store.AddUser(1, 2)
	a := f.createCoffee(t)
	b := f.createCoffee(t)
	for userID, pick := range map[int64]string{1: "dark", 2: "light"} {
		_, err := f.participation.SubmitPoll(context.Background(), userID, &model.SubmitPollRequest{
			PollID: a.PollID, QuestionSetID: a.QuestionSetIDs[0], SelectedOption: strPtr(pick),
		})
		require.NoError(t, err)
	}

	overall, err = f.analytics.OverallAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), overall.OverallTotalVotes)
	assert.Equal(t, map[string]int64{"dark": 1, "light": 1}, overall.OverallOptionCounts[fmt.Sprint(a.PollID)])
	assert.Empty(t, overall.OverallOptionCounts[fmt.Sprint(b.PollID)])
}

func TestHandleVoteEventInvalidatesCache(t *testing.T) {
	f := newFixture()
	created := f.createCoffee(t)
	_, err := f.analytics.PollAnalytics(context.Background(), created.PollID)
	require.NoError(t, err)

	require.NoError(t, f.analytics.HandleVoteEvent(context.Background(), &model.VoteEvent{PollID: created.PollID, UserID: 1}))
	assert.False(t, f.cache.Has(created.PollID))

	f.cache.Err = errors.New("redis down")
	assert.Error(t, f.analytics.HandleVoteEvent(context.Background(), &model.VoteEvent{PollID: created.PollID}))
}

func TestRewardSourceStaysInRange(t *testing.T) {
	r := NewRewardSource(7)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n := r.Draw(5, 8)
		require.GreaterOrEqual(t, n, 5)
		require.LessOrEqual(t, n, 8)
		seen[n] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 3, r.Draw(3, 3))
	assert.Equal(t, 3, r.Draw(3, 1))

	a, b := NewRewardSource(99), NewRewardSource(99)
	assert.Equal(t, a.Draw(0, 1000), b.Draw(0, 1000))
}
