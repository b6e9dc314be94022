// Package testutil 提供测试用的内存存储，行为与 MySQL 仓库保持一致
package testutil

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

type voteKey struct {
	userID, questionSetID int64
}

// MemStore 内存实现的仓库，可并发使用
type MemStore struct {
	mu sync.Mutex

	nextPollID, nextQuestionSetID int64

	polls        map[int64]*model.Poll
	questionSets map[int64]*model.QuestionSet
	users        map[int64]*model.User
	votes        map[voteKey]*model.Vote
	totals       map[int64]int64
	optionCounts map[int64]map[string]int64

	// Err 非空时所有操作返回该错误
	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{
		polls:        map[int64]*model.Poll{},
		questionSets: map[int64]*model.QuestionSet{},
		users:        map[int64]*model.User{},
		votes:        map[voteKey]*model.Vote{},
		totals:       map[int64]int64{},
		optionCounts: map[int64]map[string]int64{},
	}
}

// AddUser 直接写入用户
func (m *MemStore) AddUser(ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.users[id] = &model.User{ID: id}
	}
}

func (m *MemStore) CreatePoll(ctx context.Context, poll *model.Poll, questionSets []*model.QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	m.nextPollID++
	poll.ID = m.nextPollID
	stored := *poll
	m.polls[poll.ID] = &stored

	for _, qs := range questionSets {
		m.nextQuestionSetID++
		qs.ID = m.nextQuestionSetID
		qs.PollID = poll.ID
		m.questionSets[qs.ID] = copyQuestionSet(qs)
	}

	m.totals[poll.ID] = 0
	m.optionCounts[poll.ID] = map[string]int64{}
	return nil
}

func copyQuestionSet(qs *model.QuestionSet) *model.QuestionSet {
	c := *qs
	c.Options = append([]string(nil), qs.Options...)
	return &c
}

func (m *MemStore) questionSetsOf(pollID int64) []*model.QuestionSet {
	var result []*model.QuestionSet
	for _, qs := range m.questionSets {
		if qs.PollID == pollID {
			result = append(result, qs)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *MemStore) ListPolls(ctx context.Context, limit, offset int) ([]*model.PollSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	ids := make([]int64, 0, len(m.polls))
	for id := range m.polls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	polls := []*model.PollSummary{}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		p := m.polls[ids[i]]
		voters := map[int64]struct{}{}
		for k, v := range m.votes {
			if v.PollID == p.ID {
				voters[k.userID] = struct{}{}
			}
		}

		summary := &model.PollSummary{
			PollID:       p.ID,
			PollTitle:    p.Title,
			PollCategory: p.Category,
			StartDate:    p.StartDate,
			EndDate:      p.EndDate,
			MinReward:    p.MinReward,
			MaxReward:    p.MaxReward,
			TotalVotes:   int64(len(voters)),
		}
		qss := m.questionSetsOf(p.ID)
		summary.NumberOfQuestionSets = int64(len(qss))
		if len(qss) > 0 {
			summary.SampleQuestion = &model.SampleQuestion{
				QuestionSetID: qss[0].ID,
				QuestionType:  qss[0].QuestionType,
				QuestionText:  qss[0].QuestionText,
				Options:       append([]string(nil), qss[0].Options...),
			}
		}
		polls = append(polls, summary)
	}
	return polls, nil
}

func (m *MemStore) GetPoll(ctx context.Context, pollID int64) (*model.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	p, ok := m.polls[pollID]
	if !ok {
		return nil, apperr.NotFound("Poll not found")
	}
	c := *p
	return &c, nil
}

func (m *MemStore) UpdatePoll(ctx context.Context, poll *model.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	if _, ok := m.polls[poll.ID]; !ok {
		return apperr.NotFound("Poll not found")
	}
	stored := *poll
	m.polls[poll.ID] = &stored
	return nil
}

func (m *MemStore) GetQuestionSet(ctx context.Context, pollID, questionSetID int64) (*model.QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	qs, ok := m.questionSets[questionSetID]
	if !ok || qs.PollID != pollID {
		return nil, apperr.NotFound("Question set not found for the specified poll")
	}
	return copyQuestionSet(qs), nil
}

func (m *MemStore) UpdateQuestionSet(ctx context.Context, qs *model.QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	existing, ok := m.questionSets[qs.ID]
	if !ok || existing.PollID != qs.PollID {
		return apperr.NotFound("Question set not found for the specified poll")
	}
	m.questionSets[qs.ID] = copyQuestionSet(qs)
	return nil
}

func (m *MemStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[userID]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	c := *u
	return &c, nil
}

func (m *MemStore) RecordVote(ctx context.Context, vote *model.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	user, ok := m.users[vote.UserID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	qs, qsOK := m.questionSets[vote.QuestionSetID]
	if !qsOK || qs.PollID != vote.PollID {
		return apperr.NotFound("User or question set not found")
	}
	key := voteKey{vote.UserID, vote.QuestionSetID}
	if _, exists := m.votes[key]; exists {
		return apperr.Conflict("User has already answered this question set", nil)
	}

	stored := *vote
	m.votes[key] = &stored

	qsID, pollID := vote.QuestionSetID, vote.PollID
	user.CompletedQuestionID = &qsID
	user.CompletedPollID = &pollID

	m.totals[vote.PollID]++
	if m.optionCounts[vote.PollID] == nil {
		m.optionCounts[vote.PollID] = map[string]int64{}
	}
	m.optionCounts[vote.PollID][vote.SelectedOption]++
	return nil
}

func (m *MemStore) AnsweredQuestionSetIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var ids []int64
	for k := range m.votes {
		if k.userID == userID {
			ids = append(ids, k.questionSetID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MemStore) ListUnansweredPollQuestions(ctx context.Context, userID int64, start, end model.Date) ([]*model.PollQuestionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	votedPolls := map[int64]struct{}{}
	for k, v := range m.votes {
		if k.userID == userID {
			votedPolls[v.PollID] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(m.polls))
	for id := range m.polls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var rows []*model.PollQuestionRow
	for _, id := range ids {
		p := m.polls[id]
		if p.StartDate.Before(start.Time) || p.EndDate.After(end.Time) {
			continue
		}
		if _, voted := votedPolls[id]; voted {
			continue
		}
		for _, qs := range m.questionSetsOf(id) {
			rows = append(rows, &model.PollQuestionRow{PollID: id, Question: *copyQuestionSet(qs)})
		}
	}
	return rows, nil
}

func (m *MemStore) GetPollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	total, ok := m.totals[pollID]
	if !ok {
		return nil, apperr.NotFound("Poll analytics not found for the specified poll")
	}
	counts := map[string]int64{}
	for option, n := range m.optionCounts[pollID] {
		counts[option] = n
	}
	return &model.PollAnalytics{PollID: pollID, TotalVotes: total, OptionCounts: counts}, nil
}

func (m *MemStore) GetOverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	overall := &model.OverallAnalytics{OverallOptionCounts: map[string]map[string]int64{}}
	for pollID, total := range m.totals {
		overall.OverallTotalVotes += total
		counts := map[string]int64{}
		for option, n := range m.optionCounts[pollID] {
			counts[option] = n
		}
		overall.OverallOptionCounts[strconv.FormatInt(pollID, 10)] = counts
	}
	return overall, nil
}
