package service

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

type ParticipationService struct {
	store       ParticipationStore
	invalidator PollInvalidator
	publisher   EventPublisher
	rewards     *RewardSource
	now         func() time.Time
}

func NewParticipationService(
	store ParticipationStore,
	invalidator PollInvalidator,
	publisher EventPublisher,
	rewards *RewardSource,
) *ParticipationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if rewards == nil {
		rewards = NewRewardSource(0)
	}
	return &ParticipationService{
		store:       store,
		invalidator: invalidator,
		publisher:   publisher,
		rewards:     rewards,
		now:         time.Now,
	}
}

// UserPolls 返回时间窗口内用户尚未参与的投票活动及题目
func (s *ParticipationService) UserPolls(ctx context.Context, userID int64, startDate, endDate string) ([]*model.UserPoll, error) {
	if userID <= 0 {
		return nil, apperr.Validation("User ID is required")
	}
	if startDate == "" || endDate == "" {
		return nil, invalid("startDate and endDate are required")
	}
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, invalid("startDate must be YYYY-MM-DD")
	}
	end, err := model.ParseDate(endDate)
	if err != nil {
		return nil, invalid("endDate must be YYYY-MM-DD")
	}
	if start.After(end.Time) {
		return nil, invalid("startDate must not be after endDate")
	}

	answeredIDs, err := s.store.AnsweredQuestionSetIDs(ctx, userID)
	if err != nil {
		return nil, errors.WithMessage(err, "查询用户作答记录失败")
	}
	answered := make(map[int64]struct{}, len(answeredIDs))
	for _, id := range answeredIDs {
		answered[id] = struct{}{}
	}

	rows, err := s.store.ListUnansweredPollQuestions(ctx, userID, start, end)
	if err != nil {
		return nil, errors.WithMessage(err, "查询用户可参与的投票活动失败")
	}

	// rows 已按 (poll_id, question_set_id) 升序
	var polls []*model.UserPoll
	for _, row := range rows {
		if _, ok := answered[row.Question.ID]; ok {
			continue
		}
		if len(polls) == 0 || polls[len(polls)-1].PollID != row.PollID {
			polls = append(polls, &model.UserPoll{PollID: row.PollID})
		}
		current := polls[len(polls)-1]
		current.Questions = append(current.Questions, &model.UserQuestion{
			QuestionSetID: row.Question.ID,
			QuestionType:  row.Question.QuestionType,
			QuestionText:  row.Question.QuestionText,
			Options:       row.Question.Options,
		})
	}

	if len(polls) == 0 {
		return nil, apperr.NotFound("No new polls exist")
	}
	return polls, nil
}

// SubmitPoll 记录用户作答并发放奖励
func (s *ParticipationService) SubmitPoll(ctx context.Context, userID int64, req *model.SubmitPollRequest) (*model.SubmitPollResponse, error) {
	if userID <= 0 || req.PollID <= 0 || req.QuestionSetID <= 0 || req.SelectedOption == nil {
		return nil, apperr.Validation(invalidInput)
	}
	option := *req.SelectedOption
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "poll_id": req.PollID, "question_set_id": req.QuestionSetID})

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, errors.WithMessage(err, "查询用户失败")
	}

	qs, err := s.store.GetQuestionSet(ctx, req.PollID, req.QuestionSetID)
	if err != nil {
		return nil, errors.WithMessage(err, "查询题目失败")
	}
	if !qs.HasOption(option) {
		return nil, apperr.Validation("Invalid selected option for the question")
	}

	poll, err := s.store.GetPoll(ctx, req.PollID)
	if err != nil {
		return nil, errors.WithMessage(err, "查询投票活动失败")
	}

	vote := &model.Vote{
		UserID:         userID,
		PollID:         req.PollID,
		QuestionSetID:  req.QuestionSetID,
		SelectedOption: option,
		RewardAmount:   s.rewards.Draw(poll.MinReward, poll.MaxReward),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.RecordVote(ctx, vote); err != nil {
		return nil, errors.WithMessage(err, "记录作答失败")
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidatePoll(ctx, vote.PollID); err != nil {
			log.WithError(err).Warn("统计缓存失效失败")
		}
	}

	event := &model.VoteEvent{
		UserID:         vote.UserID,
		PollID:         vote.PollID,
		QuestionSetID:  vote.QuestionSetID,
		SelectedOption: vote.SelectedOption,
		RewardAmount:   vote.RewardAmount,
		VotedAt:        vote.CreatedAt,
	}
	if err := s.publisher.PublishVoteEvent(ctx, event); err != nil {
		log.WithError(err).Warn("发送投票事件失败")
	}

	log.WithField("reward", vote.RewardAmount).Info("作答已记录")
	return &model.SubmitPollResponse{RewardAmount: vote.RewardAmount}, nil
}
