package service

import (
	"context"

	"emperror.dev/errors"
	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

type PollService struct {
	store       PollStore
	maxPageSize int
}

func NewPollService(store PollStore, maxPageSize int) *PollService {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &PollService{store: store, maxPageSize: maxPageSize}
}

// CreatePoll 创建投票活动及其全部题目
func (s *PollService) CreatePoll(ctx context.Context, req *model.CreatePollRequest) (*model.CreatePollResponse, error) {
	poll, err := pollFields{
		title:     req.Title,
		category:  req.Category,
		startDate: req.StartDate,
		endDate:   req.EndDate,
		minReward: req.MinReward,
		maxReward: req.MaxReward,
	}.toPoll()
	if err != nil {
		return nil, err
	}

	if req.QuestionSets == nil {
		return nil, invalid("questionSets must be a list")
	}

	questionSets := make([]*model.QuestionSet, 0, len(req.QuestionSets))
	for _, input := range req.QuestionSets {
		if err := validateQuestionSet(input.QuestionType, input.QuestionText, input.Options); err != nil {
			return nil, err
		}
		questionSets = append(questionSets, &model.QuestionSet{
			QuestionType: input.QuestionType,
			QuestionText: input.QuestionText,
			Options:      input.Options,
		})
	}

	if err := s.store.CreatePoll(ctx, poll, questionSets); err != nil {
		return nil, errors.WithMessage(err, "创建投票活动失败")
	}

	ids := make([]int64, len(questionSets))
	for i, qs := range questionSets {
		ids[i] = qs.ID
	}

	logrus.WithFields(logrus.Fields{"poll_id": poll.ID, "question_sets": len(ids)}).Info("投票活动已创建")
	return &model.CreatePollResponse{
		Message:        "Poll is created successfully",
		PollID:         poll.ID,
		QuestionSetIDs: ids,
	}, nil
}

// NormalizePage 非正数回退为默认值，pageSize 不超过上限
func (s *PollService) NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

// ListPolls 分页查询投票活动，空页返回 not found
func (s *PollService) ListPolls(ctx context.Context, page, pageSize int) (*model.PollPage, error) {
	page, pageSize = s.NormalizePage(page, pageSize)

	polls, err := s.store.ListPolls(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, errors.WithMessage(err, "查询投票活动列表失败")
	}
	if len(polls) == 0 {
		return nil, apperr.NotFound("No polls found")
	}

	return &model.PollPage{Polls: polls, Page: page, PageSize: pageSize}, nil
}

// UpdatePoll 覆盖投票活动字段，并逐个更新请求中的题目
//
// 单个题目失败不影响其他题目，结果逐项返回。
func (s *PollService) UpdatePoll(ctx context.Context, pollID int64, req *model.UpdatePollRequest) (*model.UpdatePollResponse, error) {
	if pollID <= 0 {
		return nil, apperr.Validation("Poll ID is required")
	}

	poll, err := pollFields{
		title:     req.Title,
		category:  req.Category,
		startDate: req.StartDate,
		endDate:   req.EndDate,
		minReward: req.MinReward,
		maxReward: req.MaxReward,
	}.toPoll()
	if err != nil {
		return nil, err
	}
	poll.ID = pollID

	if err := s.store.UpdatePoll(ctx, poll); err != nil {
		return nil, errors.WithMessage(err, "更新投票活动失败")
	}

	resp := &model.UpdatePollResponse{Message: "Poll updated successfully"}
	if len(req.QuestionSets) == 0 {
		return resp, nil
	}

	var failures error
	resp.QuestionSets = make([]*model.QuestionSetResult, 0, len(req.QuestionSets))
	for _, update := range req.QuestionSets {
		result := &model.QuestionSetResult{QuestionSetID: update.QuestionSetID}
		err := s.updateQuestionSet(ctx, pollID, update.QuestionSetID, update.QuestionType, update.QuestionText, update.Options)
		if err != nil {
			result.Error = apperr.MessageOf(err)
			failures = errors.Combine(failures, errors.WithDetails(err, "question_set_id", update.QuestionSetID))
		} else {
			result.Updated = true
		}
		resp.QuestionSets = append(resp.QuestionSets, result)
	}

	if failures != nil {
		logrus.WithError(failures).WithField("poll_id", pollID).Warn("部分题目更新失败")
		resp.Message = "Poll updated, but not all question sets were updated"
	}
	return resp, nil
}

// UpdateQuestionSet 更新单个题目
func (s *PollService) UpdateQuestionSet(ctx context.Context, pollID, questionSetID int64, input *model.QuestionSetInput) error {
	if pollID <= 0 {
		return apperr.Validation("Poll ID is required")
	}
	return s.updateQuestionSet(ctx, pollID, questionSetID, input.QuestionType, input.QuestionText, input.Options)
}

func (s *PollService) updateQuestionSet(ctx context.Context, pollID, questionSetID int64, questionType, questionText string, options []string) error {
	if questionSetID <= 0 {
		return apperr.Validation("Question set ID is required")
	}
	if err := validateQuestionSet(questionType, questionText, options); err != nil {
		return err
	}

	qs := &model.QuestionSet{
		ID:           questionSetID,
		PollID:       pollID,
		QuestionType: questionType,
		QuestionText: questionText,
		Options:      options,
	}
	if err := s.store.UpdateQuestionSet(ctx, qs); err != nil {
		return errors.WithMessagef(err, "更新题目 %d 失败", questionSetID)
	}
	return nil
}
