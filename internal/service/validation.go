package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

const invalidInput = "Invalid input data"

// MaxOptionLength 与 votes.selected_option、poll_option_counts.option_value 的列宽一致
const MaxOptionLength = 255

func invalid(detail string) error {
	return apperr.Validation(invalidInput + ": " + detail)
}

// pollFields 创建与更新共用的标量字段
type pollFields struct {
	title, category    string
	startDate, endDate string
	minReward          *int
	maxReward          *int
}

func (f pollFields) toPoll() (*model.Poll, error) {
	if strings.TrimSpace(f.title) == "" {
		return nil, invalid("title is required")
	}
	if strings.TrimSpace(f.category) == "" {
		return nil, invalid("category is required")
	}
	if f.startDate == "" || f.endDate == "" {
		return nil, invalid("startDate and endDate are required")
	}
	start, err := model.ParseDate(f.startDate)
	if err != nil {
		return nil, invalid("startDate must be YYYY-MM-DD")
	}
	end, err := model.ParseDate(f.endDate)
	if err != nil {
		return nil, invalid("endDate must be YYYY-MM-DD")
	}
	if start.After(end.Time) {
		return nil, invalid("startDate must not be after endDate")
	}
	if f.minReward == nil || f.maxReward == nil {
		return nil, invalid("minReward and maxReward are required")
	}
	if *f.minReward < 0 || *f.minReward > *f.maxReward {
		return nil, invalid("reward range must satisfy 0 <= minReward <= maxReward")
	}

	return &model.Poll{
		Title:     f.title,
		Category:  f.category,
		StartDate: start,
		EndDate:   end,
		MinReward: *f.minReward,
		MaxReward: *f.maxReward,
	}, nil
}

func validateQuestionSet(questionType, questionText string, options []string) error {
	if strings.TrimSpace(questionType) == "" {
		return invalid("questionType is required")
	}
	if strings.TrimSpace(questionText) == "" {
		return invalid("questionText is required")
	}
	if len(options) == 0 {
		return invalid("options must contain at least one value")
	}

	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		if option == "" {
			return invalid("options must not be empty")
		}
		if utf8.RuneCountInString(option) > MaxOptionLength {
			return invalid("options must be at most " + strconv.Itoa(MaxOptionLength) + " characters")
		}
		if _, ok := seen[option]; ok {
			return invalid("duplicate option " + option)
		}
		seen[option] = struct{}{}
	}
	return nil
}
