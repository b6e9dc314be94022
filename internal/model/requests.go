package model

// QuestionSetInput 创建投票活动时的题目
type QuestionSetInput struct {
	QuestionType string   `json:"questionType"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

// CreatePollRequest 创建投票活动请求，指针字段用于区分缺失与零值
type CreatePollRequest struct {
	Title        string             `json:"title"`
	Category     string             `json:"category"`
	StartDate    string             `json:"startDate"`
	EndDate      string             `json:"endDate"`
	MinReward    *int               `json:"minReward"`
	MaxReward    *int               `json:"maxReward"`
	QuestionSets []QuestionSetInput `json:"questionSets"`
}

// CreatePollResponse 创建投票活动响应
type CreatePollResponse struct {
	Message        string  `json:"message"`
	PollID         int64   `json:"pollId"`
	QuestionSetIDs []int64 `json:"questionSetIds"`
}

// QuestionSetUpdate 更新题目，需指定 QuestionSetID
type QuestionSetUpdate struct {
	QuestionSetID int64    `json:"questionSetId"`
	QuestionType  string   `json:"questionType"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
}

// UpdatePollRequest 更新投票活动请求，字段全量覆盖
type UpdatePollRequest struct {
	Title        string              `json:"title"`
	Category     string              `json:"category"`
	StartDate    string              `json:"startDate"`
	EndDate      string              `json:"endDate"`
	MinReward    *int                `json:"minReward"`
	MaxReward    *int                `json:"maxReward"`
	QuestionSets []QuestionSetUpdate `json:"questionSets"`
}

// QuestionSetResult 单个题目的更新结果
type QuestionSetResult struct {
	QuestionSetID int64  `json:"questionSetId"`
	Updated       bool   `json:"updated"`
	Error         string `json:"error,omitempty"`
}

// UpdatePollResponse 更新投票活动响应
type UpdatePollResponse struct {
	Message      string               `json:"message"`
	QuestionSets []*QuestionSetResult `json:"questionSets,omitempty"`
}

// AllUpdated 所有题目是否都更新成功
func (r *UpdatePollResponse) AllUpdated() bool {
	for _, qs := range r.QuestionSets {
		if !qs.Updated {
			return false
		}
	}
	return true
}

// SubmitPollRequest 提交作答请求
type SubmitPollRequest struct {
	PollID         int64   `json:"pollId"`
	QuestionSetID  int64   `json:"questionSetId"`
	SelectedOption *string `json:"selectedOption"`
}

// SubmitPollResponse 提交作答响应
type SubmitPollResponse struct {
	RewardAmount int `json:"rewardAmount"`
}

// UserPollsResponse 用户可参与的投票活动
type UserPollsResponse struct {
	UserPolls []*UserPoll `json:"userPolls"`
}

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
