package model

import (
	"encoding/json"
	"strings"
	"time"

	"emperror.dev/errors"
)

// DateLayout 投票活动日期格式
const DateLayout = "2006-01-02"

// Date 只保留日期部分，JSON 中序列化为 YYYY-MM-DD
type Date struct {
	time.Time
}

// ParseDate 解析 YYYY-MM-DD，同时兼容 RFC3339
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, errors.Errorf("无效的日期: %q", s)
	}
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Poll 投票活动
type Poll struct {
	ID        int64  `json:"pollId"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	StartDate Date   `json:"startDate"`
	EndDate   Date   `json:"endDate"`
	MinReward int    `json:"minReward"`
	MaxReward int    `json:"maxReward"`
}

// QuestionSet 投票活动下的一道题目，Options 为可选项的封闭集合
type QuestionSet struct {
	ID           int64    `json:"questionSetID"`
	PollID       int64    `json:"pollID"`
	QuestionType string   `json:"questionType"`
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

// HasOption 判断选项是否属于该题目
func (q *QuestionSet) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// User 参与用户，只记录最近一次完成的题目
type User struct {
	ID                  int64  `json:"id"`
	CompletedQuestionID *int64 `json:"completedQuestionId"`
	CompletedPollID     *int64 `json:"completedPollId"`
}

// Vote 用户对一道题目的作答，(UserID, QuestionSetID) 唯一
type Vote struct {
	UserID         int64     `json:"userId"`
	PollID         int64     `json:"pollId"`
	QuestionSetID  int64     `json:"questionSetId"`
	SelectedOption string    `json:"selectedOption"`
	RewardAmount   int       `json:"rewardAmount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PollAnalytics 单个投票活动的统计
type PollAnalytics struct {
	PollID       int64            `json:"pollId"`
	TotalVotes   int64            `json:"totalVotes"`
	OptionCounts map[string]int64 `json:"optionCounts"`
}

// OverallAnalytics 全部投票活动的统计，OverallOptionCounts 以投票活动ID字符串为键
type OverallAnalytics struct {
	OverallTotalVotes   int64                       `json:"overallTotalVotes"`
	OverallOptionCounts map[string]map[string]int64 `json:"overallOptionCounts"`
}

// SampleQuestion 列表页展示的示例题目（ID最小的题目）
type SampleQuestion struct {
	QuestionSetID int64    `json:"questionSetID"`
	QuestionType  string   `json:"questionType"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
}

// PollSummary 投票活动列表项
type PollSummary struct {
	PollID               int64           `json:"pollID"`
	PollTitle            string          `json:"pollTitle"`
	PollCategory         string          `json:"pollCategory"`
	StartDate            Date            `json:"startDate"`
	EndDate              Date            `json:"endDate"`
	MinReward            int             `json:"minReward"`
	MaxReward            int             `json:"maxReward"`
	TotalVotes           int64           `json:"totalVotes"`
	NumberOfQuestionSets int64           `json:"numberOfQuestionSets"`
	SampleQuestion       *SampleQuestion `json:"sampleQuestion"`
}

// PollPage 分页结果
type PollPage struct {
	Polls    []*PollSummary `json:"polls"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// UserQuestion 推送给用户的题目
type UserQuestion struct {
	QuestionSetID int64    `json:"questionSetID"`
	QuestionType  string   `json:"questionType"`
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
}

// UserPoll 推送给用户的投票活动及其题目
type UserPoll struct {
	PollID    int64           `json:"pollID"`
	Questions []*UserQuestion `json:"questions"`
}

// PollQuestionRow 用户可参与的 (投票活动, 题目) 组合
type PollQuestionRow struct {
	PollID   int64
	Question QuestionSet
}

// VoteEvent Kafka投票事件
type VoteEvent struct {
	UserID         int64     `json:"userId"`
	PollID         int64     `json:"pollId"`
	QuestionSetID  int64     `json:"questionSetId"`
	SelectedOption string    `json:"selectedOption"`
	RewardAmount   int       `json:"rewardAmount"`
	VotedAt        time.Time `json:"votedAt"`
}
