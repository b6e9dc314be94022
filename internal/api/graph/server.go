package graph

import (
	"context"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/lvdashuaibi/littlepoll/internal/model"
)

// PollLister 分页查询投票活动
type PollLister interface {
	ListPolls(ctx context.Context, page, pageSize int) (*model.PollPage, error)
}

// AnalyticsReader 投票统计查询
type AnalyticsReader interface {
	PollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error)
	OverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error)
}

// GraphQLServer 只读GraphQL查询
type GraphQLServer struct {
	schema  *graphql.Schema
	handler *relay.Handler
}

const schemaString = `
schema {
  query: Query
}

type Query {
  # 分页查询投票活动，参数缺省时使用默认分页
  polls(page: Int, pageSize: Int): PollPage!

  # 单个投票活动的统计
  pollAnalytics(pollId: ID!): PollAnalytics!

  # 全部投票活动的汇总统计
  overallAnalytics: OverallAnalytics!
}

type PollPage {
  polls: [PollSummary!]!
  page: Int!
  pageSize: Int!
}

type PollSummary {
  pollId: ID!
  title: String!
  category: String!
  startDate: String!
  endDate: String!
  minReward: Int!
  maxReward: Int!
  totalVotes: Int!
  numberOfQuestionSets: Int!
  sampleQuestion: SampleQuestion
}

type SampleQuestion {
  questionSetId: ID!
  questionType: String!
  questionText: String!
  options: [String!]!
}

type OptionCount {
  option: String!
  count: Int!
}

type PollAnalytics {
  pollId: ID!
  totalVotes: Int!
  optionCounts: [OptionCount!]!
}

type OverallAnalytics {
  overallTotalVotes: Int!
  polls: [PollAnalytics!]!
}
`

// NewGraphQLServer 创建GraphQL服务
func NewGraphQLServer(polls PollLister, analytics AnalyticsReader) *GraphQLServer {
	resolver := &Resolver{polls: polls, analytics: analytics}

	schema := graphql.MustParseSchema(schemaString, resolver,
		graphql.UseFieldResolvers(),
		graphql.MaxDepth(8),
	)

	return &GraphQLServer{
		schema:  schema,
		handler: &relay.Handler{Schema: schema},
	}
}

// Handler 返回处理 POST 查询的 http.Handler
func (s *GraphQLServer) Handler() http.Handler {
	return s.handler
}

// Exec 直接执行查询
func (s *GraphQLServer) Exec(ctx context.Context, query string, variables map[string]interface{}) *graphql.Response {
	return s.schema.Exec(ctx, query, "", variables)
}
