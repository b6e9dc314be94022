package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/lvdashuaibi/littlepoll/config"
	"github.com/lvdashuaibi/littlepoll/internal/apperr"
	"github.com/lvdashuaibi/littlepoll/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

type MySQLRepository struct {
	masterDB *sql.DB
	slaveDB  *sql.DB
}

func NewMySQLRepository(cfg config.MySQLConfig) (*MySQLRepository, error) {
	masterDB, err := openDB(cfg.Master, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "连接主数据库失败")
	}

	if err = masterDB.Ping(); err != nil {
		masterDB.Close()
		return nil, errors.Wrap(err, "主数据库连接测试失败")
	}

	slaveDB := masterDB
	if cfg.Slave != "" {
		slaveDB, err = openDB(cfg.Slave, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "连接从数据库失败")
		}
		if err = slaveDB.Ping(); err != nil {
			logrus.WithError(err).Warn("从数据库连接测试失败，将使用主数据库代替")
			slaveDB.Close()
			slaveDB = masterDB
		}
	}

	return NewMySQLRepositoryWithDB(masterDB, slaveDB), nil
}

// NewMySQLRepositoryWithDB 使用已建立的连接创建仓库，slave 为空时读写都走主库
func NewMySQLRepositoryWithDB(master, slave *sql.DB) *MySQLRepository {
	if slave == nil {
		slave = master
	}
	return &MySQLRepository{masterDB: master, slaveDB: slave}
}

// openDB 强制开启 parseTime 与 clientFoundRows，DATE 列扫描为 time.Time，
// UPDATE 的影响行数按匹配行计算
func openDB(dsn string, cfg config.MySQLConfig) (*sql.DB, error) {
	normalized, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

func normalizeDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "解析数据库DSN失败")
	}
	parsed.ParseTime = true
	parsed.ClientFoundRows = true
	return parsed.FormatDSN(), nil
}

func encodeOptions(options []string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", errors.Wrap(err, "序列化选项失败")
	}
	return string(data), nil
}

func decodeOptions(raw string) ([]string, error) {
	options := []string{}
	if raw == "" {
		return options, nil
	}
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, errors.Wrap(err, "解析选项失败")
	}
	return options, nil
}

func mysqlErrorNumber(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}

// CreatePoll 在同一事务中写入投票活动、全部题目以及统计行，成功后回填ID
func (r *MySQLRepository) CreatePoll(ctx context.Context, poll *model.Poll, questionSets []*model.QuestionSet) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "开始事务失败")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"INSERT INTO polls (title, category, start_date, end_date, min_reward, max_reward) VALUES (?, ?, ?, ?, ?, ?)",
		poll.Title, poll.Category, poll.StartDate.String(), poll.EndDate.String(), poll.MinReward, poll.MaxReward,
	)
	if err != nil {
		return errors.Wrap(err, "插入投票活动失败")
	}

	pollID, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "获取投票活动ID失败")
	}

	for i, qs := range questionSets {
		options, err := encodeOptions(qs.Options)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO question_sets (poll_id, question_type, question_text, options) VALUES (?, ?, ?, ?)",
			pollID, qs.QuestionType, qs.QuestionText, options,
		)
		if err != nil {
			return errors.Wrapf(err, "插入第 %d 个题目失败", i+1)
		}

		qsID, err := result.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "获取题目ID失败")
		}
		qs.ID = qsID
		qs.PollID = pollID
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO poll_analytics (poll_id, total_votes) VALUES (?, 0)", pollID); err != nil {
		return errors.Wrap(err, "初始化投票统计失败")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "提交事务失败")
	}

	poll.ID = pollID
	return nil
}

const listPollsQuery = `
	SELECT
		p.id, p.title, p.category, p.start_date, p.end_date, p.min_reward, p.max_reward,
		(SELECT COUNT(DISTINCT v.user_id) FROM votes v WHERE v.poll_id = p.id) AS total_votes,
		(SELECT COUNT(*) FROM question_sets q WHERE q.poll_id = p.id) AS question_set_count,
		s.id, s.question_type, s.question_text, s.options
	FROM polls p
	LEFT JOIN question_sets s ON s.id = (SELECT MIN(q2.id) FROM question_sets q2 WHERE q2.poll_id = p.id)
	ORDER BY p.id DESC
	LIMIT ? OFFSET ?`

// ListPolls 按ID倒序分页查询投票活动
func (r *MySQLRepository) ListPolls(ctx context.Context, limit, offset int) ([]*model.PollSummary, error) {
	rows, err := r.slaveDB.QueryContext(ctx, listPollsQuery, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "查询投票活动列表失败")
	}
	defer rows.Close()

	polls := []*model.PollSummary{}
	for rows.Next() {
		var (
			summary      model.PollSummary
			start, end   time.Time
			sampleID     sql.NullInt64
			sampleType   sql.NullString
			sampleText   sql.NullString
			sampleOption sql.NullString
		)
		if err := rows.Scan(
			&summary.PollID, &summary.PollTitle, &summary.PollCategory, &start, &end,
			&summary.MinReward, &summary.MaxReward, &summary.TotalVotes, &summary.NumberOfQuestionSets,
			&sampleID, &sampleType, &sampleText, &sampleOption,
		); err != nil {
			return nil, errors.Wrap(err, "扫描投票活动失败")
		}
		summary.StartDate = model.NewDate(start)
		summary.EndDate = model.NewDate(end)

		if sampleID.Valid {
			options, err := decodeOptions(sampleOption.String)
			if err != nil {
				return nil, err
			}
			summary.SampleQuestion = &model.SampleQuestion{
				QuestionSetID: sampleID.Int64,
				QuestionType:  sampleType.String,
				QuestionText:  sampleText.String,
				Options:       options,
			}
		}
		polls = append(polls, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代投票活动失败")
	}
	return polls, nil
}

// GetPoll 获取投票活动
func (r *MySQLRepository) GetPoll(ctx context.Context, pollID int64) (*model.Poll, error) {
	var (
		poll       model.Poll
		start, end time.Time
	)
	err := r.masterDB.QueryRowContext(ctx,
		"SELECT id, title, category, start_date, end_date, min_reward, max_reward FROM polls WHERE id = ?",
		pollID,
	).Scan(&poll.ID, &poll.Title, &poll.Category, &start, &end, &poll.MinReward, &poll.MaxReward)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Poll not found")
		}
		return nil, errors.Wrap(err, "查询投票活动失败")
	}

	poll.StartDate = model.NewDate(start)
	poll.EndDate = model.NewDate(end)
	return &poll, nil
}

// UpdatePoll 全量覆盖投票活动字段
func (r *MySQLRepository) UpdatePoll(ctx context.Context, poll *model.Poll) error {
	result, err := r.masterDB.ExecContext(ctx,
		"UPDATE polls SET title = ?, category = ?, min_reward = ?, max_reward = ?, start_date = ?, end_date = ? WHERE id = ?",
		poll.Title, poll.Category, poll.MinReward, poll.MaxReward, poll.StartDate.String(), poll.EndDate.String(), poll.ID,
	)
	if err != nil {
		return errors.Wrap(err, "更新投票活动失败")
	}

	updated, err := r.affectedOrExists(ctx, result, "SELECT 1 FROM polls WHERE id = ?", poll.ID)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("Poll not found")
	}
	return nil
}

// GetQuestionSet 获取指定投票活动下的题目
func (r *MySQLRepository) GetQuestionSet(ctx context.Context, pollID, questionSetID int64) (*model.QuestionSet, error) {
	var (
		qs      model.QuestionSet
		options string
	)
	err := r.masterDB.QueryRowContext(ctx,
		"SELECT id, poll_id, question_type, question_text, options FROM question_sets WHERE id = ? AND poll_id = ?",
		questionSetID, pollID,
	).Scan(&qs.ID, &qs.PollID, &qs.QuestionType, &qs.QuestionText, &options)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Question set not found for the specified poll")
		}
		return nil, errors.Wrap(err, "查询题目失败")
	}

	if qs.Options, err = decodeOptions(options); err != nil {
		return nil, err
	}
	return &qs, nil
}

// UpdateQuestionSet 按 (id, poll_id) 更新题目内容
func (r *MySQLRepository) UpdateQuestionSet(ctx context.Context, qs *model.QuestionSet) error {
	options, err := encodeOptions(qs.Options)
	if err != nil {
		return err
	}

	result, err := r.masterDB.ExecContext(ctx,
		"UPDATE question_sets SET question_text = ?, options = ?, question_type = ? WHERE id = ? AND poll_id = ?",
		qs.QuestionText, options, qs.QuestionType, qs.ID, qs.PollID,
	)
	if err != nil {
		return errors.Wrapf(err, "更新题目 %d 失败", qs.ID)
	}

	updated, err := r.affectedOrExists(ctx, result, "SELECT 1 FROM question_sets WHERE id = ? AND poll_id = ?", qs.ID, qs.PollID)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("Question set not found for the specified poll")
	}
	return nil
}

// affectedOrExists MySQL 对未变化的行返回 0，此时再确认记录是否存在
func (r *MySQLRepository) affectedOrExists(ctx context.Context, result sql.Result, query string, args ...interface{}) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "获取更新结果失败")
	}
	if rowsAffected > 0 {
		return true, nil
	}

	var one int
	err = r.masterDB.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "确认记录是否存在失败")
	}
	return true, nil
}

// GetUser 获取用户
func (r *MySQLRepository) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var (
		user                   model.User
		completedQ, completedP sql.NullInt64
	)
	err := r.masterDB.QueryRowContext(ctx,
		"SELECT id, completed_question_id, completed_poll_id FROM users WHERE id = ?", userID,
	).Scan(&user.ID, &completedQ, &completedP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, errors.Wrap(err, "查询用户失败")
	}

	if completedQ.Valid {
		user.CompletedQuestionID = &completedQ.Int64
	}
	if completedP.Valid {
		user.CompletedPollID = &completedP.Int64
	}
	return &user, nil
}

// RecordVote 在同一事务中更新用户完成标记、记录作答并累加统计
//
// 先更新 users 行取得排他锁，同一用户的并发提交在此排队，
// 避免外键检查的共享锁与随后的排他锁互相等待。
// (user_id, question_set_id) 唯一索引保证同一用户不能重复作答；
// 计数使用 col = col + 1 单语句更新，并发提交不会丢失累加。
func (r *MySQLRepository) RecordVote(ctx context.Context, vote *model.Vote) error {
	tx, err := r.masterDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "开始事务失败")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE users SET completed_question_id = ?, completed_poll_id = ? WHERE id = ?",
		vote.QuestionSetID, vote.PollID, vote.UserID,
	)
	if err != nil {
		return errors.Wrap(err, "更新用户完成标记失败")
	}
	// DSN 开启了 clientFoundRows，影响行数为匹配行数
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "获取影响行数失败")
	}
	if affected == 0 {
		return apperr.NotFound("User not found")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO votes (user_id, poll_id, question_set_id, selected_option, reward_amount, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		vote.UserID, vote.PollID, vote.QuestionSetID, vote.SelectedOption, vote.RewardAmount, vote.CreatedAt,
	)
	if err != nil {
		switch mysqlErrorNumber(err) {
		case mysqlErrDuplicateEntry:
			return apperr.Conflict("User has already answered this question set", err)
		case mysqlErrNoReferencedRow:
			return &apperr.Error{Kind: apperr.KindNotFound, Message: "User or question set not found", Err: err}
		}
		return errors.Wrap(err, "记录作答失败")
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO poll_analytics (poll_id, total_votes) VALUES (?, 1) ON DUPLICATE KEY UPDATE total_votes = total_votes + 1",
		vote.PollID,
	); err != nil {
		return errors.Wrap(err, "更新投票总数失败")
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO poll_option_counts (poll_id, option_value, vote_count) VALUES (?, ?, 1) ON DUPLICATE KEY UPDATE vote_count = vote_count + 1",
		vote.PollID, vote.SelectedOption,
	); err != nil {
		return errors.Wrap(err, "更新选项计数失败")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "提交事务失败")
	}
	return nil
}

// AnsweredQuestionSetIDs 用户已作答的题目ID
func (r *MySQLRepository) AnsweredQuestionSetIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.slaveDB.QueryContext(ctx,
		"SELECT DISTINCT question_set_id FROM votes WHERE user_id = ? ORDER BY question_set_id", userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "查询用户作答记录失败")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "扫描作答记录失败")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代作答记录失败")
	}
	return ids, nil
}

const unansweredPollQuestionsQuery = `
	SELECT p.id, q.id, q.question_type, q.question_text, q.options
	FROM polls p
	JOIN question_sets q ON q.poll_id = p.id
	WHERE p.start_date >= ? AND p.end_date <= ?
		AND NOT EXISTS (SELECT 1 FROM votes v WHERE v.user_id = ? AND v.poll_id = p.id)
	ORDER BY p.id, q.id`

// ListUnansweredPollQuestions 时间窗口内用户尚未参与的投票活动题目
func (r *MySQLRepository) ListUnansweredPollQuestions(ctx context.Context, userID int64, start, end model.Date) ([]*model.PollQuestionRow, error) {
	rows, err := r.slaveDB.QueryContext(ctx, unansweredPollQuestionsQuery, start.String(), end.String(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "查询用户可参与的投票活动失败")
	}
	defer rows.Close()

	var result []*model.PollQuestionRow
	for rows.Next() {
		var (
			row     model.PollQuestionRow
			options string
		)
		if err := rows.Scan(&row.PollID, &row.Question.ID, &row.Question.QuestionType, &row.Question.QuestionText, &options); err != nil {
			return nil, errors.Wrap(err, "扫描题目失败")
		}
		row.Question.PollID = row.PollID
		if row.Question.Options, err = decodeOptions(options); err != nil {
			return nil, err
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代题目失败")
	}
	return result, nil
}

// GetPollAnalytics 获取单个投票活动的统计
//
// 结果会写入缓存，从主库读取以免缓存从库延迟的旧计数
func (r *MySQLRepository) GetPollAnalytics(ctx context.Context, pollID int64) (*model.PollAnalytics, error) {
	analytics := &model.PollAnalytics{PollID: pollID, OptionCounts: map[string]int64{}}

	err := r.masterDB.QueryRowContext(ctx,
		"SELECT total_votes FROM poll_analytics WHERE poll_id = ?", pollID,
	).Scan(&analytics.TotalVotes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Poll analytics not found for the specified poll")
		}
		return nil, errors.Wrap(err, "查询投票统计失败")
	}

	rows, err := r.masterDB.QueryContext(ctx,
		"SELECT option_value, vote_count FROM poll_option_counts WHERE poll_id = ?", pollID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "查询选项计数失败")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			option string
			count  int64
		)
		if err := rows.Scan(&option, &count); err != nil {
			return nil, errors.Wrap(err, "扫描选项计数失败")
		}
		analytics.OptionCounts[option] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代选项计数失败")
	}
	return analytics, nil
}

// GetOverallAnalytics 汇总全部投票活动的统计
func (r *MySQLRepository) GetOverallAnalytics(ctx context.Context) (*model.OverallAnalytics, error) {
	overall := &model.OverallAnalytics{OverallOptionCounts: map[string]map[string]int64{}}

	rows, err := r.slaveDB.QueryContext(ctx, "SELECT poll_id, total_votes FROM poll_analytics ORDER BY poll_id")
	if err != nil {
		return nil, errors.Wrap(err, "查询投票统计失败")
	}
	defer rows.Close()

	for rows.Next() {
		var pollID, total int64
		if err := rows.Scan(&pollID, &total); err != nil {
			return nil, errors.Wrap(err, "扫描投票统计失败")
		}
		overall.OverallTotalVotes += total
		overall.OverallOptionCounts[strconv.FormatInt(pollID, 10)] = map[string]int64{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代投票统计失败")
	}

	countRows, err := r.slaveDB.QueryContext(ctx,
		"SELECT poll_id, option_value, vote_count FROM poll_option_counts ORDER BY poll_id, option_value",
	)
	if err != nil {
		return nil, errors.Wrap(err, "查询选项计数失败")
	}
	defer countRows.Close()

	for countRows.Next() {
		var (
			pollID, count int64
			option        string
		)
		if err := countRows.Scan(&pollID, &option, &count); err != nil {
			return nil, errors.Wrap(err, "扫描选项计数失败")
		}
		key := strconv.FormatInt(pollID, 10)
		if overall.OverallOptionCounts[key] == nil {
			overall.OverallOptionCounts[key] = map[string]int64{}
		}
		overall.OverallOptionCounts[key][option] = count
	}
	if err := countRows.Err(); err != nil {
		return nil, errors.Wrap(err, "迭代选项计数失败")
	}
	return overall, nil
}

// Ping 检查主库连接
func (r *MySQLRepository) Ping(ctx context.Context) error {
	return r.masterDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (r *MySQLRepository) Close() {
	if r.masterDB != nil {
		r.masterDB.Close()
	}
	if r.slaveDB != nil && r.slaveDB != r.masterDB {
		r.slaveDB.Close()
	}
}
