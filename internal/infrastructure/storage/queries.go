package storage

import (
	sq "github.com/Masterminds/squirrel"
)

const (
	sentTable    = "sent_news"
	defaultLimit = 10
	maxLimit     = 100
)

func isSentQuery(sb sq.StatementBuilderType, url string) (string, []interface{}, error) {
	return sb.Select("1").
		From(sentTable).
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
}

func recentQuery(sb sq.StatementBuilderType, limit int, orderBy ...string) (string, []interface{}, error) {
	return sb.Select("url", "title", "sent_at").
		From(sentTable).
		OrderBy(orderBy...).
		Limit(uint64(normalizeLimit(limit))).
		ToSql()
}

func countQuery(sb sq.StatementBuilderType) (string, []interface{}, error) {
	return sb.Select("COUNT(*)").From(sentTable).ToSql()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
