// Package model はドメインモデルを定義する。
package model

import (
	"regexp"
	"sort"
	"time"
)

// dateLayout はお知らせの日付表現。時刻・タイムゾーン成分を持たない暦日。
const dateLayout = "2006-01-02"

// datePattern は日付の形式検証に使う正規表現。
// 形式のみを検証し、暦として妥当かどうか（月13や日40など）は検証しない。
// 厳密化するとサーバーが受理している日付を拒否しうるため、意図的に緩い。
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidDateFormat は文字列がYYYY-MM-DD形式かどうかを返す。
func IsValidDateFormat(s string) bool {
	return datePattern.MatchString(s)
}

// ParseLocalDate はYYYY-MM-DD文字列をローカル暦日としてパースする。
// UTCとして解釈すると表示上の日付が1日ずれることがあるため、
// 必ず年・月・日の成分からローカルタイムゾーンで構築する。
// 保存された日付文字列を表示・編集するすべての箇所でこの関数を使う。
func ParseLocalDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), nil
}

// FormatLocalDate は時刻のローカル暦日成分をYYYY-MM-DD文字列に変換する。
// ParseLocalDateとの往復で日付が変化しないことが保証される。
func FormatLocalDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Today は今日のローカル暦日をYYYY-MM-DD文字列で返す。
func Today() string {
	return FormatLocalDate(time.Now())
}

// SortOrder はお知らせ一覧の並び順を表す。
type SortOrder string

const (
	// SortAsc は日付昇順（古い順）。
	SortAsc SortOrder = "asc"
	// SortDesc は日付降順（新しい順）。
	SortDesc SortOrder = "desc"
)

// Toggle は昇順と降順を切り替えた並び順を返す。
func (o SortOrder) Toggle() SortOrder {
	if o == SortDesc {
		return SortAsc
	}
	return SortDesc
}

// SortNewsByDate はお知らせ一覧を日付でソートした新しいスライスを返す。
// 元のスライスは変更しない純粋な変換で、ネットワーク呼び出しを伴わない。
// パースできない日付は末尾に寄せる。同一日付同士の相対順序は保証しない。
func SortNewsByDate(items []NewsItem, order SortOrder) []NewsItem {
	sorted := make([]NewsItem, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		ti, errI := ParseLocalDate(sorted[i].Date)
		tj, errJ := ParseLocalDate(sorted[j].Date)
		if errI != nil || errJ != nil {
			// パース不能な日付は末尾へ
			return errI == nil
		}
		if order == SortDesc {
			return ti.After(tj)
		}
		return ti.Before(tj)
	})

	return sorted
}
