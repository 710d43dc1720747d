// Package model はドメインモデルを定義する。
package model

// NewsItem は公開サイトに掲載されるお知らせを表す。
// IDはサーバー側で採番され、クライアントが生成することはない。
type NewsItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"` // 改行を含む本文。表示時もそのまま保持される
	Date    string `json:"date"`    // YYYY-MM-DD形式のローカル暦日
}

// ContactInfo はサイトに掲載する連絡先情報を表す。
// このツールでは静的な設定値であり、作成・更新・削除のライフサイクルを持たない。
type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}
