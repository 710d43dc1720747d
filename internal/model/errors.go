// Package model はドメインモデルを定義する。
package model

import "fmt"

// ErrorKind はAPIErrorの種別を表す判別子。
type ErrorKind string

const (
	// ErrorKindValidation は送信前のローカル検証で発生したエラー。
	// ネットワークには一切到達しない。
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindAuth はセッション欠落・失効による認証エラー（401）。
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindRemote はサーバーが拒否した業務エラー（401以外の4xx/5xx）。
	ErrorKindRemote ErrorKind = "remote"
	// ErrorKindNetwork は到達不能・不正レスポンス等のトランスポートエラー。
	ErrorKindNetwork ErrorKind = "network"
)

// APIError はAPI呼び出しの失敗を表す統一エラー型。
// ローカル検証エラーとトランスポートエラーは同一のエラーチャネルで
// 伝搬され、呼び出し側はKindとStatusで分岐する。
type APIError struct {
	Kind    ErrorKind
	Status  int    // HTTPステータスコード。ネットワークエラーでは0
	Message string // ユーザーに表示するメッセージ
	Details any    // サーバーのエラーボディ等の付随情報
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("[%s] %d: %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// IsSessionExpired はセッション失効（401）を表すエラーかどうかを返す。
// 管理画面フローで特別扱いされる唯一のステータス。
func (e *APIError) IsSessionExpired() bool {
	return e.Status == 401
}

// NewValidationError はローカル検証エラーを生成する。
// 合成ステータス400を持ち、ネットワーク呼び出しの前に返される。
func NewValidationError(message string) *APIError {
	return &APIError{
		Kind:    ErrorKindValidation,
		Status:  400,
		Message: message,
	}
}

// NewAuthError は認証エラー（401）を生成する。
func NewAuthError(message string) *APIError {
	return &APIError{
		Kind:    ErrorKindAuth,
		Status:  401,
		Message: message,
	}
}

// NewRemoteError はサーバー起因の業務エラーを生成する。
func NewRemoteError(status int, message string, details any) *APIError {
	return &APIError{
		Kind:    ErrorKindRemote,
		Status:  status,
		Message: message,
		Details: details,
	}
}

// NewNetworkError はトランスポートエラーを生成する。
func NewNetworkError(message string) *APIError {
	return &APIError{
		Kind:    ErrorKindNetwork,
		Message: message,
	}
}

// NewErrorFromStatus はHTTPステータスコードからAPIErrorを生成する。
// 401は認証エラー、それ以外はリモートエラーに分類される。
func NewErrorFromStatus(status int, message string, details any) *APIError {
	if status == 401 {
		return &APIError{
			Kind:    ErrorKindAuth,
			Status:  status,
			Message: message,
			Details: details,
		}
	}
	return NewRemoteError(status, message, details)
}
