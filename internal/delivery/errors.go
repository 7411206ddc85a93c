package delivery

import (
	"errors"
	"fmt"
)

// Kind 用例錯誤分類
// HTTP 層據此決定狀態碼，不需要解析錯誤字串
type Kind int

const (
	// KindUnknown 未分類錯誤（對應 500）
	KindUnknown Kind = iota
	// KindNotFound 訊息、釘選、用戶或對話不存在
	KindNotFound
	// KindForbidden 非發送者編輯/刪除、非參與者釘選
	KindForbidden
	// KindInvalidArgument 內容為空或超長、自己傳給自己、缺少好友關係
	KindInvalidArgument
	// KindConflict 重複釘選
	KindConflict
	// KindUnavailable 推播或總線傳輸失敗
	// 持久化已經成功，這類錯誤只記日誌，不會讓用例失敗
	KindUnavailable
)

// Error 帶分類的用例錯誤
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error 實作 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// newError 創建分類錯誤
func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrapError 包裝底層錯誤
func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 取出錯誤的分類，非分類錯誤回傳 KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
