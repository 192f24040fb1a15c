package commands

import (
	"errors"

	"pfm/internal/core"
)

// Confirmation texts for the delete action.
const (
	DeleteConfirmTitle   = "削除確認"
	DeleteConfirmMessage = "この取引を削除しますか？"
)

// Success texts shown after a mutation.
const (
	CreatedMessage = "取引を保存しました"
	DeletedMessage = "取引を削除しました"
)

// Message returns the user-facing text for a command error.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingFields):
		return "金額とカテゴリを入力してください"
	case errors.Is(err, ErrInvalidAmount):
		return "正しい金額を入力してください"
	case errors.Is(err, ErrInvalidDate):
		return "正しい日付を入力してください"
	case errors.Is(err, core.ErrInvalidKind):
		return "収入か支出を選択してください"
	case errors.Is(err, ErrSubmissionInFlight):
		return "処理中です。しばらくお待ちください"
	case errors.Is(err, ErrDeleteFailed):
		return "取引の削除に失敗しました"
	default:
		return "取引の保存に失敗しました"
	}
}
