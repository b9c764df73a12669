package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/telewell/miniapp-api/internal/domain/telegram"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

// TelegramHandlers serves the credential validation endpoint.
type TelegramHandlers struct {
	Logger *slog.Logger
}

type telegramUserPayload struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	PhotoURL     string `json:"photoUrl,omitempty"`
	IsPremium    bool   `json:"isPremium,omitempty"`
}

type validateResponse struct {
	TelegramID   string              `json:"telegramId"`
	TelegramUser telegramUserPayload `json:"telegramUser"`
}

// Validate confirms the caller's initData verified and their platform account
// exists. The auth middleware has already done both; this handler only shapes
// the response. The platform access token is deliberately absent from it.
func (h *TelegramHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	WriteJSON(w, http.StatusOK, validateResponse{
		TelegramID:   strconv.FormatInt(caller.TelegramUser.ID, 10),
		TelegramUser: toUserPayload(caller.TelegramUser),
	})
}

func toUserPayload(user telegram.User) telegramUserPayload {
	return telegramUserPayload{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LanguageCode: user.LanguageCode,
		PhotoURL:     user.PhotoURL,
		IsPremium:    user.IsPremium,
	}
}
