package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"telegram-bot-platform/internal/domain"
	"telegram-bot-platform/internal/domain/model"
	"telegram-bot-platform/internal/usecase"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type broadcastCreateRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type linkTelegramRequest struct {
	ChatID int64 `json:"chat_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Handler for creating a new web account.
func registerHandler(accountUC usecase.AccountUseCase, auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		account, err := accountUC.Register(ctx, req.Username, req.Email, req.Password, req.FirstName, req.LastName)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, "username, email and password are required", http.StatusBadRequest)
			case errors.Is(err, domain.ErrAlreadyExists):
				http.Error(w, "username or email already taken", http.StatusConflict)
			default:
				http.Error(w, "Failed to register", http.StatusInternalServerError)
			}
			return
		}

		tokens, err := auth.MintPair(account.ID)
		if err != nil {
			http.Error(w, "Failed to issue tokens", http.StatusInternalServerError)
			return
		}

		response := struct {
			Account *model.Account `json:"account"`
			Tokens  *TokenPair     `json:"tokens"`
		}{Account: account, Tokens: tokens}

		writeJSON(w, http.StatusCreated, response)
	}
}

func loginHandler(accountUC usecase.AccountUseCase, auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		account, err := accountUC.Login(ctx, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCredentials) {
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Failed to login", http.StatusInternalServerError)
			return
		}

		tokens, err := auth.MintPair(account.ID)
		if err != nil {
			http.Error(w, "Failed to issue tokens", http.StatusInternalServerError)
			return
		}

		response := struct {
			Account *model.Account `json:"account"`
			Tokens  *TokenPair     `json:"tokens"`
		}{Account: account, Tokens: tokens}

		writeJSON(w, http.StatusOK, response)
	}
}

func refreshHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		tokens, err := auth.Refresh(req.Refresh)
		if err != nil {
			http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, tokens)
	}
}

// publicHandler is reachable without a token; it reports platform-wide counts.
func publicHandler(directoryUC usecase.DirectoryUseCase, accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		entries, err := directoryUC.Count(ctx)
		if err != nil {
			http.Error(w, "Failed to get counts", http.StatusInternalServerError)
			return
		}
		accounts, err := accountUC.Count(ctx)
		if err != nil {
			http.Error(w, "Failed to get counts", http.StatusInternalServerError)
			return
		}

		response := struct {
			Message        string `json:"message"`
			TelegramUsers  int    `json:"telegram_users"`
			WebAccounts    int    `json:"web_accounts"`
			Authentication string `json:"authentication"`
		}{
			Message:        "public endpoint, no authentication required",
			TelegramUsers:  entries,
			WebAccounts:    accounts,
			Authentication: "none",
		}
		writeJSON(w, http.StatusOK, response)
	}
}

// protectedHandler returns the caller's account plus its linked Telegram
// directory entry, if any.
func protectedHandler(accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accountID := accountIDFrom(ctx)
		account, err := accountUC.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Account no longer exists", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Failed to get account", http.StatusInternalServerError)
			return
		}

		linked, err := accountUC.LinkedEntry(ctx, accountID)
		if err != nil {
			http.Error(w, "Failed to get linked entry", http.StatusInternalServerError)
			return
		}

		response := struct {
			Account  *model.Account        `json:"account"`
			Telegram *model.DirectoryEntry `json:"telegram,omitempty"`
		}{Account: account, Telegram: linked}

		writeJSON(w, http.StatusOK, response)
	}
}

func linkTelegramHandler(accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req linkTelegramRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := accountUC.LinkTelegram(ctx, accountIDFrom(ctx), req.ChatID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "No such Telegram user", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to link", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// telegramUsersListHandler returns a paginated page of the user directory.
// Accepts 'offset' and 'limit' query parameters.
func telegramUsersListHandler(directoryUC usecase.DirectoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		entries, err := directoryUC.List(ctx, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list users", http.StatusInternalServerError)
			return
		}
		total, err := directoryUC.Count(ctx)
		if err != nil {
			http.Error(w, "Failed to count users", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data   []*model.DirectoryEntry `json:"data"`
			Total  int                     `json:"total"`
			Limit  int                     `json:"limit"`
			Offset int                     `json:"offset"`
		}{
			Data:   entries,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func telegramUserGetHandler(directoryUC usecase.DirectoryUseCase, statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
		if err != nil || chatID <= 0 {
			http.Error(w, "Invalid chat ID", http.StatusBadRequest)
			return
		}

		entry, err := directoryUC.GetByChatID(ctx, chatID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			return
		}

		stats, err := statsUC.UserStats(ctx, chatID)
		if err != nil {
			http.Error(w, "Failed to get user stats", http.StatusInternalServerError)
			return
		}

		response := struct {
			Entry *model.DirectoryEntry `json:"entry"`
			Stats *usecase.UserStats    `json:"stats"`
		}{Entry: entry, Stats: stats}

		writeJSON(w, http.StatusOK, response)
	}
}

func broadcastsCreateHandler(broadcastUC usecase.BroadcastUseCase, accountUC usecase.AccountUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req broadcastCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		createdBy := accountIDFrom(ctx)
		if account, err := accountUC.GetByID(ctx, createdBy); err == nil {
			createdBy = account.Username
		}

		job, err := broadcastUC.Create(ctx, req.Title, req.Body, createdBy)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "title and body are required", http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create broadcast", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

func broadcastsListHandler(broadcastUC usecase.BroadcastUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		jobs, err := broadcastUC.List(ctx, offset, limit)
		if err != nil {
			http.Error(w, "Failed to list broadcasts", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data   []*model.BroadcastJob `json:"data"`
			Limit  int                   `json:"limit"`
			Offset int                   `json:"offset"`
		}{Data: jobs, Limit: limit, Offset: offset}

		writeJSON(w, http.StatusOK, response)
	}
}

func broadcastGetHandler(broadcastUC usecase.BroadcastUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		job, err := broadcastUC.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get broadcast", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// broadcastSendHandler triggers delivery. A job that is already sent comes
// back 200 with the stored result; a concurrent execution yields 409.
func broadcastSendHandler(broadcastUC usecase.BroadcastUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		job, err := broadcastUC.Execute(ctx, chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.NotFound(w, r)
			case errors.Is(err, domain.ErrBroadcastInFlight):
				http.Error(w, "Broadcast is already being sent", http.StatusConflict)
			default:
				http.Error(w, "Failed to send broadcast", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// statsHandler serves the platform-wide daily report.
func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		report, err := statsUC.DailyReport(ctx)
		if err != nil {
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
