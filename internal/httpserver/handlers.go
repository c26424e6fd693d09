package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/TellerWorksLab/teller/pkg/teller"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	headerUserID         = "userid"
	headerLockToken      = "locktoken"
	headerIdempotencyKey = "idempotencykey"

	contextKeyProfile = "profile"
)

type httpHandler struct {
	logger *zap.Logger
	store  teller.Store
	locks  *teller.LockManager
	writer *teller.LedgerWriter
	engine *teller.BalanceEngine
}

// requireProfile resolves the caller from the userid header. Unknown or
// malformed callers are rejected before any handler runs.
func (handler *httpHandler) requireProfile(ctx *gin.Context) {
	rawUserID, err := strconv.ParseInt(ctx.GetHeader(headerUserID), 10, 64)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse("invalid_user_header", messageInvalidUserHeader))
		return
	}
	userID, err := teller.NewUserID(rawUserID)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse("invalid_user_header", messageInvalidUserHeader))
		return
	}
	user, err := handler.store.GetUser(ctx.Request.Context(), userID)
	if errors.Is(err, teller.ErrUserNotFound) {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if err != nil {
		handler.logger.Error("profile lookup failed", zap.Error(err))
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.Set(contextKeyProfile, user)
	ctx.Next()
}

func (handler *httpHandler) handleCreateUser(ctx *gin.Context) {
	var request createUserRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageMissingUserField))
		return
	}
	input := teller.UserInput{
		UserName:  request.UserName,
		FirstName: request.FirstName,
		LastName:  request.LastName,
		Email:     request.Email,
		Password:  request.Password,
	}
	if err := input.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageMissingUserField))
		return
	}
	user, err := handler.store.CreateUser(ctx.Request.Context(), input)
	if errors.Is(err, teller.ErrDuplicateUser) {
		ctx.JSON(http.StatusBadRequest, errorResponse("duplicate_user", "User already exists."))
		return
	}
	if err != nil {
		handler.logger.Error("create user failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusCreated, userPayloadFrom(user))
}

func (handler *httpHandler) handleCreateAccount(ctx *gin.Context) {
	profile := handler.profile(ctx)
	var request createAccountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.AccountName == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageAccountMustHaveName))
		return
	}
	account, err := handler.store.CreateAccount(ctx.Request.Context(), profile.ID, request.AccountName)
	if err != nil {
		handler.logger.Error("create account failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusCreated, accountPayloadFrom(account))
}

func (handler *httpHandler) handleListAccounts(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accounts, err := handler.store.ListAccounts(ctx.Request.Context(), profile.ID)
	if err != nil {
		handler.logger.Error("list accounts failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	payloads := make([]accountPayload, 0, len(accounts))
	for _, account := range accounts {
		payloads = append(payloads, accountPayloadFrom(account))
	}
	ctx.JSON(http.StatusOK, payloads)
}

func (handler *httpHandler) handleGetAccount(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accountID, ok := handler.accountID(ctx)
	if !ok {
		return
	}
	account, err := handler.store.GetOwnedAccount(ctx.Request.Context(), accountID, profile.ID)
	if errors.Is(err, teller.ErrAccountNotFound) {
		ctx.JSON(http.StatusNotFound, errorResponse("account_not_found", "Account does not exist."))
		return
	}
	if err != nil {
		handler.logger.Error("get account failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	entries, err := handler.store.ListEntries(ctx.Request.Context(), accountID)
	if err != nil {
		handler.logger.Error("list entries failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	payload := accountDetailPayload{
		accountPayload: accountPayloadFrom(account),
		Transactions:   make([]entryPayload, 0, len(entries)),
	}
	for _, entry := range entries {
		payload.Transactions = append(payload.Transactions, entryPayloadFrom(entry))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleLockAccount(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accountID, ok := handler.accountID(ctx)
	if !ok {
		return
	}
	result, err := handler.locks.Acquire(ctx.Request.Context(), accountID, profile.ID)
	if err != nil {
		handler.logger.Error("lock acquire failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if result.Status != teller.AcquireStatusAcquired {
		ctx.JSON(http.StatusBadRequest, errorResponse(result.Status.String(), acquireMessage(result.Status)))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"lockToken": result.Token.String()})
}

func (handler *httpHandler) handleUnlockAccount(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accountID, ok := handler.accountID(ctx)
	if !ok {
		return
	}
	token, ok := handler.lockToken(ctx)
	if !ok {
		return
	}
	status, err := handler.locks.Release(ctx.Request.Context(), accountID, profile.ID, token)
	if err != nil {
		handler.logger.Error("lock release failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if status != teller.ReleaseStatusReleased {
		ctx.JSON(http.StatusBadRequest, errorResponse(status.String(), releaseMessage(status)))
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleCloseAccount(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accountID, ok := handler.accountID(ctx)
	if !ok {
		return
	}
	token, ok := handler.lockToken(ctx)
	if !ok {
		return
	}
	status, err := handler.engine.CloseAccount(ctx.Request.Context(), accountID, profile.ID, token)
	if err != nil {
		handler.logger.Error("close account failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if status != teller.CloseStatusSuccess {
		ctx.JSON(http.StatusBadRequest, errorResponse(status.String(), closeMessage(status)))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Account closed."})
}

// handleCreateTransaction runs the two-step mutating flow: record the
// intent under the idempotency key first, then apply the balance
// adjustment under the supplied lock token.
func (handler *httpHandler) handleCreateTransaction(ctx *gin.Context) {
	profile := handler.profile(ctx)
	accountID, ok := handler.accountID(ctx)
	if !ok {
		return
	}
	token, ok := handler.lockToken(ctx)
	if !ok {
		return
	}
	idempotencyKey, err := teller.NewIdempotencyKey(ctx.GetHeader(headerIdempotencyKey))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageBadRequest))
		return
	}
	var request createTransactionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageBadRequest))
		return
	}
	transactionType, err := teller.ParseTransactionType(request.TransactionType)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageBadRequest))
		return
	}
	amount, err := teller.NewAmount(request.Amount)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", messageAmountMustExceedZero))
		return
	}
	entryInput, err := teller.NewEntryInput(accountID, profile.ID, transactionType, amount, idempotencyKey)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", messageBadRequest))
		return
	}

	submitResult, err := handler.writer.Submit(ctx.Request.Context(), entryInput)
	if err != nil {
		handler.logger.Error("ledger submit failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if submitResult.Status == teller.SubmitStatusAlreadyExists {
		// Duplicate suppression: the original submission already recorded
		// this intent, so no balance effect happens here.
		ctx.JSON(http.StatusOK, gin.H{"status": messageAlreadyExists})
		return
	}

	adjustResult, err := handler.engine.Adjust(ctx.Request.Context(), accountID, profile.ID, token, transactionType, amount)
	if err != nil {
		handler.logger.Error("balance adjust failed", zap.Error(err))
		ctx.Status(http.StatusInternalServerError)
		return
	}
	if adjustResult.Status != teller.AdjustStatusSuccess {
		response := errorResponse(adjustResult.Status.String(), adjustMessage(adjustResult.Status))
		if adjustResult.Balance != nil {
			response["balance"] = *adjustResult.Balance
		}
		ctx.JSON(http.StatusBadRequest, response)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"balance": *adjustResult.Balance})
}

func (handler *httpHandler) profile(ctx *gin.Context) teller.User {
	value, _ := ctx.Get(contextKeyProfile)
	user, _ := value.(teller.User)
	return user
}

func (handler *httpHandler) accountID(ctx *gin.Context) (teller.AccountID, bool) {
	raw, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_path", messageInvalidAccountPath))
		return teller.AccountID{}, false
	}
	accountID, err := teller.NewAccountID(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_account_path", messageInvalidAccountPath))
		return teller.AccountID{}, false
	}
	return accountID, true
}

func (handler *httpHandler) lockToken(ctx *gin.Context) (teller.LockToken, bool) {
	token, err := teller.NewLockToken(ctx.GetHeader(headerLockToken))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_lock_token", messageInvalidLockToken))
		return teller.LockToken{}, false
	}
	return token, true
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error":   code,
		"message": message,
	}
}

type createUserRequest struct {
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type createAccountRequest struct {
	AccountName string `json:"accountName"`
}

type createTransactionRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transactionType"`
}

type userPayload struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"userName"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func userPayloadFrom(user teller.User) userPayload {
	return userPayload{
		ID:        user.ID.Int64(),
		UserName:  user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

type accountPayload struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	AccountName string          `json:"accountName"`
	Balance     decimal.Decimal `json:"balance"`
	ClosedAt    *time.Time      `json:"closedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func accountPayloadFrom(account teller.Account) accountPayload {
	return accountPayload{
		ID:          account.ID.Int64(),
		UserID:      account.UserID.Int64(),
		AccountName: account.Name,
		Balance:     account.Balance,
		ClosedAt:    account.ClosedAt,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
}

type accountDetailPayload struct {
	accountPayload
	Transactions []entryPayload `json:"transactions"`
}

type entryPayload struct {
	ID              int64           `json:"id"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func entryPayloadFrom(entry teller.Entry) entryPayload {
	return entryPayload{
		ID:              entry.ID,
		TransactionType: entry.Type.String(),
		Amount:          entry.Amount,
		CreatedAt:       entry.CreatedAt,
	}
}
