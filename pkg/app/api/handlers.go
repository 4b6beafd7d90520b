package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/inkforge-labs/inkforge/pkg/app/errors"
	apphttp "github.com/inkforge-labs/inkforge/pkg/app/http"
	draftservice "github.com/inkforge-labs/inkforge/pkg/draft/service"
	"github.com/inkforge-labs/inkforge/pkg/ledger"
	"github.com/inkforge-labs/inkforge/pkg/story"
	"github.com/inkforge-labs/inkforge/pkg/storystore"
	storyservice "github.com/inkforge-labs/inkforge/pkg/story/service"
	"github.com/inkforge-labs/inkforge/pkg/user"
	userservice "github.com/inkforge-labs/inkforge/pkg/user/service"
)

// CallerHeader names the header carrying the opaque caller identity. The
// hosting call layer authenticates requests; the core only consumes the
// identity it hands over.
const CallerHeader = "X-Caller-Identity"

type handler struct {
	drafts  *draftservice.DraftService
	stories *storyservice.StoryService
	users   *userservice.UserService
	ledger  *ledger.Ledger
	logger  *zap.Logger
}

func newHandler(
	drafts *draftservice.DraftService,
	stories *storyservice.StoryService,
	users *userservice.UserService,
	ldg *ledger.Ledger,
	logger *zap.Logger,
) *handler {
	return &handler{drafts: drafts, stories: stories, users: users, ledger: ldg, logger: logger}
}

func (h *handler) registerRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", apphttp.HandleError(h.createDraft))
		r.Get("/", apphttp.HandleError(h.listDrafts))
		r.Get("/{id}", apphttp.HandleError(h.getDraft))
		r.Patch("/{id}", apphttp.HandleError(h.updateDraft))
		r.Delete("/{id}", apphttp.HandleError(h.deleteDraft))
		r.Post("/{id}/publish", apphttp.HandleError(h.publishDraft))
		r.Post("/{id}/assistant/expand", apphttp.HandleError(h.expandParagraph))
		r.Post("/{id}/assistant/describe", apphttp.HandleError(h.writeDescription))
	})

	r.Route("/stories", func(r chi.Router) {
		r.Get("/feed", apphttp.HandleError(h.categoryFeed))
		r.Get("/top", apphttp.HandleError(h.topStories))
		r.Get("/author/{author}", apphttp.HandleError(h.authorFeed))
		r.Get("/{id}", apphttp.HandleError(h.getStory))
		r.Post("/{id}/support", apphttp.HandleError(h.supportStory))
		r.Get("/{id}/supporters", apphttp.HandleError(h.supporters))
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/onboard", apphttp.HandleError(h.onboard))
		r.Get("/me", apphttp.HandleError(h.profile))
	})

	r.Route("/ledger", func(r chi.Router) {
		r.Post("/token", apphttp.HandleError(h.createToken))
		r.Delete("/token", apphttp.HandleError(h.deleteToken))
		r.Get("/token", apphttp.HandleError(h.tokenInfo))
		r.Post("/transfer", apphttp.HandleError(h.transfer))
		r.Post("/approve", apphttp.HandleError(h.approve))
		r.Post("/transfer-from", apphttp.HandleError(h.transferFrom))
		r.Post("/stake", apphttp.HandleError(h.stake))
		r.Post("/rebuild", apphttp.HandleError(h.rebuildBalances))
		r.Get("/balance", apphttp.HandleError(h.balanceOf))
		r.Get("/stake", apphttp.HandleError(h.stakeOf))
		r.Get("/supply", apphttp.HandleError(h.totalSupply))
		r.Get("/allowance", apphttp.HandleError(h.allowance))
		r.Get("/metadata", apphttp.HandleError(h.metadata))
		r.Get("/standards", apphttp.HandleError(h.standards))
	})
}

func caller(r *http.Request) (string, error) {
	identity := r.Header.Get(CallerHeader)
	if identity == "" {
		return "", apperrors.UnAuthorizedError(nil, "Caller identity is required")
	}
	return identity, nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, "Invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.BadRequestError(err, "Invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func queryCursor(r *http.Request, name string) (*uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid cursor")
	}
	return &v, nil
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 20
	}
	return limit
}

// mapLedgerError keeps rejection reasons machine-distinguishable over HTTP.
func mapLedgerError(err error) error {
	switch err.(type) {
	case *ledger.BadFeeError, *ledger.GenericError, *ledger.TooOldError, *ledger.CreatedInFutureError:
		return apperrors.BadRequestError(err, err.Error())
	case *ledger.DuplicateError:
		return apperrors.ConflictError(err, err.Error())
	case *ledger.InsufficientFundsError, *ledger.BadBurnError,
		*ledger.AllowanceChangedError, *ledger.InsufficientAllowanceError:
		return apperrors.UnprocessableEntityError(err, err.Error())
	case *ledger.TemporarilyUnavailableError:
		return &apperrors.ServiceError{
			Category: apperrors.CategoryRecovering,
			Message:  err.Error(),
			Err:      err,
		}
	}
	switch {
	case errors.Is(err, ledger.ErrTokenExists):
		return apperrors.ConflictError(err, err.Error())
	case errors.Is(err, ledger.ErrTokenNotCreated):
		return apperrors.ResourceNotFoundError(err, err.Error())
	case errors.Is(err, ledger.ErrNotAuthorized):
		return apperrors.ForbiddenError(err, err.Error())
	default:
		return apperrors.GeneralError(err)
	}
}

// ---- drafts ----

func (h *handler) createDraft(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var args draftservice.SaveDraftArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	d, err := h.drafts.CreateDraft(identity, args)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, d)
}

func (h *handler) updateDraft(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var args draftservice.SaveDraftArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	if err := h.drafts.UpdateDraft(id, identity, args); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handler) publishDraft(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	st, err := h.drafts.PublishDraft(id, identity)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, st)
}

func (h *handler) deleteDraft(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.drafts.DeleteDraft(id, identity); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type draftResponse struct {
	Draft   any    `json:"draft"`
	Content string `json:"content"`
}

func (h *handler) getDraft(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	d, content, err := h.drafts.GetDraft(id, identity)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, draftResponse{Draft: d, Content: content.Body})
}

type draftPage struct {
	Drafts any     `json:"drafts"`
	Cursor *uint64 `json:"cursor,omitempty"`
}

func (h *handler) listDrafts(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	cursor, err := queryCursor(r, "cursor")
	if err != nil {
		return err
	}
	drafts, next, err := h.drafts.ListDrafts(identity, cursor, queryLimit(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, draftPage{Drafts: drafts, Cursor: next})
}

type assistRequest struct {
	Text string `json:"text"`
}

type assistResponse struct {
	Text string `json:"text"`
}

func (h *handler) expandParagraph(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req assistRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	expanded, err := h.drafts.ExpandParagraph(r.Context(), id, identity, req.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, assistResponse{Text: expanded})
}

func (h *handler) writeDescription(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	description, err := h.drafts.WriteStoryDescription(r.Context(), id, identity)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, assistResponse{Text: description})
}

// ---- stories ----

type storyResponse struct {
	Story   any    `json:"story"`
	Content string `json:"content"`
}

func (h *handler) getStory(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	st, content, err := h.stories.GetStory(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, storyResponse{Story: st, Content: content.Body})
}

func (h *handler) categoryFeed(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	var categories []story.Category
	for _, raw := range q["category"] {
		categories = append(categories, story.Category(raw))
	}
	cursors := make([]*uint64, len(categories))
	for i, raw := range q["cursor"] {
		if i >= len(cursors) || raw == "" {
			break
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperrors.BadRequestError(err, "Invalid cursor")
		}
		cursors[i] = &v
	}
	stories, err := h.stories.CategoryFeed(categories, cursors, queryLimit(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, stories)
}

type topPage struct {
	Stories any                     `json:"stories"`
	Cursor  *storystore.ScoreCursor `json:"cursor,omitempty"`
}

func (h *handler) topStories(w http.ResponseWriter, r *http.Request) error {
	var cursor *storystore.ScoreCursor
	q := r.URL.Query()
	if q.Get("cursor_score") != "" || q.Get("cursor_id") != "" {
		score, err := strconv.ParseUint(q.Get("cursor_score"), 10, 64)
		if err != nil {
			return apperrors.BadRequestError(err, "Invalid cursor")
		}
		id, err := strconv.ParseUint(q.Get("cursor_id"), 10, 64)
		if err != nil {
			return apperrors.BadRequestError(err, "Invalid cursor")
		}
		cursor = &storystore.ScoreCursor{Score: score, ID: id}
	}
	stories, next, err := h.stories.TopStories(cursor, queryLimit(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, topPage{Stories: stories, Cursor: next})
}

type storyPage struct {
	Stories any     `json:"stories"`
	Cursor  *uint64 `json:"cursor,omitempty"`
}

func (h *handler) authorFeed(w http.ResponseWriter, r *http.Request) error {
	author := chi.URLParam(r, "author")
	cursor, err := queryCursor(r, "cursor")
	if err != nil {
		return err
	}
	stories, next, err := h.stories.AuthorFeed(author, cursor, queryLimit(r))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, storyPage{Stories: stories, Cursor: next})
}

type supportResponse struct {
	BlockIndex uint64 `json:"block_index"`
}

func (h *handler) supportStory(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req storyservice.SupportRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	block, err := h.stories.SupportStory(id, identity, req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, supportResponse{BlockIndex: block})
}

func (h *handler) supporters(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	supporters, err := h.stories.Supporters(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, supporters)
}

// ---- users ----

func (h *handler) onboard(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var req user.OnboardRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	profile, err := h.users.Onboard(identity, req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, profile)
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	profile, err := h.users.GetProfile(identity)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, profile)
}

// ---- ledger ----

func (h *handler) createToken(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var args ledger.CreateTokenArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	if err := h.ledger.CreateToken(identity, args); err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusCreated, map[string]string{"status": "Token created"})
}

func (h *handler) deleteToken(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	if err := h.ledger.DeleteToken(identity); err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "Token deleted"})
}

type tokenInfoResponse struct {
	Created        bool            `json:"created"`
	Name           string          `json:"name,omitempty"`
	Symbol         string          `json:"symbol,omitempty"`
	Decimals       uint8           `json:"decimals,omitempty"`
	Fee            decimal.Decimal `json:"fee"`
	MintingAccount *ledger.Account `json:"minting_account,omitempty"`
}

func (h *handler) tokenInfo(w http.ResponseWriter, r *http.Request) error {
	created, err := h.ledger.TokenCreated()
	if err != nil {
		return mapLedgerError(err)
	}
	info := tokenInfoResponse{Created: created}
	if created {
		if info.Name, err = h.ledger.Name(); err != nil {
			return mapLedgerError(err)
		}
		if info.Symbol, err = h.ledger.Symbol(); err != nil {
			return mapLedgerError(err)
		}
		if info.Decimals, err = h.ledger.Decimals(); err != nil {
			return mapLedgerError(err)
		}
		if info.Fee, err = h.ledger.Fee(); err != nil {
			return mapLedgerError(err)
		}
		if info.MintingAccount, err = h.ledger.MintingAccount(); err != nil {
			return mapLedgerError(err)
		}
	}
	return writeJSON(w, http.StatusOK, info)
}

func (h *handler) transfer(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var args ledger.TransferArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	block, err := h.ledger.Transfer(identity, args)
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, supportResponse{BlockIndex: block})
}

func (h *handler) approve(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var args ledger.ApproveArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	block, err := h.ledger.Approve(identity, args)
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, supportResponse{BlockIndex: block})
}

func (h *handler) transferFrom(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var args ledger.TransferFromArgs
	if err := decodeBody(r, &args); err != nil {
		return err
	}
	block, err := h.ledger.TransferFrom(identity, args)
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, supportResponse{BlockIndex: block})
}

type stakeRequest struct {
	FromSubaccount []byte          `json:"from_subaccount,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
}

func (h *handler) stake(w http.ResponseWriter, r *http.Request) error {
	identity, err := caller(r)
	if err != nil {
		return err
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	block, err := h.ledger.Stake(identity, req.FromSubaccount, req.Amount)
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, supportResponse{BlockIndex: block})
}

func (h *handler) rebuildBalances(w http.ResponseWriter, r *http.Request) error {
	if _, err := caller(r); err != nil {
		return err
	}
	if err := h.ledger.RebuildBalances(); err != nil {
		return mapLedgerError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type amountResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *handler) balanceOf(w http.ResponseWriter, r *http.Request) error {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		return apperrors.BadRequestError(nil, "Owner is required")
	}
	balance, err := h.ledger.BalanceOf(ledger.AccountOf(owner, nil))
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, amountResponse{Amount: balance})
}

func (h *handler) stakeOf(w http.ResponseWriter, r *http.Request) error {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		identity, err := caller(r)
		if err != nil {
			return err
		}
		owner = identity
	}
	staked, err := h.ledger.StakeOf(owner)
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, amountResponse{Amount: staked})
}

func (h *handler) totalSupply(w http.ResponseWriter, r *http.Request) error {
	supply, err := h.ledger.TotalSupply()
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, amountResponse{Amount: supply})
}

func (h *handler) allowance(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	owner, spender := q.Get("owner"), q.Get("spender")
	if owner == "" || spender == "" {
		return apperrors.BadRequestError(nil, "Owner and spender are required")
	}
	allowance, err := h.ledger.AllowanceOf(ledger.AccountOf(owner, nil), ledger.AccountOf(spender, nil))
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, allowance)
}

func (h *handler) metadata(w http.ResponseWriter, r *http.Request) error {
	metadata, err := h.ledger.Metadata()
	if err != nil {
		return mapLedgerError(err)
	}
	return writeJSON(w, http.StatusOK, metadata)
}

func (h *handler) standards(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, h.ledger.SupportedStandards())
}
