package storefront

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koffiee-storefront/internal/backend"
	"github.com/noah-isme/koffiee-storefront/internal/cart"
	"github.com/noah-isme/koffiee-storefront/internal/catalog"
	"github.com/noah-isme/koffiee-storefront/internal/checkout"
	"github.com/noah-isme/koffiee-storefront/internal/common"
	"github.com/noah-isme/koffiee-storefront/internal/lock"
	"github.com/noah-isme/koffiee-storefront/internal/session"
	"github.com/noah-isme/koffiee-storefront/internal/voucher"
)

// catalogMaxAge is how long shells may cache non-empty catalog reads, in
// seconds. Empty lists may be a degraded snapshot and stay uncached.
const catalogMaxAge = 60

// Handler exposes the storefront over HTTP.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Middlewares are optional per-route wrappers.
type Middlewares struct {
	// VoucherLimit guards code entry against guessing.
	VoucherLimit func(http.Handler) http.Handler
	// Idempotency wraps checkout.
	Idempotency func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

// Mount registers the storefront routes on r.
func (h *Handler) Mount(r chi.Router, mw Middlewares) {
	if mw.VoucherLimit == nil {
		mw.VoucherLimit = passthrough
	}
	if mw.Idempotency == nil {
		mw.Idempotency = passthrough
	}
	r.Get("/menu", h.Menu)
	r.Get("/menu/{itemID}", h.MenuItem)
	r.Get("/categories", h.Categories)
	r.Get("/promos", h.Promos)
	r.Get("/shop", h.Shop)

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/", h.GetSession)
		s.Post("/items", h.AddItem)
		s.Patch("/items/{key}", h.UpdateItem)
		s.Delete("/items/{key}", h.RemoveItem)
		s.With(mw.VoucherLimit).Post("/voucher", h.ApplyVoucher)
		s.Post("/discount", h.SelectDiscount)
		s.Delete("/discount", h.ClearDiscount)
		s.With(mw.Idempotency).Post("/checkout", h.Checkout)
	})
}

func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	items := h.Svc.Menu(r.Context(), r.URL.Query().Get("category"))
	if len(items) > 0 {
		common.Public(w, catalogMaxAge)
	}
	common.Data(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) MenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid menu item id", nil)
		return
	}
	item, err := h.Svc.MenuItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Public(w, catalogMaxAge)
	common.Data(w, http.StatusOK, item)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.Svc.Categories(r.Context())
	if len(categories) > 0 {
		common.Public(w, catalogMaxAge)
	}
	common.Data(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) Promos(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.Svc.Promos(r.Context()))
}

func (h *Handler) Shop(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.Svc.ShopView())
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Session(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

type addItemRequest struct {
	MenuItemID int64   `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int     `json:"quantity" validate:"min=1,max=99"`
	ExtraIDs   []int64 `json:"extra_ids" validate:"max=20,dive,gt=0"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.apply(w, r, session.AddItem{ItemID: req.MenuItemID, Quantity: req.Quantity, ExtraIDs: req.ExtraIDs})
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"max=99"`
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.apply(w, r, session.SetQuantity{Key: chi.URLParam(r, "key"), Quantity: req.Quantity})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, session.RemoveLine{Key: chi.URLParam(r, "key")})
}

type voucherRequest struct {
	Code string `json:"code" validate:"max=64"`
}

func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.apply(w, r, session.ApplyCode{Code: req.Code})
}

type discountRequest struct {
	DiscountID int64 `json:"discount_id" validate:"required,gt=0"`
}

func (h *Handler) SelectDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.apply(w, r, session.SelectDiscount{ID: req.DiscountID})
}

func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, session.ClearDiscount{})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := common.ReadJSON(r, &form); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.Svc.Checkout(r.Context(), sessionID(r), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, result)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, action session.Action) {
	view, err := h.Svc.Apply(r.Context(), sessionID(r), action)
	if err != nil {
		var discountErr *session.DiscountError
		if errors.As(err, &discountErr) {
			code := common.CodeInvalidVoucher
			if errors.Is(err, voucher.ErrMinimumPurchase) {
				code = common.CodeMinPurchaseNotMet
			}
			common.JSONError(w, http.StatusUnprocessableEntity, code, discountErr.Message, map[string]any{"session": view})
			return
		}
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "sessionID"))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		appErr  *common.AppError
		formErr *checkout.ValidationError
	)
	switch {
	case errors.As(err, &appErr):
		common.WriteError(w, err)
	case errors.As(err, &formErr):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidationFailed, formErr.Message(), formErr.Fields)
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "session not found", nil)
	case errors.Is(err, catalog.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "menu item not found", nil)
	case errors.Is(err, cart.ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart line not found", nil)
	case errors.Is(err, voucher.ErrDiscountNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "discount not found", nil)
	case errors.Is(err, catalog.ErrUnknownExtra), errors.Is(err, cart.ErrInvalidQuantity):
		common.JSONError(w, http.StatusUnprocessableEntity, common.CodeValidationFailed, err.Error(), nil)
	case errors.Is(err, backend.ErrOrderSubmission):
		common.JSONError(w, http.StatusBadGateway, common.CodeBackendUnavailable, checkout.MsgBackendFailure, nil)
	case errors.Is(err, lock.ErrTimeout):
		common.JSONError(w, http.StatusConflict, common.CodeSessionBusy, "session is busy, retry shortly", nil)
	default:
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("storefront_request_failed")
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
