package feed

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/snapfeed/service/internal/auth"
	"github.com/snapfeed/service/internal/response"
)

// Handler holds HTTP handlers for feed endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new feed Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createItemRequest struct {
	Caption string `json:"caption" example:"sunset over the bay"`
	URL     string `json:"url"     example:"img/123.png"`
}

type updateItemRequest struct {
	Caption *string `json:"caption,omitempty" example:"sunset over the bay"`
	URL     *string `json:"url,omitempty"     example:"img/123.png"`
}

type uploadURLData struct {
	URL       string `json:"url" example:"https://storage.example.com/media/img.png?X-Amz-Signature=..."`
	ExpiresAt string `json:"expiresAt" example:"2026-02-27T14:53:34Z"`
}

// List godoc
//
//	@Summary		List feed items
//	@Description	Returns all feed items, most recently created first. Each item carries a freshly signed download URL.
//	@Tags			feed
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=[]Item}
//	@Failure		500	{object}	response.Envelope
//	@Router			/items [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	if items == nil {
		items = []Item{}
	}
	response.OK(w, items)
}

// Get godoc
//
//	@Summary		Get feed item
//	@Description	Returns a single feed item by id with a freshly signed download URL.
//	@Tags			feed
//	@Produce		json
//	@Param			id	path		int	true	"Item id"
//	@Success		200	{object}	response.Envelope{data=Item}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/items/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	it, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, it)
}

// Create godoc
//
//	@Summary		Create feed item
//	@Description	Persists metadata for an already-uploaded object. The url field is the key returned from the signed-url flow.
//	@Tags			feed
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createItemRequest	true	"Caption and object key"
//	@Success		201		{object}	response.Envelope{data=Item}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/items [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthenticated")
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	it, err := h.svc.Create(r.Context(), ident, req.Caption, req.URL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, it)
}

// Update godoc
//
//	@Summary		Update feed item
//	@Description	Applies a partial patch to a feed item. At least one of caption or url must be present.
//	@Tags			feed
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int					true	"Item id"
//	@Param			request	body		updateItemRequest	true	"Fields to update"
//	@Success		200		{object}	response.Envelope{data=Item}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/items/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthenticated")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	it, err := h.svc.Update(r.Context(), ident, id, Patch{Caption: req.Caption, ObjectKey: req.URL})
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, it)
}

// SignedURL godoc
//
//	@Summary		Issue upload URL
//	@Description	Issues a presigned PUT URL so the client can upload the file directly to object storage under fileName.
//	@Tags			feed
//	@Produce		json
//	@Security		BearerAuth
//	@Param			fileName	path		string	true	"Object key to upload under"
//	@Success		201			{object}	response.Envelope{data=uploadURLData}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/items/signed-url/{fileName} [get]
func (h *Handler) SignedURL(w http.ResponseWriter, r *http.Request) {
	ident, ok := auth.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthenticated")
		return
	}

	grant, err := h.svc.IssueUploadTarget(r.Context(), ident, chi.URLParam(r, "fileName"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, grant)
}

// writeError maps service errors onto HTTP responses. Upstream failures are
// not distinguished from other internal errors in the client-visible body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "item not found")
	default:
		response.InternalError(w)
	}
}
