package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Kerhoff/chcemmat/internal/bucket"
	"github.com/Kerhoff/chcemmat/internal/i18n"
	"github.com/Kerhoff/chcemmat/internal/models"
	"github.com/Kerhoff/chcemmat/internal/service"
)

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.svc.Identity.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.svc.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.respondErr(w, r, errUnauthorized)
		return
	}

	res := s.svc.Identity.SignOut(r.Context(), token)
	s.respondJSON(w, http.StatusOK, map[string]bool{"acknowledged": res.Acknowledged})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if sessionFrom(r.Context()) == nil {
		s.respondErr(w, r, errUnauthorized)
		return
	}
	var req passwordRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := s.svc.Identity.UpdatePassword(r.Context(), bearerToken(r), req.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Identity.GetCurrentUser(r.Context(), bearerToken(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if view == nil {
		s.respondErr(w, r, errUnauthorized)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if !s.decode(w, r, &upd) {
		return
	}

	p, err := s.svc.Profiles.Update(r.Context(), userID(r), upd)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

// ---------------------------------------------------------------------------
// Wishlists
// ---------------------------------------------------------------------------

type wishlistResponse struct {
	*models.Wishlist
	ShareURL string `json:"share_url"`
}

type createWishlistRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	CoverImageURL *string `json:"cover_image_url"`
	IsPublic      *bool   `json:"is_public"`
}

func (s *Server) wishlistResponse(wl *models.Wishlist) wishlistResponse {
	return wishlistResponse{Wishlist: wl, ShareURL: s.svc.ShareURL(wl)}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.Dashboard(r.Context(), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lists)
}

func (s *Server) handleListWishlists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.Wishlists.ListByUser(r.Context(), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	out := make([]wishlistResponse, 0, len(lists))
	for _, wl := range lists {
		out = append(out, s.wishlistResponse(wl))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateWishlist(w http.ResponseWriter, r *http.Request) {
	var req createWishlistRequest
	if !s.decode(w, r, &req) {
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	created, err := s.svc.Wishlists.Create(r.Context(), &models.Wishlist{
		UserID:        userID(r),
		Title:         req.Title,
		Description:   strings.TrimSpace(req.Description),
		CoverImageURL: req.CoverImageURL,
		IsPublic:      isPublic,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, s.wishlistResponse(created))
}

func (s *Server) handleUpdateWishlist(w http.ResponseWriter, r *http.Request) {
	var upd models.WishlistUpdate
	if !s.decode(w, r, &upd) {
		return
	}

	updated, err := s.svc.Wishlists.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.wishlistResponse(updated))
}

func (s *Server) handleDeleteWishlist(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Wishlists.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublicWishlist(w http.ResponseWriter, r *http.Request) {
	shared, err := s.svc.PublicWishlist(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, shared)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type createItemRequest struct {
	Title        string           `json:"title"`
	Description  *string          `json:"description"`
	Price        *decimal.Decimal `json:"price"`
	ProductURL   *string          `json:"product_url"`
	AffiliateURL *string          `json:"affiliate_url"`
	ImageURL     *string          `json:"image_url"`
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Items.ListByWishlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !s.decode(w, r, &req) {
		return
	}

	item := &models.Item{
		WishlistID:   chi.URLParam(r, "id"),
		Title:        req.Title,
		Description:  req.Description,
		ProductURL:   req.ProductURL,
		AffiliateURL: req.AffiliateURL,
		ImageURL:     req.ImageURL,
	}
	if req.Price != nil {
		item.Price = decimal.NewNullDecimal(*req.Price)
	}

	created, err := s.svc.Items.Create(r.Context(), item)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var upd models.ItemUpdate
	if !s.decode(w, r, &upd) {
		return
	}

	updated, err := s.svc.Items.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Items.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var in service.ReserveInput
	if r.ContentLength != 0 && !s.decode(w, r, &in) {
		return
	}
	in.ItemID = chi.URLParam(r, "id")

	res, err := s.svc.Reservations.Reserve(r.Context(), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.GetReservationByItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]*models.Reservation{"reservation": res})
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reservations.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Contact form
// ---------------------------------------------------------------------------

type contactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID string `json:"email_id"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var msg models.ContactMessage
	if !s.decode(w, r, &msg) {
		return
	}

	id, err := s.svc.Contact.Submit(r.Context(), msg)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	lang := i18n.Negotiate(r.Header.Get("Accept-Language"))
	s.respondJSON(w, http.StatusOK, contactResponse{
		Success: true,
		Message: i18n.T(lang, i18n.MsgContactSent),
		EmailID: id,
	})
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// multipartOverhead leaves room for form boundaries next to the file
const multipartOverhead = 64 << 10

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		s.respondErr(w, r, &service.Error{Kind: service.KindStore, Message: "image uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, bucket.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(bucket.MaxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, r, bucket.ErrTooLarge)
			return
		}
		s.respondErr(w, r, badRequest("expected a multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondErr(w, r, badRequest("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		folder = bucket.FolderItems
	}

	url, err := s.images.UploadImage(r.Context(), folder, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
