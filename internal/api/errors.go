package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/chcemmat/internal/auth"
	"github.com/Kerhoff/chcemmat/internal/bucket"
	"github.com/Kerhoff/chcemmat/internal/i18n"
	"github.com/Kerhoff/chcemmat/internal/repository"
	"github.com/Kerhoff/chcemmat/internal/service"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

var errUnauthorized = &service.Error{Kind: service.KindUnauthorized, Message: "sign in required"}

func badRequest(msg string) error {
	return &service.Error{Kind: service.KindInvalid, Message: msg}
}

// classify maps an error to its HTTP status, message key and public code
func classify(err error) (status int, key, code string) {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindAlreadyReserved:
			return http.StatusConflict, i18n.MsgAlreadyReserved, string(se.Kind)
		case service.KindForbidden:
			return http.StatusForbidden, i18n.MsgForbidden, string(se.Kind)
		case service.KindInvalid:
			return http.StatusBadRequest, i18n.MsgInvalid, string(se.Kind)
		case service.KindUnauthorized:
			return http.StatusUnauthorized, i18n.MsgUnauthorized, string(se.Kind)
		case service.KindNotFound:
			return http.StatusNotFound, i18n.MsgNotFound, string(se.Kind)
		case service.KindReservationIncomplete:
			return http.StatusServiceUnavailable, i18n.MsgReservationIncomplete, string(se.Kind)
		case service.KindInconsistentState:
			return http.StatusInternalServerError, i18n.MsgInconsistentState, string(se.Kind)
		case service.KindStore:
			switch se.Code {
			case repository.CodeInsufficientPrivilege:
				return http.StatusForbidden, i18n.MsgForbidden, string(service.KindForbidden)
			case repository.CodeNoRows:
				return http.StatusNotFound, i18n.MsgNotFound, string(service.KindNotFound)
			case repository.CodeForeignKeyViolation, repository.CodeCheckViolation, repository.CodeInvalidTextRepresentation:
				return http.StatusBadRequest, i18n.MsgInvalid, string(service.KindInvalid)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return http.StatusGatewayTimeout, i18n.MsgStore, string(se.Kind)
			}
			return http.StatusBadGateway, i18n.MsgStore, string(se.Kind)
		}
	}

	var ae *auth.Error
	if errors.As(err, &ae) {
		switch ae.Code {
		case auth.CodeInvalidCredentials, auth.CodeSessionNotFound:
			return http.StatusUnauthorized, i18n.MsgUnauthorized, ae.Code
		case auth.CodeUserAlreadyExists:
			return http.StatusConflict, i18n.MsgInvalid, ae.Code
		default:
			return http.StatusBadRequest, i18n.MsgInvalid, ae.Code
		}
	}

	switch {
	case errors.Is(err, bucket.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, i18n.MsgInvalid, "too_large"
	case errors.Is(err, bucket.ErrUnsupportedType), errors.Is(err, bucket.ErrUnknownFolder):
		return http.StatusBadRequest, i18n.MsgInvalid, string(service.KindInvalid)
	}

	return http.StatusInternalServerError, i18n.MsgInternal, "internal"
}

// detail returns the part of err that is safe to show to the caller
func detail(err error) string {
	var se *service.Error
	if errors.As(err, &se) && se.Kind == service.KindInvalid {
		return se.Message
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, bucket.ErrTooLarge) || errors.Is(err, bucket.ErrUnsupportedType) || errors.Is(err, bucket.ErrUnknownFolder) {
		return err.Error()
	}
	return ""
}

// respondErr writes err as a localized JSON error
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, key, code := classify(err)

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	lang := i18n.Negotiate(r.Header.Get("Accept-Language"))
	s.respondJSON(w, status, errorResponse{
		Error:  i18n.T(lang, key),
		Code:   code,
		Detail: detail(err),
	})
}
