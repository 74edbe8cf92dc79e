package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/landsales/salesops/internal/domain"
	"github.com/sirupsen/logrus"
)

var errInvalidBody = errors.New("invalid request body")

type okResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type errorResponse struct {
	OK        bool             `json:"ok"`
	ErrorKind domain.ErrorKind `json:"errorKind"`
	Message   string           `json:"message"`
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnitNotAvailable,
		domain.KindHoldAlreadyExists,
		domain.KindHoldConflict,
		domain.KindInvalidTransition,
		domain.KindExpiredHold:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body, err := json.Marshal(payload)
	if err != nil {
		_, _ = w.Write([]byte(`{"ok":false,"errorKind":"Internal","message":"internal error"}`))
		return
	}
	_, _ = w.Write(body)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, okResponse{OK: true, Data: data})
}

func writeErrorKind(w http.ResponseWriter, status int, kind domain.ErrorKind, msg string) {
	writeJSON(w, status, errorResponse{ErrorKind: kind, Message: msg})
}

// writeError classifies err and renders the failure envelope. Internal
// errors are logged and their message is not exposed.
func writeError(w http.ResponseWriter, logger *logrus.Logger, r *http.Request, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		msg = "internal error"
	}
	writeErrorKind(w, statusForKind(kind), kind, msg)
}

// decodeJSON reads the body into dst and runs struct validation. An empty
// body is accepted when optional is set.
func decodeJSON(r *http.Request, v *validator.Validate, dst any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return fmt.Errorf("%w: %v", errInvalidBody, err)
		}
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return validationError{details: formatValidationErrors(verrs)}
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

type validationError struct {
	details []string
}

func (e validationError) Error() string {
	return strings.Join(e.details, "; ")
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("field '%s' is required", err.Field()))
		case "max":
			out = append(out, fmt.Sprintf("field '%s' must not exceed %s", err.Field(), err.Param()))
		case "min":
			out = append(out, fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param()))
		case "gtfield":
			out = append(out, fmt.Sprintf("field '%s' must be after '%s'", err.Field(), err.Param()))
		default:
			out = append(out, fmt.Sprintf("field '%s' failed on the '%s' rule", err.Field(), err.Tag()))
		}
	}
	return out
}

// writeDecodeError renders a body or validation failure as Validation.
func writeDecodeError(w http.ResponseWriter, err error) {
	writeErrorKind(w, http.StatusBadRequest, domain.KindValidation, err.Error())
}
