package admin

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yanizio/oairepo/internal/model"
)

// Error codes of the {"error": {"code", "message"}} body.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeUnauthorized = "UNAUTHORIZED"
	codeConflict     = "CONFLICT"
	codeInternal     = "INTERNAL_ERROR"
)

// maxBody caps request bodies; documents carry whole XML records.
const maxBody = 8 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// fail maps store sentinels onto HTTP statuses.  Unknown errors are logged
// and hidden behind a generic 500.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicate), errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		c.log.Errorw("admin request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, http.StatusText(http.StatusInternalServerError))
	}
}

/*──────────────────────────── input ────────────────────────────────────────*/

var (
	validate = newValidator()

	// Character class of metadataPrefix in OAI-PMH.xsd.  Sets are flat, so
	// a setSpec may not contain the hierarchy delimiter ':' or a '.'.
	prefixRE  = regexp.MustCompile(`^[A-Za-z0-9\-_.!~*'()]+$`)
	setSpecRE = regexp.MustCompile(`^[A-Za-z0-9\-_!~*'()]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("oaiprefix", func(fl validator.FieldLevel) bool {
		return prefixRE.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("setspec", func(fl validator.FieldLevel) bool {
		return setSpecRE.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("wellformed", func(fl validator.FieldLevel) bool {
		return wellFormed(fl.Field().String()) == nil
	})
	return v
}

// decode reads a strict JSON body into dst and validates it.  It writes the
// 400 response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("malformed JSON body: %v", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, describe(err))
		return false
	}
	return true
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	parts := make([]string, len(fields))
	for i, fe := range fields {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts[i] = fe.Field() + ": " + rule
	}
	return strings.Join(parts, "; ")
}

// idParam parses the {id} route parameter.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, codeValidation, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// wellFormed reports the first syntax error in s.
func wellFormed(s string) error {
	dec := xml.NewDecoder(strings.NewReader(s))
	root := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !root {
				return errors.New("no root element")
			}
			return nil
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			root = true
		}
	}
}
