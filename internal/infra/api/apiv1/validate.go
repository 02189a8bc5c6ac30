package apiv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"messmate/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes = 64 << 10
	dateLayout   = "2006-01-02"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report DTO field names as the client sees them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into T and validates it.
func decode[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var payload T
	if r.Body == nil {
		return nil, domain.Validationf("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		return nil, domain.Validationf("malformed JSON body")
	}
	if err := validate.Struct(payload); err != nil {
		return nil, validationError(err)
	}
	return &payload, nil
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.Validationf("%v", err)
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msg := fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed %q (%s)", fe.Field(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return domain.Validationf("%s", strings.Join(msgs, "; "))
}

// parseDate reads a YYYY-MM-DD value in loc. Empty yields the zero time,
// which the use cases read as "today".
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, domain.Validationf("date %q is not YYYY-MM-DD", s)
	}
	return t, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.Validationf("%s must be a non-negative integer", key)
	}
	return n, nil
}
