package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/evalysfun/evalys-arcium-bridge-service/internal/apperror"
)

// decodeStrict reads a JSON object into dst. Every field of dst (recursively)
// must be present, unknown fields are rejected and the body is capped at
// maxBytes.
func decodeStrict(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.New(apperror.CodeRequestTooLarge,
				apperror.WithContext(fmt.Sprintf("limit %d bytes", maxBytes)),
				apperror.WithStatusCode(http.StatusRequestEntityTooLarge))
		}
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithStatusCode(http.StatusBadRequest))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return malformed(err)
	}
	if err := requireFields(raw, reflect.TypeOf(dst).Elem(), ""); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return malformed(err)
	}
	return nil
}

// requireFields checks that obj has every json-tagged field of t, descending
// into nested structs.
func requireFields(obj map[string]json.RawMessage, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		path := prefix + name
		val, ok := obj[name]
		if !ok || string(val) == "null" {
			return apperror.Unprocessable(apperror.CodeRequiredField, path+": field required", nil)
		}

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}

		var nested map[string]json.RawMessage
		if err := json.Unmarshal(val, &nested); err != nil {
			return apperror.Unprocessable(apperror.CodeInvalidFormat, path+": must be an object", err)
		}
		if err := requireFields(nested, ft, path+"."); err != nil {
			return err
		}
	}
	return nil
}

// malformed reports a decode failure without echoing input values.
func malformed(err error) error {
	detail := "malformed JSON body"

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		detail = fmt.Sprintf("%s: must be %s", typeErr.Field, typeErr.Type)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		detail = strings.TrimPrefix(err.Error(), "json: ") + ": extra fields not permitted"
	}

	return apperror.Unprocessable(apperror.CodeInvalidFormat, detail, err)
}
