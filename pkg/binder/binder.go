package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/booklook/booklook/pkg/errcodes"
	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder is a custom struct that implements the Echo Binder interface. It binds
// to a struct, uses mold to clean up the params, and validator to validate
// them.
type Binder struct {
	queryDecoder *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

// New initializes a new Binder instance with the appropriate validation
// functions registered.
func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	conform := modifiers.New()
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation(notblank, notBlankValidator); err != nil {
		return nil, errors.WithStack(err)
	}

	return &Binder{queryDecoder, conform, validate}, nil
}

// Bind binds, modifies, and validates payloads against the given struct.
// Bodies must be JSON. GET and DELETE requests without a body bind from the
// query string instead.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()
	log := logger.FromEchoContext(c)

	if req.ContentLength > 0 {
		ctype := req.Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
			return errcodes.UnsupportedMediaType()
		}

		dec := json.NewDecoder(req.Body)
		dec.DisallowUnknownFields()
		defer req.Body.Close()
		if err := dec.Decode(i); err != nil {
			// return better error message when there are unknown fields
			if matches := unknownFieldsRE.FindAllStringSubmatch(err.Error(), -1); len(matches) > 0 && len(matches[0]) > 1 {
				return errcodes.UnknownParameter(matches[0][1])
			}

			// return better error message on type errors
			if err, ok := err.(*json.UnmarshalTypeError); ok {
				msg := formatUnmarshalTypeError(err)
				return errcodes.ValidationTypeError(msg)
			}

			log.Err(err).Error("unknown json decode error")

			return errcodes.MalformedPayload()
		}
	} else {
		if req.Method == http.MethodGet || req.Method == http.MethodDelete {
			if err := b.decodeQuery(i, c.QueryParams()); err != nil {
				return errors.WithStack(err)
			}
		} else {
			return errcodes.EmptyRequestBody()
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) || len(errs) == 0 {
			return errors.WithStack(err)
		}
		msg := formatValidationError(errs[0])
		return errcodes.ValidationError(msg)
	}
	return nil
}

func (b *Binder) decodeQuery(i interface{}, params url.Values) error {
	if err := b.queryDecoder.Decode(i, params); err != nil {
		if errs, ok := err.(schema.MultiError); ok {
			var err error
			for _, err = range errs {
				break
			}

			if err, ok := err.(schema.ConversionError); ok {
				msg := formatSchemaConversionError(err)
				return errcodes.ValidationTypeError(msg)
			}
			if err, ok := err.(schema.UnknownKeyError); ok {
				return errcodes.UnknownParameter(err.Key)
			}

			return errors.WithStack(err)
		}
		return errors.WithStack(err)
	}
	return nil
}
