package domain

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxUploadBytes int64 = 10 * 1024 * 1024

var uploadTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type PasswordReset struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ValidateInput checks client supplied input before any backend call.
func ValidateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Message: describeRule(fe)}
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// ValidatePayload checks a decoded backend response against its struct tags.
func ValidatePayload(kind string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace())
		}
		return &PayloadError{Kind: kind, Fields: fields, Err: err}
	}
	return &PayloadError{Kind: kind, Err: err}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s rule", fe.Tag())
	}
}

// ValidateUpload guards claim and application uploads: only pdf, doc and
// docx files up to maxBytes are accepted, and a declared content type must
// agree with the file extension.
func ValidateUpload(filename, contentType string, size int64, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrUnsupportedUpload)
	}
	if size > maxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedUpload, maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mediaType := ""
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: content type %q", ErrUnsupportedUpload, contentType)
		}
		mediaType = parsed
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		for _, allowedExt := range uploadTypes {
			if ext == allowedExt {
				return nil
			}
		}
		return fmt.Errorf("%w: file type %q", ErrUnsupportedUpload, ext)
	}
	wantExt, ok := uploadTypes[mediaType]
	if !ok {
		return fmt.Errorf("%w: content type %q", ErrUnsupportedUpload, mediaType)
	}
	if ext != wantExt {
		return fmt.Errorf("%w: file type %q does not match content type %q", ErrUnsupportedUpload, ext, mediaType)
	}
	return nil
}
