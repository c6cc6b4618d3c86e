package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/recvault/vault-server-go/internal/config"
	"github.com/recvault/vault-server-go/internal/storage"
)

// Validator checks payload structs against their validate tags. Drive file
// ids and links always pass storagefileid; plain object keys pass only on S3.
type Validator struct {
	v *validator.Validate
}

func NewValidator(backend config.StorageBackend) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("drivefileid", func(fl validator.FieldLevel) bool {
		_, ok := storage.ExtractDriveFileID(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("storagefileid", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if _, ok := storage.ExtractDriveFileID(value); ok {
			return true
		}
		return backend == config.StorageBackendS3 && storage.IsPlainObjectKey(value)
	})

	return &Validator{v: v}
}

// FieldError is one failed constraint, addressed by its JSON path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v *Validator) Struct(s any) []FieldError {
	return fieldErrors(v.v.Struct(s))
}

func fieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Path: "(root)", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		out = append(out, FieldError{Path: path, Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return "must be positive"
	case "gte":
		return "must not be negative"
	case "storagefileid":
		return "must be a valid storage file id or Google Drive file link"
	case "drivefileid":
		return "must be a Google Drive file id or file link"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	default:
		return "is invalid"
	}
}
