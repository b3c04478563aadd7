package errors

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func msgForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Please provide a valid email address"
	case "oneof":
		return "Value must be one of the allowed options"
	case "min":
		return "Value is too short or too small"
	case "max":
		return "Value is too long or too large"
	case "gte":
		return "Value must be greater than or equal to specified"
	case "lte":
		return "Value must be less than or equal to specified"
	case "numeric":
		return "Value must be numeric"
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}

func getJSONFieldName(structType reflect.Type, fieldName string) string {
	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return fieldName
	}

	return strings.Split(jsonTag, ",")[0]
}

// FormatValidationErrors converts gin binding failures into field-level
// messages keyed by the model's json tags.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	var errorsList []ValidationErrorResponse

	if err == nil {
		return errorsList
	}

	if jsonErr, ok := err.(*json.UnmarshalTypeError); ok {
		return []ValidationErrorResponse{
			{
				Field:   jsonErr.Field,
				Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", jsonErr.Field, jsonErr.Type, jsonErr.Value),
			},
		}
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errorsList
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}

	errorsList = make([]ValidationErrorResponse, len(validationErrors))

	for i, fieldError := range validationErrors {
		jsonField := fieldError.Field()
		if model != nil {
			jsonField = getJSONFieldName(structType, fieldError.Field())
		}

		message := msgForTag(fieldError.Tag())

		if fieldError.Param() != "" {
			switch fieldError.Tag() {
			case "min":
				message = fmt.Sprintf("Must be at least %s characters", fieldError.Param())
			case "max":
				message = fmt.Sprintf("Must not exceed %s characters", fieldError.Param())
			case "oneof":
				message = fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fieldError.Param(), " ", ", "))
			case "gte":
				message = fmt.Sprintf("Must be greater than or equal to %s", fieldError.Param())
			case "lte":
				message = fmt.Sprintf("Must be less than or equal to %s", fieldError.Param())
			}
		}

		errorsList[i] = ValidationErrorResponse{
			Field:   jsonField,
			Message: message,
		}
	}

	return errorsList
}
