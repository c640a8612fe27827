package controller

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const ruleCodePrefix = "validation_"

// reduceValidation turns an ozzo validation result into a field -> message
// map. Each field reports its first failing rule. The message is looked up
// in catalog by the full rule code, then by the code without the
// "validation_" prefix; otherwise the lowercased short code is used.
// Internal errors raised by rules are returned as errors.
func reduceValidation(err error, catalog map[string]string) (map[string]string, error) {
	if err == nil {
		return nil, nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) && internal.InternalError() != nil {
		return nil, internal.InternalError()
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil, err
	}

	out := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr == nil {
			continue
		}
		out[field] = ruleMessage(fieldErr, catalog)
	}
	return out, nil
}

func ruleMessage(err error, catalog map[string]string) string {
	var ve validation.Error
	if !errors.As(err, &ve) {
		return strings.ToLower(err.Error())
	}

	code := ve.Code()
	if msg, ok := catalog[code]; ok {
		return msg
	}

	short := strings.TrimPrefix(code, ruleCodePrefix)
	if msg, ok := catalog[short]; ok {
		return msg
	}
	return strings.ToLower(short)
}
