/*
 * Copyright 2026 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package validation provides the validation functions.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// defaultValidator is the default validation instance used to check
	// user-provided configuration values.
	defaultValidator = validator.New()

	// defaultEn is the default translator instance for the 'en' locale.
	defaultEn = en.New()

	// uni is the UniversalTranslator instance set with the fallback locale
	// and the locales it should support.
	uni = ut.New(defaultEn, defaultEn)

	// trans is the translator for the 'en' locale.
	trans, _ = uni.GetTranslator(defaultEn.Locale())
)

func init() {
	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		panic(err)
	}
}

// FormError is a validation error with structured per-field violations.
type FormError struct {
	Violations []Violation
}

// Error returns the error message.
func (e *FormError) Error() string {
	message := ""
	for i, violation := range e.Violations {
		if i > 0 {
			message += ", "
		}
		message += violation.Description
	}
	return message
}

// Violation is a single field constraint violation.
type Violation struct {
	Field       string
	Description string
}

// ValidateStruct validates the given struct against its validate tags.
func ValidateStruct(s interface{}) error {
	if err := defaultValidator.Struct(s); err != nil {
		var invalidErr *validator.InvalidValidationError
		if errors.As(err, &invalidErr) {
			return fmt.Errorf("validate struct: %w", err)
		}

		formErr := &FormError{}
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, fieldErr := range validationErrs {
				formErr.Violations = append(formErr.Violations, Violation{
					Field:       fieldErr.Field(),
					Description: fieldErr.Translate(trans),
				})
			}
		}
		return formErr
	}
	return nil
}
