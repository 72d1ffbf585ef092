package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestFromErrorNormalisesUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("create user: %w", Clone(ErrEmailRegistered, "email already registered: a@b.c"))
	err := FromError(wrapped)
	assert.Equal(t, "EMAIL_REGISTERED", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("step: %w", Clone(ErrEmailRegistered, "taken"))
	assert.True(t, Is(err, ErrEmailRegistered))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "class not found")
	assert.Equal(t, "class not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestInvalidListsFailedFields(t *testing.T) {
	type payload struct {
		FullName string `validate:"required"`
		Email    string `validate:"required,email"`
		Password string `validate:"min=8"`
	}
	cause := validator.New().Struct(payload{Email: "not-an-email", Password: "short"})

	err := Invalid(cause, "invalid staff payload")
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "invalid staff payload", err.Message)
	assert.Equal(t, map[string]string{"full_name": "required", "email": "email", "password": "min=8"}, err.Fields)
}

func TestInvalidWithoutRuleErrorsHasNoFields(t *testing.T) {
	err := Invalid(fmt.Errorf("unexpected EOF"), "invalid payload")
	assert.Nil(t, err.Fields)
	assert.Equal(t, "invalid payload: unexpected EOF", err.Error())
}
