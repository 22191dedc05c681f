package validation

import (
	"errors"
	"testing"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Name      string   `json:"name" validate:"required,max=10"`
	Code      string   `json:"code" validate:"omitempty,len=3"`
	Mode      string   `json:"mode" validate:"omitempty,oneof=a b"`
	Tags      []string `validate:"max=2"`
	Ignored   string   `json:"-" validate:"-"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, Struct(sampleRequest{ProductID: 1, Name: "ok"}))
	})

	t.Run("uses json field names", func(t *testing.T) {
		err := Struct(sampleRequest{Name: "ok"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		assert.Equal(t, "product_id: This field is required", err.Error())
	})

	t.Run("falls back to go field name", func(t *testing.T) {
		err := Struct(sampleRequest{ProductID: 1, Name: "ok", Tags: []string{"a", "b", "c"}})
		require.Error(t, err)
		assert.Equal(t, "Tags: Must be at most 2", err.Error())
	})

	t.Run("string length", func(t *testing.T) {
		err := Struct(sampleRequest{ProductID: 1, Name: "much too long"})
		require.Error(t, err)
		assert.Equal(t, "name: Must be at most 10 characters", err.Error())
	})

	t.Run("non-struct input is returned unchanged", func(t *testing.T) {
		err := Struct(42)
		require.Error(t, err)
		assert.False(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestDetails(t *testing.T) {
	err := Validator().Struct(sampleRequest{Code: "abcd", Mode: "c"})
	details := Details(err)
	require.Len(t, details, 4)

	byField := map[string]string{}
	for _, d := range details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", byField["product_id"])
	assert.Equal(t, "This field is required", byField["name"])
	assert.Equal(t, "Must be exactly 3 characters", byField["code"])
	assert.Equal(t, "Must be one of: a b", byField["mode"])

	assert.Nil(t, Details(errors.New("plain")))
}
