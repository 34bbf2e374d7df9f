package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askPayload struct {
	Question string `json:"question" validate:"required,notblank,max=2000"`
}

type thresholds struct {
	High   float64 `json:"high-threshold" validate:"gt=0,lte=100"`
	Medium float64 `json:"medium-threshold" validate:"gte=0,ltfield=High"`
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, Struct(&askPayload{Question: "what is covered?"}))
	assert.Error(t, Struct(&askPayload{Question: "   \t\n"}))
	assert.Error(t, Struct(&askPayload{}))
}

func TestValidateWithLang(t *testing.T) {
	errs := StructWithLang(&askPayload{Question: "  "}, LangEN)
	require.True(t, errs.HasErrors())
	assert.Equal(t, "question", errs.Errors[0].Field)
	assert.Equal(t, "notblank", errs.Errors[0].Tag)
	assert.Equal(t, "question must contain non-whitespace characters", errs.First())

	zhErrs := StructWithLang(&askPayload{Question: "  "}, LangZH)
	require.True(t, zhErrs.HasErrors())
	assert.Equal(t, "question不能为空白", zhErrs.First())

	assert.Nil(t, StructWithLang(&askPayload{Question: "ok"}, LangEN))
}

func TestCrossFieldThresholds(t *testing.T) {
	assert.NoError(t, Struct(&thresholds{High: 85, Medium: 70}))
	assert.Error(t, Struct(&thresholds{High: 70, Medium: 85}))
	assert.Error(t, Struct(&thresholds{High: 70, Medium: 70}))
	assert.Error(t, Struct(&thresholds{High: 120, Medium: 70}))
}

func TestLangFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, LangZH, LangFromAcceptLanguage("zh-CN,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, LangEN, LangFromAcceptLanguage("en-US,en;q=0.9"))
	assert.Equal(t, LangEN, LangFromAcceptLanguage(""))
}

func TestValidationErrorsNil(t *testing.T) {
	var v *ValidationErrors
	assert.False(t, v.HasErrors())
	assert.Empty(t, v.Error())
	assert.Nil(t, v.Messages())
}
