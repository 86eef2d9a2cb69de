package services

import (
	"testing"

	apperrors "github.com/aihub/chatbot-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadAdd(t *testing.T) {
	service := NewLeadService(nil)

	lead, err := service.Add(&LeadRequest{
		Name:    "  Anna Svensson  ",
		Email:   "anna@example.com",
		Company: "Testbolaget",
		Need:    "Vill boka demo",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "Anna Svensson", lead.Name)
	assert.Equal(t, "anna@example.com", lead.Email)
	assert.False(t, lead.CreatedAt.IsZero())
	assert.Equal(t, 1, service.Count())
}

func TestLeadAddPhoneOnly(t *testing.T) {
	service := NewLeadService(nil)

	lead, err := service.Add(&LeadRequest{Phone: "070-1234567"})
	require.NoError(t, err)
	assert.Equal(t, "070-1234567", lead.Phone)
}

func TestLeadAddMissingContact(t *testing.T) {
	service := NewLeadService(nil)

	for _, req := range []*LeadRequest{
		nil,
		{Name: "Anna"},
		{Email: "   ", Phone: "   "},
	} {
		lead, err := service.Add(req)
		require.Error(t, err)
		assert.Nil(t, lead)
		assert.True(t, apperrors.IsValidation(err))

		appErr := apperrors.GetAppError(err)
		assert.Equal(t, apperrors.ErrCodeMissingContact, appErr.Code)
		assert.Equal(t, "Minst e-post eller telefon krävs", appErr.Message)
	}
	assert.Equal(t, 0, service.Count())
}

func TestLeadListReturnsCopy(t *testing.T) {
	service := NewLeadService(nil)

	_, err := service.Add(&LeadRequest{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = service.Add(&LeadRequest{Email: "b@example.com"})
	require.NoError(t, err)

	leads := service.List()
	require.Len(t, leads, 2)

	// 修改副本不影响内部存储
	leads[0].Email = "ändrad@example.com"
	assert.Equal(t, "a@example.com", service.List()[0].Email)
}
