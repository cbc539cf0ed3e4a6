package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allocationBody struct {
	LotID    uuid.UUID       `json:"lot_id" binding:"required"`
	Quantity decimal.Decimal `json:"qty" binding:"required"`
	Actor    string          `json:"actor" binding:"max=5"`
}

func bindBody(t *testing.T, body string) []dto.ValidationDetail {
	t.Helper()
	SetupValidator()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req allocationBody
	err := c.ShouldBindJSON(&req)
	if err == nil {
		return nil
	}
	return ValidationDetails(err)
}

func TestValidationDetails_UsesJSONNames(t *testing.T) {
	details := bindBody(t, `{"qty":"2","actor":"toolongname"}`)
	require.Len(t, details, 2)

	fields := map[string]string{}
	for _, d := range details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", fields["lot_id"])
	assert.Equal(t, "Must be at most 5 characters", fields["actor"])
}

func TestValidationDetails_DecimalQuantity(t *testing.T) {
	details := bindBody(t, `{"lot_id":"`+uuid.NewString()+`","qty":"12.5"}`)
	assert.Empty(t, details)
}

func TestValidationDetails_NonValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
