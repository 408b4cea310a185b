package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItemBody struct {
	Title    string  `json:"title" binding:"required,max=200"`
	Quantity int     `json:"quantity" binding:"min=0"`
	Category *string `json:"category" binding:"omitempty,category"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.POST("/items", func(c *gin.Context) {
		var req lineItemBody
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req))
	})
	return router
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type s struct {
		Category string `validate:"category"`
	}
	assert.NoError(t, v.Struct(s{Category: "proteins"}))
	assert.Error(t, v.Struct(s{Category: " proteins"}))
}

func TestValidCategory(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"auto-generated", "proteins", true},
		{"custom", "Chef's Specials", true},
		{"mixed case", "Desserts", true},
		{"empty", "", false},
		{"leading space", " sides", false},
		{"trailing space", "sides ", false},
		{"control character", "sides\tplus", false},
		{"too long", strings.Repeat("x", 51), false},
		{"max length", strings.Repeat("x", 50), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCategory(tt.value))
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("reports each invalid field by JSON name", func(t *testing.T) {
		w := postJSON(router, "/items", `{"title": "", "quantity": -1, "category": " bad "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.NotEmpty(t, resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["title"])
		assert.Equal(t, "Must be at least 0", fields["quantity"])
		assert.Contains(t, fields["category"], "at most 50 characters")
	})

	t.Run("accepts a custom category", func(t *testing.T) {
		w := postJSON(router, "/items", `{"title": "Brisket", "quantity": 2, "category": "Chef's Specials"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("category is optional", func(t *testing.T) {
		w := postJSON(router, "/items", `{"title": "Brisket", "quantity": 2}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed JSON has no field details", func(t *testing.T) {
		w := postJSON(router, "/items", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Error.Details)
	})
}

func TestGetValidationMessage(t *testing.T) {
	v := validator.New()

	type limits struct {
		Name  string `validate:"required,max=3"`
		Count int    `validate:"gte=1,lte=5"`
		Kind  string `validate:"oneof=percentage fixed"`
		ID    string `validate:"uuid"`
	}

	err := v.Struct(limits{Name: "toolong", Count: 9, Kind: "other", ID: "x"})
	require.Error(t, err)

	messages := map[string]string{}
	for _, fe := range err.(validator.ValidationErrors) {
		messages[fe.Field()] = getValidationMessage(fe)
	}
	assert.Equal(t, "Must be at most 3 characters", messages["Name"])
	assert.Equal(t, "Must be less than or equal to 5", messages["Count"])
	assert.Equal(t, "Must be one of: percentage fixed", messages["Kind"])
	assert.Equal(t, "Invalid UUID format", messages["ID"])
}
