package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkmarket/internal/models"
	"linkmarket/internal/util"
)

func TestWriteErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: util.GetLogger()}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound, models.ErrCodeNotFound},
		{"auction not enabled", models.ErrAuctionNotEnabled, http.StatusConflict, models.ErrCodeAuctionNotEnabled},
		{"auction active", models.ErrAuctionActive, http.StatusConflict, models.ErrCodeAuctionActive},
		{"no winner", models.ErrAuctionNoWinner, http.StatusGone, models.ErrCodeAuctionNoWinner},
		{"link expired", models.ErrLinkExpired, http.StatusGone, models.ErrCodeLinkExpired},
		{"validation", &models.ValidationError{Field: "email", Reason: "missing"}, http.StatusBadRequest, models.ErrCodeValidation},
		{"internal", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.writeError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestWriteErrorBidTooLow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: util.GetLogger()}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	h.writeError(c, &models.BidTooLowError{MinRequiredCents: 1100, HighestCents: 1000})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ErrCodeBidTooLow, body["error"])
	assert.EqualValues(t, 1100, body["min_required_cents"])
	assert.EqualValues(t, 1000, body["highest_cents"])
}

func TestWriteErrorAuctionEnded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: util.GetLogger()}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	h.writeError(c, &models.AuctionEndedError{Auction: &models.Auction{
		Enabled: true,
		Status:  models.AuctionStatusFinalized,
		Winner:  &models.Winner{Email: "buyer@example.com", BidID: "bid-1", AmountCents: 1500},
	}})

	assert.Equal(t, http.StatusGone, w.Code)
	var body struct {
		Error   string         `json:"error"`
		Auction models.Auction `json:"auction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ErrCodeAuctionEnded, body.Error)
	require.NotNil(t, body.Auction.Winner)
	assert.Equal(t, int64(1500), body.Auction.Winner.AmountCents)
}
