package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkJSONEmbedsAuction(t *testing.T) {
	endsAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	link := &Link{
		ID:                 "auctionlnk1",
		ProductID:          1,
		SellerID:           7,
		Active:             true,
		AuctionEnabled:     true,
		AuctionEndsAt:      &endsAt,
		StartingPriceCents: 1000,
		MinIncrementCents:  100,
		AuctionStatus:      AuctionStatusActive,
	}

	data, err := json.Marshal(link)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	auction, ok := out["auction"].(map[string]interface{})
	require.True(t, ok, "auction record missing from link JSON")
	assert.Equal(t, AuctionStatusActive, auction["status"])
	assert.EqualValues(t, 1000, auction["starting_price_cents"])
	assert.EqualValues(t, 100, auction["min_increment_cents"])
	assert.Equal(t, "2026-03-01T12:00:00Z", auction["ends_at"])

	// The flattened storage columns stay private to the row.
	assert.NotContains(t, out, "auction_enabled")
	assert.NotContains(t, out, "auction_status")
	assert.NotContains(t, out, "winner_email")
}

func TestLinkJSONPlainLink(t *testing.T) {
	link := &Link{ID: "plainlink1", ProductID: 1, SellerID: 7, Active: true}

	data, err := json.Marshal(link)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.NotContains(t, out, "auction")
	assert.NotContains(t, out, "price_override_cents")
}

func TestLinkJSONCarriesPriceOverride(t *testing.T) {
	winning := int64(5000)
	link := &Link{ID: "followuplnk", ProductID: 1, SellerID: 7, Active: true, PriceOverrideCents: &winning}

	data, err := json.Marshal(link)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.EqualValues(t, 5000, out["price_override_cents"])
}
