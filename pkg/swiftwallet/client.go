/**
 * @description
 * This package provides a client for interacting with the SwiftWallet payment
 * aggregator. It encapsulates the logic for making authenticated HTTP requests
 * to the STK-push collection endpoint, handling request body construction, and
 * parsing responses.
 *
 * @notes
 * - A response the client managed to decode is returned as data even when it
 *   reports failure, so the caller can distinguish "the aggregator said no"
 *   from "the aggregator could not be reached". Only transport and decode
 *   failures surface as errors.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 */
package swiftwallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the SwiftWallet collection API.
type Client struct {
	BaseURL     string
	APIKey      string
	ChannelID   string
	CallbackURL string
	HTTPClient  *http.Client
}

// NewClient creates a new SwiftWallet API client.
func NewClient(baseURL, apiKey, channelID, callbackURL string) *Client {
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		ChannelID:   channelID,
		CallbackURL: callbackURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CollectionRequest represents the payload for an STK-push collection.
type CollectionRequest struct {
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ExternalReference string `json:"external_reference"`
	CustomerName      string `json:"customer_name"`
	CallbackURL       string `json:"callback_url"`
	ChannelID         string `json:"channel_id"`
}

// CollectionResponse is the expected response from the collection endpoint.
type CollectionResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

// FailureReason returns the most specific failure text the aggregator provided.
func (r *CollectionResponse) FailureReason() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "Failed to initiate payment"
}

// InitiateCollection sends an STK-push collection request for the given
// reference. The channel id, callback URL, and customer placeholder are
// filled from the client configuration.
func (c *Client) InitiateCollection(ctx context.Context, reqPayload CollectionRequest) (*CollectionResponse, error) {
	if reqPayload.CustomerName == "" {
		reqPayload.CustomerName = "Customer"
	}
	reqPayload.CallbackURL = c.CallbackURL
	reqPayload.ChannelID = c.ChannelID

	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/payments.php", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute collection request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection response: %w", err)
	}

	var collectionResp CollectionResponse
	if err := json.Unmarshal(bodyBytes, &collectionResp); err != nil {
		log.Printf("level=warn component=swiftwallet_client op=collect status=%d msg=\"unparsable response body\"", resp.StatusCode)
		return nil, fmt.Errorf("failed to decode collection response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// A decoded non-2xx body is still a rejection verdict, not an outage.
		log.Printf("level=warn component=swiftwallet_client op=collect status=%d reference=%s reason=%q", resp.StatusCode, reqPayload.ExternalReference, collectionResp.FailureReason())
		collectionResp.Success = false
	}

	return &collectionResp, nil
}
