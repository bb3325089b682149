/**
 * @description
 * This file contains the HTTP handlers for the collection-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @notes
 * - The callback handler acknowledges unconditionally: the aggregator retries
 *   anything that is not acknowledged, and a redelivery storm does not make a
 *   failed write succeed. Storage failures are logged for operators instead.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 * - internal/document: For the printable receipt projection.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/swiftloan/collection-service/internal/app"
	"github.com/swiftloan/collection-service/internal/document"
	"github.com/swiftloan/collection-service/internal/domain"
	"github.com/swiftloan/collection-service/internal/store"
)

// CollectionHandlers holds the application service and reconciler that handlers use.
type CollectionHandlers struct {
	service    *app.Service
	reconciler *app.NotificationReconciler
}

// NewCollectionHandlers creates a new instance of CollectionHandlers.
func NewCollectionHandlers(service *app.Service, reconciler *app.NotificationReconciler) *CollectionHandlers {
	return &CollectionHandlers{service: service, reconciler: reconciler}
}

// initiationResponse mirrors the envelope the existing frontend expects: a
// success flag, the reference, and the receipt snapshot even on failure.
type initiationResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Receipt   *domain.Receipt `json:"receipt,omitempty"`
}

type receiptResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Receipt *domain.Receipt `json:"receipt,omitempty"`
}

// callbackAck is the fixed two-field acknowledgment the aggregator expects.
type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

type releaseRequest struct {
	Status string `json:"status"`
}

// InitiatePaymentHandler handles POST /pay.
func (h *CollectionHandlers) InitiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=pay outcome=reject reason=invalid_json err=%v", err)
		writeJSON(w, http.StatusBadRequest, initiationResponse{Success: false, Error: "Invalid request body"})
		return
	}

	receipt, err := h.service.InitiateCollection(r.Context(), req)
	if err != nil {
		h.writeInitiationError(w, receipt, err)
		return
	}

	writeJSON(w, http.StatusOK, initiationResponse{
		Success:   true,
		Message:   "STK push sent, check your phone",
		Reference: receipt.Reference,
		Receipt:   receipt,
	})
}

func (h *CollectionHandlers) writeInitiationError(w http.ResponseWriter, receipt *domain.Receipt, err error) {
	resp := initiationResponse{Success: false, Receipt: receipt}
	if receipt != nil {
		resp.Reference = receipt.Reference
	}

	switch {
	case errors.Is(err, app.ErrInvalidPhone):
		resp.Error = "Invalid phone format"
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, app.ErrInvalidAmount):
		resp.Error = "Amount must be >= 1"
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, app.ErrRateLimited):
		resp.Error = "Too many payment attempts. Please wait a minute and try again."
		writeJSON(w, http.StatusTooManyRequests, resp)
	case errors.Is(err, app.ErrUpstreamRejected):
		resp.Error = trimErrorPrefix(err, app.ErrUpstreamRejected)
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, app.ErrUpstreamUnavailable):
		resp.Error = "Payment service unavailable. Please try again later."
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		log.Printf("level=error component=api endpoint=pay msg=\"initiation failed\" err=%v", err)
		resp.Error = "Server error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// CallbackHandler handles POST /callback from the aggregator.
func (h *CollectionHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("level=warn component=api endpoint=callback msg=\"body read failed\" err=%v", err)
		writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Success"})
		return
	}

	event := domain.DecodeNotification(body)
	if _, err := h.reconciler.HandleNotification(r.Context(), event); err != nil {
		// Logged for operators; the ack below still goes out.
		log.Printf("level=error component=api endpoint=callback reference=%s msg=\"reconciliation failed\" err=%v", event.Reference, err)
	}

	writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Success"})
}

// GetReceiptHandler handles GET /receipt/{reference}.
func (h *CollectionHandlers) GetReceiptHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	receipt, err := h.service.LookupReceipt(r.Context(), reference)
	if err != nil {
		h.writeLookupError(w, reference, err)
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{Success: true, Receipt: receipt})
}

// ReceiptDocumentHandler handles GET /receipt/{reference}/pdf. It shares the
// lookup not-found contract with GetReceiptHandler.
func (h *CollectionHandlers) ReceiptDocumentHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	receipt, err := h.service.LookupReceipt(r.Context(), reference)
	if err != nil {
		h.writeLookupError(w, reference, err)
		return
	}

	pdfBytes, err := document.Render(*receipt)
	if err != nil {
		log.Printf("level=error component=api endpoint=receipt_pdf reference=%s msg=\"render failed\" err=%v", reference, err)
		writeJSON(w, http.StatusInternalServerError, receiptResponse{Success: false, Error: "Could not generate receipt document"})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", reference))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}

// ReleaseReceiptHandler handles POST /receipt/{reference}/release, the
// administrative transition to success or loan_released.
func (h *CollectionHandlers) ReleaseReceiptHandler(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, receiptResponse{Success: false, Error: "Invalid request body"})
		return
	}
	target := strings.TrimSpace(req.Status)
	if target == "" {
		target = domain.StatusLoanReleased
	}

	receipt, err := h.service.ReleaseReceipt(r.Context(), reference, target)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrReceiptNotFound):
			writeJSON(w, http.StatusNotFound, receiptResponse{Success: false, Error: "Receipt not found"})
		case errors.Is(err, app.ErrIllegalTransition):
			writeJSON(w, http.StatusConflict, receiptResponse{Success: false, Error: err.Error()})
		default:
			log.Printf("level=error component=api endpoint=release reference=%s err=%v", reference, err)
			writeJSON(w, http.StatusInternalServerError, receiptResponse{Success: false, Error: "Server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{Success: true, Receipt: receipt})
}

func (h *CollectionHandlers) writeLookupError(w http.ResponseWriter, reference string, err error) {
	if errors.Is(err, store.ErrReceiptNotFound) {
		writeJSON(w, http.StatusNotFound, receiptResponse{Success: false, Error: "Receipt not found"})
		return
	}
	log.Printf("level=error component=api endpoint=receipt reference=%s msg=\"lookup failed\" err=%v", reference, err)
	writeJSON(w, http.StatusInternalServerError, receiptResponse{Success: false, Error: "Server error"})
}

// trimErrorPrefix extracts the human part of a wrapped sentinel error.
func trimErrorPrefix(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}
