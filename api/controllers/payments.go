package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/eshoplite-backend/api/responses"
	"github.com/angelmondragon/eshoplite-backend/api/validators"
	"github.com/angelmondragon/eshoplite-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

const paymentService = "payment service"

// CreatePayment records a payment and answers 201 with its Location.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, paymentService)
			return
		}
		var req payments.CreatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			fail(w, r, logg, err)
			return
		}
		created, err := svc.CreatePayment(r.Context(), req)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		w.Header().Set("Location", "/api/payments/"+created.PaymentID.String())
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListPayments pages stored payments. Out of range paging values are
// clamped by the service; non-numeric ones are rejected here.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, paymentService)
			return
		}
		params := payments.ListParams{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
		var err error
		if params.Page, err = validators.QueryInt(r, "page", 1); err != nil {
			fail(w, r, logg, err)
			return
		}
		if params.PageSize, err = validators.QueryInt(r, "pageSize", 10); err != nil {
			fail(w, r, logg, err)
			return
		}
		list, err := svc.GetPayments(r.Context(), params)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unwired(w, r, logg, paymentService)
			return
		}
		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "paymentId")))
		if err != nil {
			fail(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}
		record, err := svc.GetPayment(r.Context(), id)
		if err != nil {
			fail(w, r, logg, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
