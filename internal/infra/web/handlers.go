package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/infra/logging"
	"captive-wifi-billing/internal/infra/mpesa"
)

// Callback bodies are small; cap reads in case the provider misbehaves.
const maxCallbackBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error             string `json:"error"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.pkgUC.ListActive(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list packages failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	type pkgOut struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		DurationMinutes int    `json:"duration_minutes"`
		PriceKES        int64  `json:"price_kes"`
	}
	out := make([]pkgOut, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, pkgOut{ID: p.ID, Name: p.Name, DurationMinutes: p.DurationMinutes, PriceKES: p.PriceKES})
	}
	writeJSON(w, http.StatusOK, out)
}

type initiatePaymentRequest struct {
	Phone     string `json:"phone"`
	PackageID string `json:"package_id"`
	DeviceMAC string `json:"device_mac"`
	RouterID  string `json:"router_id"`
}

func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	ctx := logging.WithDeviceMAC(logging.WithRouterID(r.Context(), req.RouterID), req.DeviceMAC)
	logging.With(ctx, s.log).Info().
		Str("phone", logging.Redact(req.Phone, s.dev)).
		Str("package_id", req.PackageID).
		Msg("payment initiation requested")

	res, err := s.payUC.RequestPush(ctx, req.Phone, req.PackageID, req.DeviceMAC, req.RouterID)
	if err != nil {
		var dup *domain.DuplicatePendingError
		switch {
		case errors.As(err, &dup):
			writeJSON(w, http.StatusConflict, errorBody{
				Error:             "payment already in progress",
				CheckoutRequestID: dup.CheckoutRequestID,
			})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid phone, device identifier, or router"})
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPackageInactive):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown or inactive package"})
		default:
			s.log.Error().Err(err).Msg("payment initiation failed")
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "payment could not be initiated"})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	checkoutID := chi.URLParam(r, "checkoutID")
	p, err := s.payUC.StatusByCheckoutID(r.Context(), checkoutID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "payment not found"})
			return
		}
		s.log.Error().Err(err).Msg("payment status lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"checkout_request_id": p.CheckoutRequestID,
		"status":              p.Status,
	})
}

func (s *Server) handleDeviceSession(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	sess, err := s.actUC.ActiveSessionForDevice(r.Context(), mac)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid device identifier"})
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		default:
			s.log.Error().Err(err).Msg("device session lookup failed")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":            true,
		"session_id":        sess.ID,
		"package_id":        sess.PackageID,
		"end_time":          sess.EndTime,
		"remaining_seconds": int(sess.Remaining(time.Now()).Seconds()),
	})
}

// handlePaymentCallback always acknowledges the provider, whatever happened
// internally; anything else invites retry storms that amplify load.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read callback body")
		writeJSON(w, http.StatusOK, mpesa.Accepted())
		return
	}

	out := s.payUC.HandleCallback(r.Context(), raw)
	s.log.Info().
		Str("outcome", out.Outcome).
		Str("checkout_request_id", out.CheckoutRequestID).
		Str("payment_id", out.PaymentID).
		Msg("payment callback processed")

	writeJSON(w, http.StatusOK, mpesa.Accepted())
}

func (s *Server) handleRouterTest(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	res := s.routerUC.TestConnection(r.Context(), routerID, AdminSubject(r.Context()))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRouterSync(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	res := s.syncUC.SyncPackages(r.Context(), routerID, AdminSubject(r.Context()))
	writeJSON(w, http.StatusOK, res)
}

type grantRequest struct {
	DeviceMAC string `json:"device_mac"`
	Profile   string `json:"profile"`
}

func (s *Server) handleRouterGrant(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceMAC == "" || req.Profile == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "device_mac and profile are required"})
		return
	}
	res := s.routerUC.GrantAccess(r.Context(), routerID, req.DeviceMAC, req.Profile, AdminSubject(r.Context()))
	writeJSON(w, http.StatusOK, res)
}

type revokeRequest struct {
	DeviceMAC string `json:"device_mac"`
}

func (s *Server) handleRouterRevoke(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceMAC == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "device_mac is required"})
		return
	}
	res := s.routerUC.RevokeAccess(r.Context(), routerID, req.DeviceMAC, AdminSubject(r.Context()))
	writeJSON(w, http.StatusOK, res)
}

type credentialPatchRequest struct {
	Host           *string `json:"host,omitempty"`
	Port           *int    `json:"port,omitempty"`
	Username       *string `json:"username,omitempty"`
	Secret         *string `json:"secret,omitempty"`
	TimeoutSeconds *int    `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	var req credentialPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	patch := &model.RouterCredentialPatch{
		Host:           req.Host,
		Port:           req.Port,
		Username:       req.Username,
		Secret:         req.Secret,
		TimeoutSeconds: req.TimeoutSeconds,
	}
	if err := s.routerUC.UpdateCredential(r.Context(), routerID, patch); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody{Error: "router not configured"})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid credential patch"})
		default:
			s.log.Error().Err(err).Str("router_id", routerID).Msg("credential update failed")
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	routerID := chi.URLParam(r, "routerID")
	status, err := s.routers.FindSyncStatus(r.Context(), nil, routerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "no sync recorded for router"})
			return
		}
		s.log.Error().Err(err).Msg("sync status lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
