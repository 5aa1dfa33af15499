package redis

import (
	"context"
	"encoding/json"
	"time"

	"captive-wifi-billing/internal/domain"
	"captive-wifi-billing/internal/domain/model"
	"captive-wifi-billing/internal/domain/ports/repository"
)

var _ repository.PendingActivationStore = (*PendingStore)(nil)

// PendingStore keeps pending-activation records in Redis under two keys with
// the same TTL: the record itself by checkout request id, and a device marker
// used by the duplicate-submission guard. Redis owns expiry, so the store
// stays correct across multiple service instances.
type PendingStore struct {
	client RedisClient
}

func NewPendingStore(client RedisClient) *PendingStore {
	return &PendingStore{client: client}
}

func (s *PendingStore) coKey(checkoutID string) string { return "pending:co:" + checkoutID }
func (s *PendingStore) devKey(mac string) string       { return "pending:dev:" + mac }

func (s *PendingStore) Put(ctx context.Context, rec *model.PendingActivation, ttl time.Duration) error {
	if rec == nil || rec.CheckoutRequestID == "" || rec.DeviceMAC == "" {
		return domain.ErrInvalidArgument
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.coKey(rec.CheckoutRequestID), data, ttl); err != nil {
		return err
	}
	return s.client.Set(ctx, s.devKey(rec.DeviceMAC), rec.CheckoutRequestID, ttl)
}

func (s *PendingStore) Get(ctx context.Context, checkoutRequestID string) (*model.PendingActivation, error) {
	data, err := s.client.Get(ctx, s.coKey(checkoutRequestID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var rec model.PendingActivation
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PendingStore) Delete(ctx context.Context, checkoutRequestID string) error {
	rec, err := s.Get(ctx, checkoutRequestID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil
		}
		return err
	}
	return s.client.Del(ctx, s.coKey(checkoutRequestID), s.devKey(rec.DeviceMAC))
}

func (s *PendingStore) HasPendingFor(ctx context.Context, deviceMAC string) (string, bool, error) {
	checkoutID, err := s.client.Get(ctx, s.devKey(deviceMAC))
	if err != nil {
		if IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	// The device marker can outlive the record by a hair if the two SETs raced
	// an expiry; treat a dangling marker as no pending.
	if _, err := s.client.Get(ctx, s.coKey(checkoutID)); err != nil {
		if IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return checkoutID, true, nil
}
