package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CallbackEnvelope is the asynchronous STK result delivered to our webhook:
// { Body: { stkCallback: { CheckoutRequestID, ResultCode, CallbackMetadata } } }.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// CallbackItem values arrive as strings or numbers depending on the field.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// ParseCallback decodes a raw webhook body.
func ParseCallback(raw []byte) (*StkCallback, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed callback payload: %w", err)
	}
	if env.Body.StkCallback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback payload missing CheckoutRequestID")
	}
	return &env.Body.StkCallback, nil
}

// Success reports whether the provider confirmed the payment.
func (c *StkCallback) Success() bool { return c.ResultCode == 0 }

func (c *StkCallback) item(name string) (interface{}, bool) {
	if c.CallbackMetadata == nil {
		return nil, false
	}
	for _, it := range c.CallbackMetadata.Item {
		if it.Name == name {
			return it.Value, true
		}
	}
	return nil, false
}

// Receipt returns the MpesaReceiptNumber item, if present.
func (c *StkCallback) Receipt() (string, bool) {
	v, ok := c.item("MpesaReceiptNumber")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// Amount returns the Amount item in whole currency units.
func (c *StkCallback) Amount() (int64, bool) {
	v, ok := c.item("Amount")
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// Phone returns the PhoneNumber item in canonical form.
func (c *StkCallback) Phone() (string, bool) {
	v, ok := c.item("PhoneNumber")
	if !ok {
		return "", false
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10), true
	case string:
		return n, n != ""
	}
	return "", false
}

// Ack is the body the provider expects from the webhook regardless of internal
// processing outcome; anything else risks provider-side retry storms.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func Accepted() Ack { return Ack{ResultCode: 0, ResultDesc: "Callback received successfully"} }
