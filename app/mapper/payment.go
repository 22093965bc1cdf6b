package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/service"
	"github.com/vibast-solutions/ms-go-coinwallet/app/types"
)

func CreatePaymentResultToResponse(res *service.CreatePaymentResult) *types.CreatePaymentIntentResponse {
	if res == nil || res.Intent == nil {
		return nil
	}

	resp := &types.CreatePaymentIntentResponse{
		PaymentIntentId: res.Intent.ID,
		ClientSecret:    res.ClientSecret,
		Status:          service.ProviderStatus(res.Intent.Status),
		Amount:          res.Intent.Amount,
		Currency:        res.Intent.Currency,
		PaymentUrl:      res.PaymentURL,
		Error:           res.Error,
	}
	if res.QRCode != nil {
		resp.Qr = &types.QRCode{ImageUrl: res.QRCode.ImageURL, Data: res.QRCode.Data}
	}
	return resp
}

func PaymentStatusToResponse(res *service.PaymentStatusResult) *types.PaymentStatusResponse {
	if res == nil || res.Intent == nil {
		return nil
	}

	item := res.Intent
	resp := &types.PaymentStatusResponse{
		Id:                item.ID,
		Status:            service.ProviderStatus(item.Status),
		Amount:            item.Amount,
		Currency:          item.Currency,
		Description:       item.Description,
		Metadata:          cloneMetadata(item.Metadata),
		QrCodeUrl:         item.QRCodeURL,
		CreditStatus:      string(item.CreditStatus),
		CallbackSignature: res.CallbackSignature,
	}
	if item.PaidAt != nil {
		resp.PaidAt = formatTime(*item.PaidAt)
	}
	return resp
}

func PaymentEventsToResponse(items []*entity.PaymentEvent) *types.ListPaymentEventsResponse {
	events := make([]*types.PaymentEvent, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		event := &types.PaymentEvent{
			Id:              item.ID,
			EventType:       item.EventType,
			Source:          item.Source,
			NewStatus:       string(item.NewStatus),
			ProviderEventId: derefString(item.ProviderEventID),
			Detail:          derefString(item.Detail),
			CreatedAt:       formatTime(item.CreatedAt),
		}
		if item.OldStatus != nil {
			event.OldStatus = string(*item.OldStatus)
		}
		events = append(events, event)
	}
	return &types.ListPaymentEventsResponse{Events: events}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
