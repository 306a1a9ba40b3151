package checkout

import "encoding/json"

// Requests accept userId as an alias of holderId; older clients send it.

type ReserveNumbersRequest struct {
	HolderID string   `json:"holderId" binding:"required_without=UserID"`
	UserID   string   `json:"userId" binding:"required_without=HolderID"`
	Numbers  []string `json:"numbers" binding:"required,min=1,unique,dive,ticketnumber"`
}

func (r *ReserveNumbersRequest) Holder() string {
	return holderOf(r.HolderID, r.UserID)
}

type CardPaymentData struct {
	Amount       float64     `json:"amount" binding:"omitempty,gt=0"`
	Token        string      `json:"token" binding:"required"`
	MethodID     string      `json:"methodId" binding:"required"`
	IssuerID     json.Number `json:"issuerId"`
	Installments int         `json:"installments" binding:"omitempty,min=1,max=12"`
}

type ProcessPaymentRequest struct {
	HolderID    string          `json:"holderId" binding:"required_without=UserID"`
	UserID      string          `json:"userId" binding:"required_without=HolderID"`
	Numbers     []string        `json:"numbers" binding:"required,min=1,unique,dive,ticketnumber"`
	BuyerName   string          `json:"buyerName" binding:"required"`
	BuyerPhone  string          `json:"buyerPhone" binding:"required"`
	PaymentData CardPaymentData `json:"paymentData"`
}

func (r *ProcessPaymentRequest) ToCheckout(idempotencyKey string) CardCheckout {
	return CardCheckout{
		HolderID: holderOf(r.HolderID, r.UserID),
		Numbers:  r.Numbers,
		Buyer:    Buyer{Name: r.BuyerName, Phone: r.BuyerPhone},
		Payment: CardPayment{
			Amount:       r.PaymentData.Amount,
			Token:        r.PaymentData.Token,
			MethodID:     r.PaymentData.MethodID,
			IssuerID:     r.PaymentData.IssuerID.String(),
			Installments: r.PaymentData.Installments,
		},
		IdempotencyKey: idempotencyKey,
	}
}

type ProcessPixPaymentRequest struct {
	HolderID   string   `json:"holderId" binding:"required_without=UserID"`
	UserID     string   `json:"userId" binding:"required_without=HolderID"`
	Numbers    []string `json:"numbers" binding:"required,min=1,unique,dive,ticketnumber"`
	BuyerName  string   `json:"buyerName" binding:"required"`
	BuyerPhone string   `json:"buyerPhone" binding:"required"`
	Amount     float64  `json:"amount" binding:"omitempty,gt=0"`
}

func (r *ProcessPixPaymentRequest) ToCheckout(idempotencyKey string) PixCheckout {
	return PixCheckout{
		HolderID:       holderOf(r.HolderID, r.UserID),
		Numbers:        r.Numbers,
		Buyer:          Buyer{Name: r.BuyerName, Phone: r.BuyerPhone},
		Amount:         r.Amount,
		IdempotencyKey: idempotencyKey,
	}
}

func holderOf(holderID, userID string) string {
	if holderID != "" {
		return holderID
	}
	return userID
}
