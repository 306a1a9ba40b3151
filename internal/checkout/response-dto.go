package checkout

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	Unavailable []string `json:"unavailable,omitempty"`
}

type PaymentStatusResponse struct {
	Status string `json:"status"`
}

type PixPaymentResponse struct {
	PaymentID         string `json:"paymentId"`
	QRCode            string `json:"qrCode"`
	QRCodeImageBase64 string `json:"qrCodeImageBase64"`
}
