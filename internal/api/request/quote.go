package request

// QuoteKeyRequest identifies one quote in a batch request.
type QuoteKeyRequest struct {
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

// BatchQuoteRequest represents the request body for POST /api/quote/batch.
type BatchQuoteRequest struct {
	Quotes []QuoteKeyRequest `json:"quotes"`
}
