package quickbooks

import "encoding/json"

// RawInvoice is the provider invoice shape, decoded once at the sync
// boundary. Raw keeps the untouched payload for audit metadata.
type RawInvoice struct {
	Id          string       `json:"Id"`
	DocNumber   string       `json:"DocNumber"`
	TotalAmt    json.Number  `json:"TotalAmt"`
	Balance     json.Number  `json:"Balance"`
	DueDate     string       `json:"DueDate"`
	CurrencyRef *ValueRef    `json:"CurrencyRef"`
	CustomerRef *CustomerRef `json:"CustomerRef"`
	BillEmail   *EmailRef    `json:"BillEmail"`

	Raw json.RawMessage `json:"-"`
}

type RawCustomer struct {
	Id               string    `json:"Id"`
	DisplayName      string    `json:"DisplayName"`
	PrimaryEmailAddr *EmailRef `json:"PrimaryEmailAddr"`

	Raw json.RawMessage `json:"-"`
}

type ValueRef struct {
	Value string `json:"value"`
}

type CustomerRef struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

type EmailRef struct {
	Address string `json:"Address"`
}

// queryEnvelope is the provider's query response wrapper. Entity lists are
// kept as raw messages so each record's original payload survives decoding.
type queryEnvelope struct {
	QueryResponse struct {
		Invoice  []json.RawMessage `json:"Invoice"`
		Customer []json.RawMessage `json:"Customer"`
	} `json:"QueryResponse"`
}
