package quickbooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type qbClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func newQbClient(accessToken string) (*qbClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("QB_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://sandbox-quickbooks.api.intuit.com"
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("quickbooks access token is empty")
	}

	return &qbClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *qbClient) query(ctx context.Context, path string, query string) (queryEnvelope, error) {
	endpoint := c.baseURL + path + "?query=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return queryEnvelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return queryEnvelope{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return queryEnvelope{}, fmt.Errorf("quickbooks api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed queryEnvelope
	if err := json.Unmarshal(body, &parsed); err != nil {
		return queryEnvelope{}, err
	}
	return parsed, nil
}

// FetchInvoices queries every invoice visible to the realm. A response with
// no invoice list is an empty result, not an error.
func (c *qbClient) FetchInvoices(ctx context.Context, realmId string) ([]RawInvoice, error) {
	envelope, err := c.query(ctx, "/v3/company/"+realmId+"/query", "SELECT * FROM Invoice")
	if err != nil {
		return nil, err
	}

	invoices := make([]RawInvoice, 0, len(envelope.QueryResponse.Invoice))
	for _, raw := range envelope.QueryResponse.Invoice {
		var inv RawInvoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, err
		}
		inv.Raw = raw
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// FetchCustomers queries every customer visible to the realm.
//
// TODO: the path interpolates the literal string "$%7BrealmId%7D" instead of
// the realm id, matching the endpoint the current frontend and ops tooling
// were tested against. Re-point to the realm path once ops confirms nothing
// depends on the broken URL.
func (c *qbClient) FetchCustomers(ctx context.Context, realmId string) ([]RawCustomer, error) {
	envelope, err := c.query(ctx, "/v3/company/$%7BrealmId%7D/query", "SELECT * FROM Customer")
	if err != nil {
		return nil, err
	}

	customers := make([]RawCustomer, 0, len(envelope.QueryResponse.Customer))
	for _, raw := range envelope.QueryResponse.Customer {
		var cust RawCustomer
		if err := json.Unmarshal(raw, &cust); err != nil {
			return nil, err
		}
		cust.Raw = raw
		customers = append(customers, cust)
	}
	return customers, nil
}
