// Package stripeapi adapta stripe-go a las capacidades que usa el
// servicio: leer la cuenta y listar movimientos de saldo.
package stripeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/balancetransaction"
	"github.com/stripe/stripe-go/v76/client"

	"saasbooks/internal/domain"
)

const (
	serviceName = "stripe"
	pageSize    = 100
)

// Client es un cliente por API key. No se comparte entre requests: la key
// vive solo lo que dura la llamada.
type Client struct {
	api *client.API
}

func New(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{api: client.New(apiKey, stripe.NewBackends(httpClient))}
}

func newWithURL(apiKey, url string, httpClient *http.Client) *Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		URL:               stripe.String(url),
	})
	return &Client{api: client.New(apiKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})}
}

func (c *Client) RetrieveAccount(ctx context.Context) (domain.StripeAccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.StripeAccountInfo{}, err
	}
	acct, err := c.api.Accounts.Get()
	if err != nil {
		return domain.StripeAccountInfo{}, classifyError(err)
	}
	info := domain.StripeAccountInfo{StripeAccountID: acct.ID}
	if acct.BusinessProfile != nil {
		info.BusinessName = acct.BusinessProfile.Name
	}
	return info, nil
}

// ListBalanceTransactions recorre todas las paginas hasta agotar los
// resultados o llegar a q.Max.
func (c *Client) ListBalanceTransactions(ctx context.Context, q domain.BalanceTransactionQuery) (domain.BalanceTransactionPage, error) {
	params := &stripe.BalanceTransactionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(pageSize)
	if q.Max > 0 && q.Max < pageSize {
		params.Limit = stripe.Int64(int64(q.Max))
	}
	if !q.Since.IsZero() {
		params.CreatedRange = &stripe.RangeQueryParams{GreaterThanOrEqual: q.Since.Unix()}
	}
	if q.Type != "" {
		params.Type = stripe.String(q.Type)
	}
	if q.ExpandSource {
		params.AddExpand("data.source")
	}

	var page domain.BalanceTransactionPage
	it := c.api.BalanceTransactions.List(params)
	for (q.Max <= 0 || len(page.Transactions) < q.Max) && it.Next() {
		page.Transactions = append(page.Transactions, transactionFrom(it.BalanceTransaction()))
	}
	if err := it.Err(); err != nil {
		return domain.BalanceTransactionPage{}, classifyError(err)
	}
	if q.Max > 0 && len(page.Transactions) == q.Max {
		page.Truncated = moreAvailable(it, page.Transactions[q.Max-1].ID)
	}
	return page, nil
}

// moreAvailable indica si quedan movimientos sin leer, sin pedir otra pagina.
func moreAvailable(it *balancetransaction.Iter, lastID string) bool {
	if meta := it.Meta(); meta != nil && meta.HasMore {
		return true
	}
	list := it.BalanceTransactionList()
	if list == nil || len(list.Data) == 0 {
		return false
	}
	return list.Data[len(list.Data)-1].ID != lastID
}

func transactionFrom(tx *stripe.BalanceTransaction) domain.BalanceTransaction {
	out := domain.BalanceTransaction{
		ID:                tx.ID,
		Amount:            tx.Amount,
		Fee:               tx.Fee,
		Net:               tx.Net,
		Currency:          string(tx.Currency),
		Type:              string(tx.Type),
		Status:            string(tx.Status),
		ReportingCategory: string(tx.ReportingCategory),
		Description:       tx.Description,
		Created:           time.Unix(tx.Created, 0).UTC(),
		AvailableOn:       time.Unix(tx.AvailableOn, 0).UTC(),
	}
	if tx.Source != nil {
		out.SourceID = tx.Source.ID
	}
	return out
}

// classifyError decide el tipo del error de Stripe en un unico lugar.
func classifyError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return &domain.ExternalError{Service: serviceName, Kind: domain.KindUnknown, Err: err}
	}
	return &domain.ExternalError{Service: serviceName, Kind: kindOf(serr), Err: err}
}

func kindOf(serr *stripe.Error) domain.ExternalErrorKind {
	switch {
	case serr.HTTPStatusCode == http.StatusForbidden,
		strings.Contains(serr.Msg, "does not have the required permissions"):
		return domain.KindPermissionDenied
	case serr.HTTPStatusCode == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case serr.HTTPStatusCode == http.StatusTooManyRequests, serr.Code == stripe.ErrorCodeRateLimit:
		return domain.KindRateLimited
	case serr.HTTPStatusCode == http.StatusNotFound:
		return domain.KindNotFound
	default:
		return domain.KindUnknown
	}
}
