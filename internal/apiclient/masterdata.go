package apiclient

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/diewo77/go-contracts/internal/contract"
	"github.com/diewo77/go-contracts/internal/pricing"
)

// MasterData is the reference data the wizard's pickers draw from.
type MasterData struct {
	TaxRates   []pricing.Tax       `json:"tax_rates"`
	Categories []contract.Category `json:"categories"`
	Templates  []contract.Template `json:"templates"`
	Catalog    []contract.LineItem `json:"catalog"`
}

// FetchMasterData loads every master-data list concurrently. The first
// failure cancels the remaining requests.
func (c *Client) FetchMasterData(ctx context.Context) (MasterData, error) {
	var md MasterData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.fetch(ctx, "/tax-rates", &md.TaxRates) })
	g.Go(func() error { return c.fetch(ctx, "/categories", &md.Categories) })
	g.Go(func() error { return c.fetch(ctx, "/templates", &md.Templates) })
	g.Go(func() error { return c.fetch(ctx, "/catalog", &md.Catalog) })
	if err := g.Wait(); err != nil {
		return MasterData{}, err
	}
	for i := range md.Catalog {
		md.Catalog[i].Source = contract.SourceCatalog
	}
	return md, nil
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	if err := c.Get(ctx, path, out); err != nil {
		return fmt.Errorf("master data %s: %w", path, err)
	}
	return nil
}
