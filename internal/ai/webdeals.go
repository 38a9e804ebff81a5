package ai

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"voicecommerce_backend/internal/tickets/domain"

	"golang.org/x/sync/errgroup"
)

// webDealAngles are the parallel search framings used for best-effort online
// alternatives. Each angle is a separate model call; partial failure is fine.
var webDealAngles = []string{
	"major Indian e-commerce marketplaces (Amazon.in, Flipkart)",
	"quick-commerce and hyperlocal delivery apps",
	"the manufacturer's own online store or authorized resellers",
	"refurbished or open-box listings at a lower price",
}

type webDealsReply struct {
	Deals []WebDealResult `json:"deals"`
}

// FindWebDeals runs all search angles concurrently and merges their results.
// Never returns an error: the web-deals search is best-effort by contract
// and degrades to an empty list.
func (s *Service) FindWebDeals(ctx context.Context, product *domain.ResearchedProduct) []domain.WebDeal {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return nil
	}

	var mu sync.Mutex
	var merged []domain.WebDeal

	group, groupCtx := errgroup.WithContext(ctx)
	for _, angle := range webDealAngles {
		group.Go(func() error {
			var reply webDealsReply
			err := s.generateJSON(groupCtx, "web_deals", map[string]string{
				"ProductJSON": string(productJSON),
				"Angle":       angle,
			}, &reply)
			if err != nil {
				s.log.Warn("web deals angle failed", "angle", angle, "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, deal := range reply.Deals {
				if strings.TrimSpace(deal.Title) == "" {
					continue
				}
				merged = append(merged, domain.WebDeal{
					Title:  deal.Title,
					Seller: deal.Seller,
					Price:  deal.Price,
					URL:    deal.URL,
					Notes:  deal.Notes,
				})
			}
			return nil
		})
	}
	_ = group.Wait()

	return merged
}
