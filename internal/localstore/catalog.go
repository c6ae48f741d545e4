package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/enums"
)

// Catalog is the JSON document the local backend serves products from.
type Catalog struct {
	BundleID string         `json:"bundleId"`
	Products []CatalogEntry `json:"products"`
}

// CatalogEntry is one product definition. Behavior selects the purchase
// outcome the backend simulates for the product, defaulting to success.
type CatalogEntry struct {
	ID                string             `json:"id"`
	Type              string             `json:"type"`
	DisplayName       string             `json:"displayName"`
	Description       string             `json:"description"`
	Price             string             `json:"price"`
	DisplayPrice      string             `json:"displayPrice"`
	IsFamilyShareable bool               `json:"isFamilyShareable"`
	Subscription      *subscriptionEntry `json:"subscription"`
	Behavior          string             `json:"behavior"`
}

type subscriptionEntry struct {
	GroupID           string       `json:"groupId"`
	Period            periodEntry  `json:"period"`
	IntroductoryOffer *offerEntry  `json:"introductoryOffer"`
	PromotionalOffers []offerEntry `json:"promotionalOffers"`
}

type offerEntry struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Price        string      `json:"price"`
	DisplayPrice string      `json:"displayPrice"`
	Period       periodEntry `json:"period"`
	PeriodCount  int         `json:"periodCount"`
	PaymentMode  string      `json:"paymentMode"`
}

type periodEntry struct {
	Unit  string `json:"unit"`
	Value int    `json:"value"`
}

// Purchase behaviors the local backend can simulate.
const (
	BehaviorSuccess    = "success"
	BehaviorCancelled  = "cancelled"
	BehaviorPending    = "pending"
	BehaviorUnverified = "unverified"
)

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for i := range c.Products {
		entry := &c.Products[i]
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("catalog product %d: id is required", i)
		}
		if seen[entry.ID] {
			return fmt.Errorf("catalog product %q: duplicate id", entry.ID)
		}
		seen[entry.ID] = true
		if _, err := entry.product(); err != nil {
			return fmt.Errorf("catalog product %q: %w", entry.ID, err)
		}
		switch entry.Behavior {
		case "", BehaviorSuccess, BehaviorCancelled, BehaviorPending, BehaviorUnverified:
		default:
			return fmt.Errorf("catalog product %q: unsupported behavior %q", entry.ID, entry.Behavior)
		}
	}
	return nil
}

func (e *CatalogEntry) product() (storekit.Product, error) {
	productType, err := enums.ParseProductType(e.Type)
	if err != nil {
		return storekit.Product{}, err
	}
	price, err := decimal.NewFromString(e.Price)
	if err != nil {
		return storekit.Product{}, fmt.Errorf("invalid price: %w", err)
	}

	product := storekit.Product{
		ID:                e.ID,
		Type:              productType,
		DisplayName:       e.DisplayName,
		Description:       e.Description,
		Price:             price,
		DisplayPrice:      e.DisplayPrice,
		IsFamilyShareable: e.IsFamilyShareable,
	}

	if e.Subscription != nil {
		info, err := e.Subscription.info()
		if err != nil {
			return storekit.Product{}, err
		}
		product.Subscription = &info
	}
	return product, nil
}

func (s *subscriptionEntry) info() (storekit.SubscriptionInfo, error) {
	period, err := s.Period.period()
	if err != nil {
		return storekit.SubscriptionInfo{}, err
	}
	info := storekit.SubscriptionInfo{
		SubscriptionGroupID: s.GroupID,
		SubscriptionPeriod:  period,
	}
	if s.IntroductoryOffer != nil {
		offer, err := s.IntroductoryOffer.offer()
		if err != nil {
			return storekit.SubscriptionInfo{}, err
		}
		info.IntroductoryOffer = &offer
	}
	for _, entry := range s.PromotionalOffers {
		offer, err := entry.offer()
		if err != nil {
			return storekit.SubscriptionInfo{}, err
		}
		info.PromotionalOffers = append(info.PromotionalOffers, offer)
	}
	return info, nil
}

func (o *offerEntry) offer() (storekit.SubscriptionOffer, error) {
	offerType, err := enums.ParseOfferType(o.Type)
	if err != nil {
		return storekit.SubscriptionOffer{}, err
	}
	paymentMode, err := enums.ParsePaymentMode(o.PaymentMode)
	if err != nil {
		return storekit.SubscriptionOffer{}, err
	}
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return storekit.SubscriptionOffer{}, fmt.Errorf("invalid offer price: %w", err)
	}
	period, err := o.Period.period()
	if err != nil {
		return storekit.SubscriptionOffer{}, err
	}
	return storekit.SubscriptionOffer{
		ID:           o.ID,
		Type:         offerType,
		Price:        price,
		DisplayPrice: o.DisplayPrice,
		Period:       period,
		PeriodCount:  o.PeriodCount,
		PaymentMode:  paymentMode,
	}, nil
}

func (p *periodEntry) period() (storekit.SubscriptionPeriod, error) {
	unit, err := enums.ParsePeriodUnit(p.Unit)
	if err != nil {
		return storekit.SubscriptionPeriod{}, err
	}
	if p.Value <= 0 {
		return storekit.SubscriptionPeriod{}, fmt.Errorf("period value must be positive, got %d", p.Value)
	}
	return storekit.SubscriptionPeriod{Unit: unit, Value: p.Value}, nil
}
