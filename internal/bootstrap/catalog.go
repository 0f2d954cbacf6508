package bootstrap

import (
	"strings"
	"unicode"

	domain "github.com/abhirana780/medical-backend/internal/domain"
)

const (
	seedIDPrefix      = "prd_seed_"
	defaultSeedStock  = 25
	defaultSeedSource = "builtin"
)

func price(units float64) *float64 { return &units }

// defaultCatalog is the medical-supply catalog served when no catalog object is configured.
// Seeded products start without reviews so their rating aggregate is zero.
var defaultCatalog = []catalogEntry{
	{Name: `Mobb Aluminum Rolling Walker 8" Wheels - Blue`, Category: "Mobility", Price: 189.99, IsNewArrival: true,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/collections/chair_medium.jpg?v=1513020067",
		Description: `Lightweight aluminum frame with 8" wheels for superior mobility.`},
	{Name: "Drive Airgo Ultra-Light 6 Rollator", Category: "Mobility", Price: 199.95, IsSale: true,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/airgoultralight_large.jpg?v=1532370914",
		Description: "Ultra-light frame makes lifting and storage easy."},
	{Name: "Drive Travelite Transport Chair", Category: "Mobility", Price: 280.99, OldPrice: price(320), IsNewArrival: true,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/travelite_large.jpg?v=1532366852",
		Description: "Lightweight and strong, comes with a carry bag."},
	{Name: "Drive TranSport Aluminum Transport Chair", Category: "Mobility", Price: 299.95,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/transportaluminumchair_large.jpg?v=1532366223",
		Description: "Compact design folds for easy transport and storage."},
	{Name: "Drive Super Light, Folding Transport Chair", Category: "Mobility", Price: 329.95, OldPrice: price(350), IsSale: true,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/superlighttransport_large.jpg?v=1532366571",
		Description: "Weighs only 19 lbs. Great for travel."},
	{Name: "Drive Steel Transport Chair", Category: "Mobility", Price: 159.95,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/steeltransport_large.jpg?v=1532363985",
		Description: "Durable steel frame provides reliable stability."},
	{Name: "Drive Phoenix 4 Wheel Heavy Duty Scooter", Category: "Mobility", Price: 1499.95, OldPrice: price(1650), IsNewArrival: true,
		Image:       "https://www.scottsmedicalsupply.com/cdn/shop/products/scooter_large.jpg?v=1533225616",
		Description: "Heavy duty scooter with 350 lb weight capacity."},
	{Name: "Drive Pediatric Viper Plus Reclining Wheelchair", Category: "Mobility", Price: 809.95, IsNewArrival: true, IsSale: true,
		Image:       "https://images.unsplash.com/photo-1584515933487-779824d29309?q=80&w=400&auto=format&fit=crop",
		Description: "State-of-the-art reclining wheelchair for pediatric use."},
	{Name: "Hill-Rom Versa Care Bed", Category: "Hospital", Price: 4500, IsNewArrival: true,
		Image:       "https://images.unsplash.com/photo-1516574187841-693083f0493c?q=80&w=400&auto=format&fit=crop",
		Description: "Advanced hospital bed with pressure redistribution surface."},
	{Name: "Welch Allyn Diagnostic Set", Category: "Doctor", Price: 650,
		Image:       "https://images.unsplash.com/photo-1579684385127-1ef15d508118?q=80&w=400&auto=format&fit=crop",
		Description: "Complete diagnostic set including ophthalmoscope and otoscope."},
	{Name: "Ritter 95 Exam Table", Category: "Hospital", Price: 1200,
		Image:       "https://images.unsplash.com/photo-1519494026892-80bbd2d6fd0d?q=80&w=400&auto=format&fit=crop",
		Description: "Classic hardwood exam table with adjustable backrest."},
	{Name: "Surgical Gloves (Box of 100)", Category: "Hospital", Price: 25, IsSale: true,
		Image:       "https://images.unsplash.com/photo-1583947215259-38e31be8751f?q=80&w=400&auto=format&fit=crop",
		Description: "Sterile latex-free surgical gloves."},
	{Name: "Digital Blood Pressure Monitor", Category: "Doctor", Price: 85, IsNewArrival: true,
		Image:       "https://images.unsplash.com/photo-1631549916768-4119b2e5f926?q=80&w=400&auto=format&fit=crop",
		Description: "Accurate and easy-to-use upper arm blood pressure monitor."},
	{Name: "Sterile Gauze Pads (Pack of 50)", Category: "Wound Care", Price: 15.99,
		Image:       "https://images.unsplash.com/photo-1631549916768-4119b2e5f926?q=80&w=400&auto=format&fit=crop",
		Description: "Highly absorbent sterile gauze pads for wound dressing."},
	{Name: "Neoprene Knee Brace", Category: "Orthopedic", Price: 45,
		Image:       "https://images.unsplash.com/photo-1579684385127-1ef15d508118?q=80&w=400&auto=format&fit=crop",
		Description: "Supportive knee brace for injury recovery and prevention."},
	{Name: "Accu-Chek Guide Me Glucose Monitor", Category: "Diabetic", Price: 29.99,
		Image:       "https://images.unsplash.com/photo-1631549916768-4119b2e5f926?q=80&w=400&auto=format&fit=crop",
		Description: "Simple and accurate blood glucose monitoring system."},
}

// catalogEntry is one product in the seed catalog. The same shape is read from the catalog
// object in Cloud Storage; prices are in major units, as the storefront sends them.
type catalogEntry struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	OldPrice     *float64 `json:"oldPrice,omitempty"`
	Image        string   `json:"image"`
	Description  string   `json:"description"`
	CountInStock *int     `json:"countInStock,omitempty"`
	IsNewArrival bool     `json:"isNewArrival"`
	IsSale       bool     `json:"isSale"`
}

func (e catalogEntry) toProduct() domain.Product {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = seedIDPrefix + slug(e.Name)
	}
	stock := defaultSeedStock
	if e.CountInStock != nil {
		stock = *e.CountInStock
	}
	var oldPrice *int64
	if e.OldPrice != nil {
		cents := domain.CentsFromUnits(*e.OldPrice)
		oldPrice = &cents
	}
	return domain.Product{
		ID:           id,
		Name:         strings.TrimSpace(e.Name),
		Category:     strings.TrimSpace(e.Category),
		Price:        domain.CentsFromUnits(e.Price),
		OldPrice:     oldPrice,
		Image:        strings.TrimSpace(e.Image),
		Description:  strings.TrimSpace(e.Description),
		CountInStock: stock,
		IsNewArrival: e.IsNewArrival,
		IsSale:       e.IsSale,
	}
}

// slug lowercases name and joins its alphanumeric runs with '-'.
func slug(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
