package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributionPolicy decides whether a quantity-tracked row that sells out
// records the buyer's name.
type AttributionPolicy string

const (
	AttributeOnSellout AttributionPolicy = "sellout"
	AttributeNever     AttributionPolicy = "never"
)

func (p AttributionPolicy) Valid() bool {
	return p == AttributeOnSellout || p == AttributeNever
}

// NewProductInfo is the shared part of every product generated by one batch.
type NewProductInfo struct {
	ProductName   string          `json:"productName" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	PurchaseDate  time.Time       `json:"purchaseDate" validate:"required"`
	PurchasePrice decimal.Decimal `json:"purchasePrice" validate:"gte=0,lt=1000000000000"`
	SellingPrice  decimal.Decimal `json:"sellingPrice" validate:"gte=0,lt=1000000000000"`
	Notes         string          `json:"notes"`
}

// TrackingDetails is either a list of serials (one product each) or a single
// bulk quantity. Exactly one variant may be set.
type TrackingDetails struct {
	TrackingType TrackingType `json:"trackingType" validate:"oneof=imei quantity"`
	IMEIs        []string     `json:"imeis,omitempty"`
	Quantity     int          `json:"quantity,omitempty"`
}

// EffectiveQuantity is the number of units the batch adds to stock.
func (d TrackingDetails) EffectiveQuantity() int {
	if d.TrackingType == TrackingIMEI {
		return len(d.IMEIs)
	}

	return d.Quantity
}

func (d TrackingDetails) check() error {
	switch d.TrackingType {
	case TrackingIMEI:
		if len(d.IMEIs) == 0 {
			return &ValidationError{Field: "details.imeis", Reason: "needs at least 1 serial"}
		}

		if d.Quantity != 0 {
			return &ValidationError{Field: "details.quantity", Reason: "must be omitted for imei batches"}
		}

		for i, imei := range d.IMEIs {
			if NormalizeName(imei) == "" {
				return &ValidationError{Field: fmt.Sprintf("details.imeis[%d]", i), Reason: "is required"}
			}
		}
	case TrackingQuantity:
		if d.Quantity <= 0 {
			return &ValidationError{Field: "details.quantity", Reason: "must be greater than 0"}
		}

		if d.Quantity > MaxQuantity {
			return &ValidationError{Field: "details.quantity", Reason: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}

		if len(d.IMEIs) > 0 {
			return &ValidationError{Field: "details.imeis", Reason: "must be omitted for quantity batches"}
		}
	default:
		return &ValidationError{Field: "details.trackingType", Reason: "must be one of: imei quantity"}
	}

	return nil
}

// RestockBatch is one purchase order line.
type RestockBatch struct {
	ProductInfo NewProductInfo  `json:"productInfo"`
	Details     TrackingDetails `json:"details"`
}

// Validate checks the batch shape without touching the store.
func (b RestockBatch) Validate() error {
	if err := Validate(b); err != nil {
		return err
	}

	return b.Details.check()
}

// Ledger owns every change to a product's status, quantity and sale
// attribution.
type Ledger struct {
	attribution AttributionPolicy
	now         func() time.Time
}

func NewLedger(attribution AttributionPolicy) *Ledger {
	if !attribution.Valid() {
		attribution = AttributeOnSellout
	}

	return &Ledger{attribution: attribution, now: time.Now}
}

// ApplyRestock expands a batch into products owned by purchase order poID and
// inserts them through tx. Any serial already present in the store or repeated
// in the batch rejects the whole batch.
func (l *Ledger) ApplyRestock(ctx context.Context, tx Tx, poID uuid.UUID, batch RestockBatch) ([]*Product, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	info := batch.ProductInfo

	category, err := l.requireCategory(ctx, tx, info.Category)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	base := Product{
		ProductName:     NormalizeName(info.ProductName),
		Category:        category,
		PurchaseDate:    info.PurchaseDate,
		PurchasePrice:   NormalizeMoney(info.PurchasePrice),
		SellingPrice:    NormalizeMoney(info.SellingPrice),
		Status:          StatusAvailable,
		TrackingType:    batch.Details.TrackingType,
		Notes:           info.Notes,
		PurchaseOrderID: &poID,
		CreatedAt:       now,
	}

	// Rounding to cents can carry a price onto the bound.
	if err := checkMoney("productInfo.purchasePrice", base.PurchasePrice); err != nil {
		return nil, err
	}

	if err := checkMoney("productInfo.sellingPrice", base.SellingPrice); err != nil {
		return nil, err
	}

	var products []*Product

	switch batch.Details.TrackingType {
	case TrackingIMEI:
		imeis, err := l.claimIMEIs(ctx, tx, batch.Details.IMEIs, uuid.Nil)
		if err != nil {
			return nil, err
		}

		products = make([]*Product, 0, len(imeis))
		for _, imei := range imeis {
			p := base.Clone()
			p.ID = uuid.New()
			p.IMEI = &imei
			p.Quantity = 1
			products = append(products, p)
		}
	case TrackingQuantity:
		p := base.Clone()
		p.ID = uuid.New()
		p.Quantity = batch.Details.Quantity
		products = []*Product{p}
	}

	if err := tx.CreateProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("creating restocked products: %w", err)
	}

	return products, nil
}

// Register inserts operator-entered products (the manual add path).
func (l *Ledger) Register(ctx context.Context, tx Tx, products []*Product) error {
	if len(products) == 0 {
		return &ValidationError{Field: "products", Reason: "needs at least 1 entries"}
	}

	var serials []string

	now := l.now().UTC()
	for i, p := range products {
		if p.Status == "" {
			p.Status = StatusAvailable
		}

		if err := l.normalize(ctx, tx, p); err != nil {
			return indexed(err, i)
		}

		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}

		p.CreatedAt = now

		if p.IMEI != nil {
			serials = append(serials, *p.IMEI)
		}
	}

	if _, err := l.claimIMEIs(ctx, tx, serials, uuid.Nil); err != nil {
		return err
	}

	if err := tx.CreateProducts(ctx, products); err != nil {
		return fmt.Errorf("creating products: %w", err)
	}

	return nil
}

// Revise validates an edited product against its stored version.
func (l *Ledger) Revise(ctx context.Context, tx Tx, p *Product) error {
	if err := l.normalize(ctx, tx, p); err != nil {
		return err
	}

	if p.IMEI != nil {
		if _, err := l.claimIMEIs(ctx, tx, []string{*p.IMEI}, p.ID); err != nil {
			return err
		}
	}

	now := l.now().UTC()
	p.UpdatedAt = &now

	return nil
}

// ApplySale takes requestedQty units out of p for invoice invoiceID and
// returns the quantity actually sold. Serialized products always sell one unit.
func (l *Ledger) ApplySale(p *Product, requestedQty int, buyerName string, invoiceID uuid.UUID) (int, error) {
	if p.TrackingType == TrackingIMEI {
		requestedQty = 1
	}

	if requestedQty <= 0 {
		return 0, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	if p.Status != StatusAvailable {
		return 0, &InsufficientStockError{ProductName: p.ProductName, Requested: requestedQty, Available: 0}
	}

	now := l.now().UTC()

	switch p.TrackingType {
	case TrackingIMEI:
		p.Status = StatusSold
		p.CustomerName = namePtr(buyerName)
	default:
		remaining := p.Quantity - requestedQty
		if remaining < 0 {
			return 0, &InsufficientStockError{ProductName: p.ProductName, Requested: requestedQty, Available: p.Quantity}
		}

		p.Quantity = remaining
		if remaining == 0 {
			p.Status = StatusSold

			if l.attribution == AttributeOnSellout {
				p.CustomerName = namePtr(buyerName)
			}
		}
	}

	p.InvoiceID = &invoiceID
	p.UpdatedAt = &now

	return requestedQty, nil
}

// Archive hides a product from active views.
func (l *Ledger) Archive(p *Product) error {
	if p.Status == StatusArchived {
		return &ConflictError{Kind: "product", Key: p.ID.String(), Reason: "already archived"}
	}

	now := l.now().UTC()
	p.Status = StatusArchived
	p.UpdatedAt = &now

	return nil
}

// Unarchive returns an archived product to Available and drops its buyer name.
// The invoice reference is kept.
func (l *Ledger) Unarchive(p *Product) error {
	if p.Status != StatusArchived {
		return &ConflictError{Kind: "product", Key: p.ID.String(), Reason: "not archived"}
	}

	now := l.now().UTC()
	p.Status = StatusAvailable
	p.CustomerName = nil
	p.UpdatedAt = &now

	return nil
}

// CheckInvariant verifies the tracking and pricing rules of a product.
func CheckInvariant(p *Product) error {
	if p.ProductName == "" {
		return &ValidationError{Field: "productName", Reason: "is required"}
	}

	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be one of: Available Sold Archived"}
	}

	if err := checkMoney("purchasePrice", p.PurchasePrice); err != nil {
		return err
	}

	if err := checkMoney("sellingPrice", p.SellingPrice); err != nil {
		return err
	}

	switch p.TrackingType {
	case TrackingIMEI:
		if p.IMEI == nil || *p.IMEI == "" {
			return &ValidationError{Field: "imei", Reason: "is required for imei tracking"}
		}

		if p.Quantity != 1 {
			return &ValidationError{Field: "quantity", Reason: "must be 1 for imei tracking"}
		}
	case TrackingQuantity:
		if p.IMEI != nil {
			return &ValidationError{Field: "imei", Reason: "must be empty for quantity tracking"}
		}

		if p.Quantity < 0 {
			return &ValidationError{Field: "quantity", Reason: "must be greater than or equal to 0"}
		}

		if p.Quantity > MaxQuantity {
			return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}
	default:
		return &ValidationError{Field: "trackingType", Reason: "must be one of: imei quantity"}
	}

	return nil
}

func (l *Ledger) normalize(ctx context.Context, tx Tx, p *Product) error {
	p.ProductName = NormalizeName(p.ProductName)
	p.PurchasePrice = NormalizeMoney(p.PurchasePrice)
	p.SellingPrice = NormalizeMoney(p.SellingPrice)

	if p.IMEI != nil {
		imei := NormalizeName(*p.IMEI)
		p.IMEI = &imei

		if imei == "" {
			p.IMEI = nil
		}
	}

	if p.TrackingType == TrackingIMEI && p.Quantity == 0 {
		p.Quantity = 1
	}

	if err := CheckInvariant(p); err != nil {
		return err
	}

	category, err := l.requireCategory(ctx, tx, p.Category)
	if err != nil {
		return err
	}

	p.Category = category

	return nil
}

func (l *Ledger) requireCategory(ctx context.Context, tx Tx, name string) (string, error) {
	name = NormalizeName(name)
	if name == "" {
		return "", &ValidationError{Field: "category", Reason: "is required"}
	}

	c, err := tx.FindCategoryByName(ctx, name)
	if err != nil {
		return "", err
	}

	return c.Name, nil
}

// claimIMEIs normalizes serials and rejects duplicates inside the list or
// against the store.
func (l *Ledger) claimIMEIs(ctx context.Context, tx Tx, raw []string, exclude uuid.UUID) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(raw))
	imeis := make([]string, 0, len(raw))

	for _, r := range raw {
		imei := NormalizeName(r)
		if _, dup := seen[imei]; dup {
			return nil, &ConflictError{Kind: "imei", Key: imei, Reason: "repeated within the batch"}
		}

		seen[imei] = struct{}{}
		imeis = append(imeis, imei)
	}

	taken, err := tx.FindIMEIs(ctx, imeis, exclude)
	if err != nil {
		return nil, fmt.Errorf("checking imeis: %w", err)
	}

	if len(taken) > 0 {
		return nil, &ConflictError{Kind: "imei", Key: taken[0], Reason: "already exists in inventory"}
	}

	return imeis, nil
}

func indexed(err error, i int) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: fmt.Sprintf("[%d].%s", i, ve.Field), Reason: ve.Reason}
	}

	return err
}

func namePtr(name string) *string {
	name = NormalizeName(name)
	if name == "" {
		return nil
	}

	return &name
}
