package crm

// LoginResult describes the outcome of a login attempt that reached the CRM.
type LoginResult struct {
	Success bool
	Message string
	// UserName is the display name of the logged in user.
	UserName   string
	OfficeName string
}

// ProductRecord is one price list row of the CRM.
type ProductRecord struct {
	Model            string
	Name             string
	ProductID        int
	LineID           int
	LineCode         string
	Brand            string
	Series           string
	LifeCycle        string
	LifeCycleMeaning string

	Price          float64
	WholesalePrice float64
	CatalogPrice   float64
	// DiscountBand is the raw "<high>~<low>" discount multiplier pair.
	DiscountBand string
	// HighDiscountPrice and LowDiscountPrice are nil when the band could not
	// be applied.
	HighDiscountPrice *int
	LowDiscountPrice  *int

	// StartQty and EndQty bound the quantity tier this price applies to.
	StartQty       int
	EndQty         int
	Valid          bool
	CreationDate   string
	LastUpdateDate string

	// ExactMatch is true when Model equals the queried model, ignoring case.
	ExactMatch bool
}

// InventoryRecord is the stock of a model in one warehouse.
type InventoryRecord struct {
	Model            string
	Name             string
	LifeCycleMeaning string
	// SubInventory is the warehouse name.
	SubInventory string
	Quantity     int
	InTransit    int
	TodayOut     int
	BoxNumber    string
	PriceInfo    string
}
