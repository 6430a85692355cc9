package models

import "time"

// Table names shared by every storage backend.
const (
	TableEggCollection  = "egg_collection"
	TableMortality      = "mortality"
	TableFeedAllocation = "feed_allocation"
	TableFeedStock      = "feed_stock"
	TableSales          = "sales"
	TableTasks          = "tasks"
	TableProfiles       = "profiles"
)

// CrateSize is the number of eggs packed in one crate.
const CrateSize = 30

// SplitCrates converts a raw egg count into full crates and loose pieces.
func SplitCrates(totalEggs int) (crates, pieces int) {
	if totalEggs <= 0 {
		return 0, 0
	}
	return totalEggs / CrateSize, totalEggs % CrateSize
}

// FeedUnit is the unit a feed quantity is expressed in.
type FeedUnit string

const (
	UnitBags FeedUnit = "bags"
	UnitKg   FeedUnit = "kg"
)

// EggCollection captures one egg pickup in a shed.
type EggCollection struct {
	ID             string    `json:"id" gorm:"column:id;primaryKey"`
	Date           Date      `json:"date" gorm:"column:date"`
	Shed           string    `json:"shed" gorm:"column:shed"`
	CollectionTime string    `json:"collection_time" gorm:"column:collection_time"`
	TotalEggs      int       `json:"total_eggs" gorm:"column:total_eggs"`
	BrokenEggs     int       `json:"broken_eggs" gorm:"column:broken_eggs"`
	Crates         int       `json:"crates" gorm:"column:crates"`
	Pieces         int       `json:"pieces" gorm:"column:pieces"`
	CollectedBy    string    `json:"collected_by" gorm:"column:collected_by"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName implements gorm's tabler.
func (EggCollection) TableName() string { return TableEggCollection }

// Mortality captures birds found dead in a shed on a given day.
type Mortality struct {
	ID         string    `json:"id" gorm:"column:id;primaryKey"`
	Date       Date      `json:"date" gorm:"column:date"`
	Shed       string    `json:"shed" gorm:"column:shed"`
	Count      int       `json:"count" gorm:"column:count"`
	Cause      string    `json:"cause" gorm:"column:cause"`
	RecordedBy string    `json:"recorded_by" gorm:"column:recorded_by"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Mortality) TableName() string { return TableMortality }

// FeedAllocation captures feed handed out to a shed.
type FeedAllocation struct {
	ID                string    `json:"id" gorm:"column:id;primaryKey"`
	Date              Date      `json:"date" gorm:"column:date"`
	Shed              string    `json:"shed" gorm:"column:shed"`
	FeedType          string    `json:"feed_type" gorm:"column:feed_type"`
	QuantityAllocated float64   `json:"quantity_allocated" gorm:"column:quantity_allocated"`
	Unit              FeedUnit  `json:"unit" gorm:"column:unit"`
	AllocatedBy       string    `json:"allocated_by" gorm:"column:allocated_by"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at"`
}

func (FeedAllocation) TableName() string { return TableFeedAllocation }

// FeedStock captures feed received into the store.
type FeedStock struct {
	ID        string    `json:"id" gorm:"column:id;primaryKey"`
	Date      Date      `json:"date" gorm:"column:date"`
	FeedType  string    `json:"feed_type" gorm:"column:feed_type"`
	Quantity  float64   `json:"quantity" gorm:"column:quantity"`
	Unit      FeedUnit  `json:"unit" gorm:"column:unit"`
	Supplier  string    `json:"supplier" gorm:"column:supplier"`
	Cost      float64   `json:"cost" gorm:"column:cost"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (FeedStock) TableName() string { return TableFeedStock }
