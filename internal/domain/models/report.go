package models

import "time"

// DailyReport represents the aggregated daily data archived in MongoDB.
type DailyReport struct {
	Date           time.Time `bson:"date" json:"date"`
	EggsCollected  int       `bson:"eggs_collected" json:"eggs_collected"`
	BrokenEggs     int       `bson:"broken_eggs" json:"broken_eggs"`
	Crates         int       `bson:"crates" json:"crates"`
	Pieces         int       `bson:"pieces" json:"pieces"`
	Mortality      int       `bson:"mortality" json:"mortality"`
	FeedConsumed   float64   `bson:"feed_consumed" json:"feed_consumed"`
	SalesAmount    float64   `bson:"sales_amount" json:"sales_amount"`
	ActiveBirds    int       `bson:"active_birds" json:"active_birds"`
	ProductionRate float64   `bson:"production_rate" json:"production_rate"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Suggestion is an archived AI reply together with the metrics it was asked about.
type Suggestion struct {
	ID              string    `bson:"_id" json:"id"`
	RequestedBy     string    `bson:"requested_by" json:"requested_by"`
	ProductionRate  float64   `bson:"production_rate" json:"production_rate"`
	FeedConsumption float64   `bson:"feed_consumption" json:"feed_consumption"`
	MortalityRate   float64   `bson:"mortality_rate" json:"mortality_rate"`
	BirdCount       int       `bson:"bird_count" json:"bird_count"`
	Text            string    `bson:"text" json:"text"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
