package models

// Reward is a catalog item students can redeem points for.
type Reward struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Category     string `json:"category" db:"category"`
	PointCost    int    `json:"point_cost" db:"point_cost"`
	InitialStock int    `json:"initial_stock" db:"initial_stock"`
	Stock        int    `json:"stock" db:"stock"`
}
