package models

import (
    "time"

    "gorm.io/gorm"
)

// CarRegistration is one monthly new-registration count.
// Natural key: month, make, fuel_type, vehicle_type.
type CarRegistration struct {
    ID          uint   `json:"id" gorm:"primaryKey"`
    Month       string `json:"month" gorm:"size:7;not null;uniqueIndex:cars_natural_key,priority:1;index"`
    Make        string `json:"make" gorm:"not null;uniqueIndex:cars_natural_key,priority:2"`
    FuelType    string `json:"fuel_type" gorm:"not null;uniqueIndex:cars_natural_key,priority:3"`
    VehicleType string `json:"vehicle_type" gorm:"not null;uniqueIndex:cars_natural_key,priority:4"`
    Number      int64  `json:"number" gorm:"not null;default:0"`
}

func (CarRegistration) TableName() string { return "cars" }

func (c CarRegistration) Values() []any {
    return []any{c.Month, c.Make, c.FuelType, c.VehicleType, c.Number}
}

// COEResult is one bidding exercise outcome for a vehicle class.
// Natural key: month, bidding_no, vehicle_class.
type COEResult struct {
    ID           uint   `json:"id" gorm:"primaryKey"`
    Month        string `json:"month" gorm:"size:7;not null;uniqueIndex:coe_natural_key,priority:1;index"`
    BiddingNo    int    `json:"bidding_no" gorm:"not null;uniqueIndex:coe_natural_key,priority:2"`
    VehicleClass string `json:"vehicle_class" gorm:"not null;uniqueIndex:coe_natural_key,priority:3"`
    Quota        int64  `json:"quota"`
    BidsSuccess  int64  `json:"bids_success"`
    BidsReceived int64  `json:"bids_received"`
    Premium      int64  `json:"premium"`
}

func (COEResult) TableName() string { return "coe" }

func (c COEResult) Values() []any {
    return []any{c.Month, c.BiddingNo, c.VehicleClass, c.Quota, c.BidsSuccess, c.BidsReceived, c.Premium}
}

// Deregistration is one monthly deregistration count per make. Category
// columns are nil where the source publishes a placeholder.
// Natural key: month, make.
type Deregistration struct {
    ID        uint   `json:"id" gorm:"primaryKey"`
    Month     string `json:"month" gorm:"size:7;not null;uniqueIndex:deregistrations_natural_key,priority:1;index"`
    Make      string `json:"make" gorm:"not null;uniqueIndex:deregistrations_natural_key,priority:2"`
    CategoryA *int64 `json:"category_a"`
    CategoryB *int64 `json:"category_b"`
    CategoryC *int64 `json:"category_c"`
    CategoryD *int64 `json:"category_d"`
    CategoryE *int64 `json:"category_e"`
    Taxi      *int64 `json:"taxi"`
    Total     int64  `json:"total" gorm:"not null;default:0"`
}

func (Deregistration) TableName() string { return "deregistrations" }

func (d Deregistration) Values() []any {
    return []any{d.Month, d.Make, d.CategoryA, d.CategoryB, d.CategoryC, d.CategoryD, d.CategoryE, d.Taxi, d.Total}
}

// Post is generated content for one period of one dataset.
// Natural key: month, data_type.
type Post struct {
    ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
    Month     string         `json:"month" gorm:"size:7;not null;uniqueIndex:posts_natural_key,priority:1"`
    DataType  string         `json:"data_type" gorm:"not null;uniqueIndex:posts_natural_key,priority:2"`
    Title     string         `json:"title" gorm:"not null"`
    Slug      string         `json:"slug" gorm:"uniqueIndex;not null"`
    Content   string         `json:"content" gorm:"type:text"`
    Model     string         `json:"model,omitempty"`
    CreatedAt time.Time      `json:"created_at"`
    UpdatedAt time.Time      `json:"updated_at"`
    DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Post) TableName() string { return "posts" }

func (p Post) Values() []any {
    return []any{p.ID, p.Month, p.DataType, p.Title, p.Slug, p.Content, p.Model, p.CreatedAt, p.UpdatedAt}
}
