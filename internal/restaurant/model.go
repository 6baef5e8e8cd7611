// Package restaurant defines the restaurant record, its normalized search
// form, and the record stores that persist it.
package restaurant

import (
	"slices"
	"time"
)

type State string

const (
	StateInReview    State = "IN_REVIEW"
	StateDisApproved State = "DIS_APPROVED"
	StateApproved    State = "APPROVED"
	StateActive      State = "ACTIVE"
	StateInActive    State = "IN_ACTIVE"
)

// Valid reports whether s is one of the known workflow states.
func (s State) Valid() bool {
	switch s {
	case StateInReview, StateDisApproved, StateApproved, StateActive, StateInActive:
		return true
	}
	return false
}

type DishType string

const (
	DishVeg    DishType = "veg"
	DishVegEgg DishType = "veg_egg"
	DishNonVeg DishType = "non_veg"
)

type Location struct {
	GmapLink    string  `json:"gmapLink"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AreaName    string  `json:"areaName"`
	FullAddress string  `json:"fullAddress,omitempty"`
}

type TimePeriod struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type ServingDetails struct {
	Enabled bool         `json:"enabled"`
	Timings []TimePeriod `json:"timings"`
}

type DeliveryDetails struct {
	ServingDetails
	FreeDeliveryDistance float64 `json:"freeDeliveryDistance,omitempty"`
	MinAmount            float64 `json:"minAmount,omitempty"`
	MaxDeliveryDistance  float64 `json:"maxDeliveryDistance,omitempty"`
}

type Facilities struct {
	IndoorSeating bool `json:"indoorSeating"`
	FreeWifi      bool `json:"freeWifi"`
	ValetParking  bool `json:"valetParking"`
}

type Dish struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	Category     string   `json:"category"`
	DishType     DishType `json:"dishType"`
	IsBestSeller bool     `json:"isBestSeller"`
}

// Metadata carries workflow state. IsActive mirrors State == ACTIVE after
// every state transition and is the flag search filters on.
type Metadata struct {
	State                 State      `json:"state"`
	IsActive              bool       `json:"isActive"`
	OnboardedOn           time.Time  `json:"onboardedOn"`
	SubscriptionExpiresOn *time.Time `json:"subscriptionExpiresOn,omitempty"`
	IsFreeSubscription    bool       `json:"isFreeSubscription"`
	IsManaged             bool       `json:"isManaged"`
}

// SetState moves the record to s and keeps IsActive in step.
func (m *Metadata) SetState(s State) {
	m.State = s
	m.IsActive = s == StateActive
}

type Restaurant struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Contacts        []string        `json:"contacts"`
	Location        Location        `json:"location"`
	Cuisines        []string        `json:"cuisines"`
	PhoneNumbers    []string        `json:"phoneNumbers"`
	AvgPrice        float64         `json:"avgPrice,omitempty"`
	DineInDetails   ServingDetails  `json:"dineInDetails"`
	TakeAwayDetails ServingDetails  `json:"takeAwayDetails"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	Facilities      Facilities      `json:"facilities"`
	Dishes          []Dish          `json:"dishes"`
	Metadata        Metadata        `json:"metadata"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	IsDeleted       bool            `json:"isDeleted,omitempty"`
}

// Clone returns a deep copy so callers can hand records across the cache
// boundary without sharing slices.
func (r *Restaurant) Clone() *Restaurant {
	if r == nil {
		return nil
	}
	c := *r
	c.Contacts = slices.Clone(r.Contacts)
	c.Cuisines = slices.Clone(r.Cuisines)
	c.PhoneNumbers = slices.Clone(r.PhoneNumbers)
	c.Dishes = slices.Clone(r.Dishes)
	c.DineInDetails.Timings = slices.Clone(r.DineInDetails.Timings)
	c.TakeAwayDetails.Timings = slices.Clone(r.TakeAwayDetails.Timings)
	c.DeliveryDetails.Timings = slices.Clone(r.DeliveryDetails.Timings)
	if r.Metadata.SubscriptionExpiresOn != nil {
		t := *r.Metadata.SubscriptionExpiresOn
		c.Metadata.SubscriptionExpiresOn = &t
	}
	return &c
}
