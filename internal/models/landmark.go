package models

import "time"

// Landmark is a designated NYC landmark as served by the city open data API.
type Landmark struct {
	LPNumber    string    `json:"lp_number"`
	Name        string    `json:"name"`
	Borough     string    `json:"borough"`
	ObjectType  string    `json:"object_type"`
	Address     string    `json:"address,omitempty"`
	DateDesig   time.Time `json:"date_designated,omitempty"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
	Description string    `json:"description,omitempty"`
}

// LandmarkFilter narrows landmark listings.
type LandmarkFilter struct {
	Borough    string `json:"borough,omitempty"`
	ObjectType string `json:"object_type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
