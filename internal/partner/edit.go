// Package partner implements the restaurant owner workflow. Owners work on
// an Edit, a draft copy of their restaurant; critical changes send the edit
// back to review, and an admin decision publishes it to the directory.
package partner

import (
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
)

const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldGmapLink     = "gmapLink"
	FieldCuisines     = "cuisines"
	FieldPhoneNumbers = "phoneNumbers"
	FieldAvgPrice     = "avgPrice"
	FieldMenu         = "menu"
)

type Reason struct {
	IsReason bool   `json:"isReason"`
	Detail   string `json:"detail,omitempty"`
}

// Reasons explains a DIS_APPROVED decision field by field.
type Reasons struct {
	Name        Reason `json:"name"`
	Description Reason `json:"description"`
	Address     Reason `json:"address"`
	GmapLink    Reason `json:"gmapLink"`
	Menu        Reason `json:"menu"`
}

type Edit struct {
	ID                    string                `json:"id"`
	OwnerID               string                `json:"owner"`
	RestaurantID          string                `json:"restaurant"`
	State                 restaurant.State      `json:"state"`
	Value                 restaurant.Restaurant `json:"editValue"`
	UpdatedFields         []string              `json:"updatedFields"`
	ReasonsForDisApproval *Reasons              `json:"reasonsForDisApproval"`
	ReasonForInactive     string                `json:"reasonForInactive,omitempty"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
	IsDeleted             bool                  `json:"isDeleted,omitempty"`
}

func (e *Edit) clone() *Edit {
	c := *e
	c.Value = *e.Value.Clone()
	c.UpdatedFields = slices.Clone(e.UpdatedFields)
	if e.ReasonsForDisApproval != nil {
		r := *e.ReasonsForDisApproval
		c.ReasonsForDisApproval = &r
	}
	return &c
}

// criticalChanges lists the fields whose change needs an admin review.
// Serving details and facilities are approved automatically.
func criticalChanges(prev, next *restaurant.Restaurant) []string {
	var fields []string
	if prev.Name != next.Name {
		fields = append(fields, FieldName)
	}
	if prev.Description != next.Description {
		fields = append(fields, FieldDescription)
	}
	if prev.Location.GmapLink != next.Location.GmapLink {
		fields = append(fields, FieldGmapLink)
	}
	if !equalStrings(prev.Cuisines, next.Cuisines) {
		fields = append(fields, FieldCuisines)
	}
	if !equalStrings(prev.PhoneNumbers, next.PhoneNumbers) {
		fields = append(fields, FieldPhoneNumbers)
	}
	if prev.AvgPrice != next.AvgPrice {
		fields = append(fields, FieldAvgPrice)
	}
	return fields
}

// equalStrings treats nil and empty as equal.
func equalStrings(a, b []string) bool {
	return len(a) == len(b) && slices.Equal(a, b)
}

// mergeFields appends the fields of add missing from have.
func mergeFields(have []string, add ...string) []string {
	out := slices.Clone(have)
	for _, f := range add {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
