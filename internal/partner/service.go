package partner

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/geo"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/user"
	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

// Service runs the partner workflow. Restaurant writes go through
// restaurants, which in production is a cache.Writer so published changes
// reach search immediately.
type Service struct {
	edits       EditStore
	restaurants restaurant.Store
	geocoder    geo.Resolver
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(edits EditStore, restaurants restaurant.Store, geocoder geo.Resolver) *Service {
	return &Service{
		edits:       edits,
		restaurants: restaurants,
		geocoder:    geocoder,
		now:         time.Now,
		logger:      slog.Default().With("component", "partner-service"),
	}
}

// StateChange is an admin decision on an edit.
type StateChange struct {
	State                 restaurant.State `json:"state"`
	ReasonsForDisApproval *Reasons         `json:"reasonsForDisApproval"`
	ReasonForInactive     string           `json:"reasonForInactive"`
}

func forbidden(msg string) error {
	return apperrors.New(apperrors.ErrForbidden, http.StatusForbidden, msg)
}

// locate geocodes the map link in in and returns the full location.
func (s *Service) locate(ctx context.Context, in restaurant.Location) (restaurant.Location, error) {
	link := strings.TrimSpace(in.GmapLink)
	if link == "" {
		return restaurant.Location{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "location.gmapLink is required")
	}
	p, err := s.geocoder.Resolve(ctx, link)
	if err != nil {
		return restaurant.Location{}, err
	}
	return restaurant.Location{
		GmapLink:    link,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		AreaName:    in.AreaName,
		FullAddress: in.FullAddress,
	}, nil
}

// Create onboards a restaurant for owner. The record is stored inactive and
// in review; its menu is added later through UpdateMenu.
func (s *Service) Create(ctx context.Context, owner *user.User, in *restaurant.Restaurant) (*restaurant.Restaurant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "name is required")
	}
	loc, err := s.locate(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	r := in.Clone()
	r.ID = ""
	r.Location = loc
	r.Dishes = nil
	r.IsDeleted = false
	r.Metadata.SetState(restaurant.StateInReview)

	saved, err := s.restaurants.Save(ctx, r)
	if err != nil {
		return nil, err
	}
	edit, err := s.edits.Save(ctx, &Edit{
		OwnerID:      owner.ID,
		RestaurantID: saved.ID,
		State:        restaurant.StateInReview,
		Value:        *saved,
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("restaurant onboarded",
		"component", "partner-service",
		"restaurant_id", saved.ID,
		"edit_id", edit.ID,
		"owner_id", owner.ID,
	)
	return saved, nil
}

func (s *Service) ListForOwner(ctx context.Context, owner *user.User) ([]*Edit, error) {
	return s.edits.ListByOwner(ctx, owner.ID)
}

// Get returns an edit the actor may access.
func (s *Service) Get(ctx context.Context, actor *user.User, editID string) (*Edit, error) {
	e, err := s.edits.FindByID(ctx, editID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && e.OwnerID != actor.ID {
		return nil, forbidden("user does not have access to this restaurant")
	}
	return e, nil
}

// UpdateDetails replaces the draft's details, keeping its menu. Critical
// changes accumulate on the edit and send it to review. An ACTIVE edit with
// nothing pending is published straight away.
func (s *Service) UpdateDetails(ctx context.Context, actor *user.User, editID string, in *restaurant.Restaurant) (*Edit, error) {
	e, err := s.Get(ctx, actor, editID)
	if err != nil {
		return nil, err
	}

	next := in.Clone()
	next.ID = e.RestaurantID
	next.Dishes = e.Value.Dishes
	next.Metadata = e.Value.Metadata
	next.CreatedAt = e.Value.CreatedAt
	next.IsDeleted = false

	changes := criticalChanges(&e.Value, next)
	if slices.Contains(changes, FieldGmapLink) {
		if next.Location, err = s.locate(ctx, in.Location); err != nil {
			return nil, err
		}
	} else {
		next.Location = e.Value.Location
	}

	pending := mergeFields(e.UpdatedFields, changes...)
	e.Value = *next
	if len(pending) == 0 {
		if e.State == restaurant.StateActive {
			if _, err := s.restaurants.Update(ctx, next); err != nil {
				return nil, err
			}
		}
	} else {
		e.State = restaurant.StateInReview
		e.UpdatedFields = pending
	}
	return s.edits.Update(ctx, e)
}

// UpdateMenu replaces the draft's dishes. Menu changes are always reviewed.
func (s *Service) UpdateMenu(ctx context.Context, actor *user.User, editID string, dishes []restaurant.Dish) (*Edit, error) {
	for i, d := range dishes {
		if strings.TrimSpace(d.Name) == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "dish %d has no name", i)
		}
	}
	e, err := s.Get(ctx, actor, editID)
	if err != nil {
		return nil, err
	}
	e.Value.Dishes = dishes
	e.UpdatedFields = mergeFields(e.UpdatedFields, FieldMenu)
	e.State = restaurant.StateInReview
	return s.edits.Update(ctx, e)
}

// Delete removes the edit and returns the remaining edits of its owner,
// which may differ from actor when an admin deletes.
func (s *Service) Delete(ctx context.Context, actor *user.User, editID string) ([]*Edit, error) {
	e, err := s.Get(ctx, actor, editID)
	if err != nil {
		return nil, err
	}
	e.IsDeleted = true
	if _, err := s.edits.Update(ctx, e); err != nil {
		return nil, err
	}
	return s.edits.ListByOwner(ctx, e.OwnerID)
}

// SetState applies an admin decision. ACTIVE and IN_ACTIVE publish the
// draft to the directory; APPROVED and DIS_APPROVED only touch the edit.
func (s *Service) SetState(ctx context.Context, actor *user.User, editID string, change StateChange) (*Edit, error) {
	if !actor.IsAdmin {
		return nil, forbidden("this route requires admin access")
	}
	e, err := s.edits.FindByID(ctx, editID)
	if err != nil {
		return nil, err
	}

	switch change.State {
	case restaurant.StateActive, restaurant.StateInActive:
		e.Value.ID = e.RestaurantID
		e.Value.Metadata.SetState(change.State)
		if change.State == restaurant.StateActive && e.Value.Metadata.OnboardedOn.IsZero() {
			e.Value.Metadata.OnboardedOn = s.now().UTC()
		}
		e.ReasonsForDisApproval = nil
		e.UpdatedFields = []string{}
		e.ReasonForInactive = ""
		if change.State == restaurant.StateInActive {
			e.ReasonForInactive = change.ReasonForInactive
		}
		if _, err := s.restaurants.Update(ctx, e.Value.Clone()); err != nil {
			return nil, err
		}
	case restaurant.StateApproved:
		e.ReasonsForDisApproval = nil
		e.UpdatedFields = []string{}
	case restaurant.StateDisApproved:
		e.ReasonsForDisApproval = change.ReasonsForDisApproval
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid state value %q", change.State)
	}
	e.State = change.State

	saved, err := s.edits.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("restaurant state changed",
		"component", "partner-service",
		"edit_id", saved.ID,
		"restaurant_id", saved.RestaurantID,
		"state", saved.State,
		"admin_id", actor.ID,
	)
	return saved, nil
}
