package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GardenStore abstracts the reward-handoff surface of couple persistence.
type GardenStore interface {
	GetCouple(id string) (*Couple, error)
	AppendGardenItem(coupleID string, item GardenItem) error
}

// GardenService places claimed reward items into a couple's shared garden.
// Placement is the whole contract here; decoration mechanics live client-side.
type GardenService struct {
	store GardenStore
	now   func() time.Time
	idGen func() string
}

func NewGardenService(store GardenStore) *GardenService {
	return &GardenService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

func (s *GardenService) PlaceItem(coupleID, userID, itemID string, x, y float64) (*Garden, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, NewInvalidError("item_id required")
	}
	couple, err := s.store.GetCouple(coupleID)
	if err != nil {
		return nil, err
	}
	if couple == nil {
		return nil, NewNotFoundError("couple not found")
	}
	if couple.MemberSlot(userID) == "" {
		return nil, NewNotFoundError("user is not part of this couple")
	}
	item := GardenItem{
		ID:        s.idGen(),
		ItemID:    itemID,
		PlacedBy:  userID,
		PositionX: x,
		PositionY: y,
		PlacedAt:  s.now(),
	}
	if err := s.store.AppendGardenItem(coupleID, item); err != nil {
		return nil, err
	}
	return s.GetGarden(coupleID)
}

func (s *GardenService) GetGarden(coupleID string) (*Garden, error) {
	couple, err := s.store.GetCouple(coupleID)
	if err != nil {
		return nil, err
	}
	if couple == nil {
		return nil, NewNotFoundError("couple not found")
	}
	if couple.Garden == nil {
		return &Garden{Items: []GardenItem{}, Level: 1}, nil
	}
	return couple.Garden, nil
}
