package options

import (
	"fmt"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

type OptionType string

const (
	OptionFloor   OptionType = "floor"
	OptionLadder  OptionType = "ladder"
	OptionSpecial OptionType = "special"
)

// ServiceOption is one priced add-on. Fee is nil for options priced on request.
type ServiceOption struct {
	ID          string     `json:"id"`
	Type        OptionType `json:"type"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Fee         *int64     `json:"fee"`
	Available   bool       `json:"available"`
}

func (o ServiceOption) Cost() int64 {
	if o.Fee == nil {
		return 0
	}
	return *o.Fee
}

type Groups struct {
	FloorOptions          []ServiceOption `json:"floor_options"`
	LadderOptions         []ServiceOption `json:"ladder_options"`
	SpecialVehicleOptions []ServiceOption `json:"special_vehicle_options"`
}

type Selection struct {
	FloorOptionID    *string `json:"floor_option_id"`
	LadderOptionID   *string `json:"ladder_option_id"`
	SpecialVehicleID *string `json:"special_vehicle_id"`
}

type Catalog interface {
	GetOption(id string) (ServiceOption, error)
	List() Groups
	Calculate(sel Selection) (int64, error)
	Apply(sel Selection) (models.ServiceOptions, error)
}

type catalog struct {
	options map[string]ServiceOption
	groups  Groups
}

func fee(v int64) *int64 { return &v }

func NewCatalog() Catalog {
	var g Groups
	for i := 1; i <= 5; i++ {
		var f int64
		if i > 1 {
			f = int64(i) * 10000
		}
		g.FloorOptions = append(g.FloorOptions, ServiceOption{
			ID:          fmt.Sprintf("floor-%d", i),
			Type:        OptionFloor,
			Label:       fmt.Sprintf("%d층", i),
			Description: fmt.Sprintf("%d층 배송", i),
			Fee:         fee(f),
			Available:   true,
		})
	}
	g.LadderOptions = []ServiceOption{
		{ID: "ladder-normal", Type: OptionLadder, Label: "사다리차 (1~6층)", Description: "1층~6층 사다리차 서비스", Fee: fee(70000), Available: true},
		{ID: "ladder-high", Type: OptionLadder, Label: "고층 사다리차 (7층 이상)", Description: "7층 이상 고층 사다리차 서비스 (가격 협의 필요)", Available: true},
	}
	g.SpecialVehicleOptions = []ServiceOption{
		{ID: "special-sky", Type: OptionSpecial, Label: "스카이차량", Description: "사다리차 이용이 어려운 경우 (실비청구)", Available: true},
		{ID: "special-crane", Type: OptionSpecial, Label: "크레인", Description: "대형 화물 또는 특수 상황 (실비청구)", Available: true},
	}

	c := &catalog{options: make(map[string]ServiceOption), groups: g}
	for _, list := range [][]ServiceOption{g.FloorOptions, g.LadderOptions, g.SpecialVehicleOptions} {
		for _, o := range list {
			c.options[o.ID] = o
		}
	}
	return c
}

func (c *catalog) GetOption(id string) (ServiceOption, error) {
	if o, ok := c.options[id]; ok {
		return o, nil
	}
	return ServiceOption{}, fmt.Errorf("unsupported service option %s: %w", id, apperr.ErrInvalidInput)
}

func (c *catalog) List() Groups {
	return c.groups
}

func (c *catalog) lookup(id *string, want OptionType) (*ServiceOption, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	o, err := c.GetOption(*id)
	if err != nil {
		return nil, err
	}
	if o.Type != want {
		return nil, fmt.Errorf("option %s is %s, not %s: %w", o.ID, o.Type, want, apperr.ErrInvalidInput)
	}
	return &o, nil
}

func (c *catalog) Calculate(sel Selection) (int64, error) {
	applied, err := c.Apply(sel)
	if err != nil {
		return 0, err
	}
	return applied.TotalOptionFee, nil
}

// Apply resolves a selection into the draft's service option section.
func (c *catalog) Apply(sel Selection) (models.ServiceOptions, error) {
	var out models.ServiceOptions

	floor, err := c.lookup(sel.FloorOptionID, OptionFloor)
	if err != nil {
		return out, err
	}
	ladder, err := c.lookup(sel.LadderOptionID, OptionLadder)
	if err != nil {
		return out, err
	}
	special, err := c.lookup(sel.SpecialVehicleID, OptionSpecial)
	if err != nil {
		return out, err
	}

	if floor != nil {
		out.FloorOptionID, out.FloorOptionName, out.FloorOptionFee = &floor.ID, &floor.Label, floor.Cost()
	}
	if ladder != nil {
		out.LadderOptionID, out.LadderOptionName, out.LadderOptionFee = &ladder.ID, &ladder.Label, ladder.Cost()
	}
	if special != nil {
		out.SpecialVehicleID, out.SpecialVehicleName, out.SpecialVehicleFee = &special.ID, &special.Label, special.Cost()
	}
	out.TotalOptionFee = out.FloorOptionFee + out.LadderOptionFee + out.SpecialVehicleFee
	return out, nil
}
