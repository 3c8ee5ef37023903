package models

import (
	"encoding/json"
	"fmt"

	"github.com/nothingcube/regsync/pkg/validation"
)

// AcquisitionType is the way a container is acquired by a player.
type AcquisitionType string

const (
	ContainerFree  AcquisitionType = "free"
	ContainerCoins AcquisitionType = "coins"
	ContainerUSDT  AcquisitionType = "usdt"
)

// TaskType is the kind of unlock task attached to a container.
type TaskType string

const (
	TaskSubscribe TaskType = "subscribe"
	TaskReferral  TaskType = "referral"
	TaskDeposit   TaskType = "deposit"
	TaskLevel     TaskType = "level"
)

// ContainerConfig represents a reward-container definition as held by the
// remote registry. The identifier is assigned by the server; the client never
// invents one.
type ContainerConfig struct {
	// ID is the server-assigned identifier. Empty on create payloads.
	ID string `json:"id,omitempty"`
	// Name is the display name of the container.
	Name string `json:"name"`
	// Type is the acquisition type (free, coins, usdt).
	Type AcquisitionType `json:"type"`
	// Cost is the price in the acquisition currency. Always 0 for free containers.
	Cost float64 `json:"cost"`
	// Active indicates whether the container is currently available.
	Active bool `json:"active"`
	// TotalOpens limits how many times the container can be opened in total.
	// nil means unlimited.
	TotalOpens *int `json:"total_opens"`
	// RemainingOpens is computed by the server and only present when
	// TotalOpens is set.
	RemainingOpens *int `json:"remaining_opens,omitempty"`
	// CooldownMinutes is the per-player cooldown between opens.
	CooldownMinutes int `json:"cooldown_minutes"`
	// TaskTypes lists the unlock tasks required to open the container.
	TaskTypes []TaskType `json:"task_types"`
	// TaskData holds the kind-specific payload for each entry in TaskTypes.
	TaskData map[TaskType]TaskPayload `json:"task_data"`
	// Items lists the reward item identifiers.
	Items []string `json:"items"`
	// ItemsChances maps item identifier to drop-chance percentage. The key
	// set must equal Items and the values must sum to 100.
	ItemsChances map[string]float64 `json:"items_chances"`
}

// Cooldown is the {days, hours, minutes} triple collected at the UI boundary.
type Cooldown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// TotalMinutes flattens the triple into the wire representation.
func (c Cooldown) TotalMinutes() int {
	return c.Days*1440 + c.Hours*60 + c.Minutes
}

// NormalizeForSubmit prepares the config for a create or update call:
// free containers are forced to cost 0 and server-computed fields are
// stripped so they never travel back to the server.
func (c *ContainerConfig) NormalizeForSubmit() {
	if c.Type == ContainerFree {
		c.Cost = 0
	}
	c.RemainingOpens = nil
}

// Validate checks the invariants of the record, including that the chance
// values sum to 100 within tolerance.
func (c *ContainerConfig) Validate() error {
	if c.Name == "" {
		return &ValidationError{Reason: "container name is required"}
	}
	switch c.Type {
	case ContainerFree:
		if c.Cost != 0 {
			return &ValidationError{Reason: "free containers must have zero cost"}
		}
	case ContainerCoins, ContainerUSDT:
		if c.Cost <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("%s containers must have a positive cost", c.Type)}
		}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown container type %q", c.Type)}
	}
	if c.TotalOpens != nil {
		if *c.TotalOpens <= 0 {
			return &ValidationError{Reason: "total opens limit must be positive"}
		}
		if c.RemainingOpens != nil && *c.RemainingOpens > *c.TotalOpens {
			return &ValidationError{Reason: "remaining opens exceeds the total opens limit"}
		}
	}
	if c.CooldownMinutes < 0 {
		return &ValidationError{Reason: "cooldown cannot be negative"}
	}
	for _, kind := range c.TaskTypes {
		payload, ok := c.TaskData[kind]
		if !ok || payload.IsZero() {
			return &ValidationError{Reason: fmt.Sprintf("task %q has no data", kind)}
		}
	}
	if len(c.Items) != len(c.ItemsChances) {
		return &ValidationError{Reason: "every reward item needs exactly one chance"}
	}
	for _, id := range c.Items {
		if _, ok := c.ItemsChances[id]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("item %q has no chance assigned", id)}
		}
	}
	if len(c.ItemsChances) > 0 {
		if total, ok := validation.ValidateChanceValues(c.ItemsChances); !ok {
			return &ValidationError{Reason: fmt.Sprintf("chances must sum to 100, got %.5f", total)}
		}
	}
	return nil
}

// TaskPayload is the kind-specific data of one unlock task. On the wire it is
// one of three shapes: a list of channel identifiers (subscribe), a bare
// number (referral, level) or an {amount, currency} object (deposit).
type TaskPayload struct {
	Channels []string
	Count    int
	Amount   float64
	Currency string

	form payloadForm
}

type payloadForm int

const (
	formEmpty payloadForm = iota
	formChannels
	formCount
	formAmount
)

// ChannelsPayload builds a subscribe-task payload.
func ChannelsPayload(channels ...string) TaskPayload {
	return TaskPayload{Channels: channels, form: formChannels}
}

// CountPayload builds a referral- or level-task payload.
func CountPayload(n int) TaskPayload {
	return TaskPayload{Count: n, form: formCount}
}

// AmountPayload builds a deposit-task payload.
func AmountPayload(amount float64, currency string) TaskPayload {
	return TaskPayload{Amount: amount, Currency: currency, form: formAmount}
}

// IsZero reports whether the payload carries no data at all.
func (p TaskPayload) IsZero() bool {
	switch p.form {
	case formChannels:
		return len(p.Channels) == 0
	case formCount:
		return p.Count <= 0
	case formAmount:
		return p.Amount <= 0
	default:
		return true
	}
}

type depositPayload struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (p TaskPayload) MarshalJSON() ([]byte, error) {
	switch p.form {
	case formChannels:
		return json.Marshal(p.Channels)
	case formCount:
		return json.Marshal(p.Count)
	case formAmount:
		return json.Marshal(depositPayload{Amount: p.Amount, Currency: p.Currency})
	default:
		return []byte("null"), nil
	}
}

func (p *TaskPayload) UnmarshalJSON(data []byte) error {
	var channels []string
	if err := json.Unmarshal(data, &channels); err == nil {
		*p = ChannelsPayload(channels...)
		return nil
	}
	var count int
	if err := json.Unmarshal(data, &count); err == nil {
		*p = CountPayload(count)
		return nil
	}
	var deposit depositPayload
	if err := json.Unmarshal(data, &deposit); err == nil {
		*p = AmountPayload(deposit.Amount, deposit.Currency)
		return nil
	}
	return fmt.Errorf("unrecognized task payload: %s", data)
}

// Item is one entry of the reward-item catalog.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImageData string `json:"image_data,omitempty"`
}

// ShopItem is one entry of the shop catalog. The synchronizer only reads it;
// shop management stays on the console's form surface.
type ShopItem struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}
