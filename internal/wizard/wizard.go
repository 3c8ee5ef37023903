package wizard

import (
	"context"
	"fmt"

	"github.com/nothingcube/regsync/internal/catalog"
	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/pkg/validation"
)

// Step identifies one page of the container-authoring wizard.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepTasks
	StepItems
	StepChances

	stepCount = 4
)

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic info"
	case StepTasks:
		return "tasks"
	case StepItems:
		return "items"
	case StepChances:
		return "chances"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// Form is the working state of the wizard. Chances are kept as raw strings
// until submission, exactly as typed into the chance fields.
type Form struct {
	Name       string
	Type       models.AcquisitionType
	Cost       float64
	Active     bool
	TotalOpens *int
	Cooldown   models.Cooldown

	TaskTypes []models.TaskType
	TaskData  map[models.TaskType]models.TaskPayload

	Items        []string
	ItemsChances map[string]string
}

// Wizard walks the four-step container authoring flow with a validation gate
// between steps. It holds no network state of its own; the shared item
// catalog is consulted when reward items are selected.
type Wizard struct {
	form    Form
	step    Step
	catalog *catalog.Catalog
}

// New starts a fresh wizard for creating a container.
func New(cat *catalog.Catalog) *Wizard {
	return &Wizard{
		step:    StepBasicInfo,
		catalog: cat,
		form: Form{
			Type:         models.ContainerFree,
			TaskData:     map[models.TaskType]models.TaskPayload{},
			ItemsChances: map[string]string{},
		},
	}
}

// NewFromConfig starts a wizard pre-filled from an existing record, for the
// edit flow.
func NewFromConfig(cat *catalog.Catalog, cfg *models.ContainerConfig) *Wizard {
	form := Form{
		Name:         cfg.Name,
		Type:         cfg.Type,
		Cost:         cfg.Cost,
		Active:       cfg.Active,
		TotalOpens:   cfg.TotalOpens,
		Cooldown:     models.Cooldown{Minutes: cfg.CooldownMinutes},
		TaskTypes:    append([]models.TaskType(nil), cfg.TaskTypes...),
		TaskData:     map[models.TaskType]models.TaskPayload{},
		Items:        append([]string(nil), cfg.Items...),
		ItemsChances: map[string]string{},
	}
	for kind, payload := range cfg.TaskData {
		form.TaskData[kind] = payload
	}
	for id, chance := range cfg.ItemsChances {
		form.ItemsChances[id] = fmt.Sprintf("%g", chance)
	}
	return &Wizard{step: StepBasicInfo, catalog: cat, form: form}
}

// Form returns the current working state for display.
func (w *Wizard) Form() Form { return w.form }

// Step returns the wizard's current step.
func (w *Wizard) Step() Step { return w.step }

// SetBasicInfo fills the first page.
func (w *Wizard) SetBasicInfo(name string, typ models.AcquisitionType, cost float64, active bool, totalOpens *int, cooldown models.Cooldown) {
	w.form.Name = name
	w.form.Type = typ
	w.form.Cost = cost
	w.form.Active = active
	w.form.TotalOpens = totalOpens
	w.form.Cooldown = cooldown
}

// SetTask attaches an unlock task with its payload.
func (w *Wizard) SetTask(kind models.TaskType, payload models.TaskPayload) {
	for _, existing := range w.form.TaskTypes {
		if existing == kind {
			w.form.TaskData[kind] = payload
			return
		}
	}
	w.form.TaskTypes = append(w.form.TaskTypes, kind)
	w.form.TaskData[kind] = payload
}

// RemoveTask detaches an unlock task.
func (w *Wizard) RemoveTask(kind models.TaskType) {
	kept := w.form.TaskTypes[:0]
	for _, existing := range w.form.TaskTypes {
		if existing != kind {
			kept = append(kept, existing)
		}
	}
	w.form.TaskTypes = kept
	delete(w.form.TaskData, kind)
}

// SelectItems records the chosen reward items, verifying each against the
// shared catalog. Chances for dropped items are discarded.
func (w *Wizard) SelectItems(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_, ok, err := w.catalog.Item(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &models.ValidationError{Reason: fmt.Sprintf("unknown item %q", id)}
		}
	}
	w.form.Items = append([]string(nil), ids...)

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	for id := range w.form.ItemsChances {
		if _, ok := selected[id]; !ok {
			delete(w.form.ItemsChances, id)
		}
	}
	return nil
}

// SetChance records the raw chance field value for one item.
func (w *Wizard) SetChance(itemID, raw string) {
	w.form.ItemsChances[itemID] = raw
}

// TotalChance is the live progress figure behind the chance sum indicator.
// It runs on every edit, so it stays a pure O(items) computation.
func (w *Wizard) TotalChance() float64 {
	return validation.SumChances(w.form.ItemsChances)
}

// ValidateStep gates one step of the wizard. All failures are local
// validation errors; nothing here touches the network.
func (w *Wizard) ValidateStep(step Step) error {
	switch step {
	case StepBasicInfo:
		if w.form.Name == "" {
			return &models.ValidationError{Reason: "container name is required"}
		}
		if w.form.Type != models.ContainerFree && w.form.Cost <= 0 {
			return &models.ValidationError{Reason: "container cost is required"}
		}
		return nil

	case StepTasks:
		for _, kind := range w.form.TaskTypes {
			payload, ok := w.form.TaskData[kind]
			if !ok || payload.IsZero() {
				return &models.ValidationError{Reason: fmt.Sprintf("fill in the data for the %s task", kind)}
			}
		}
		return nil

	case StepItems:
		if len(w.form.Items) == 0 {
			return &models.ValidationError{Reason: "select at least one reward item"}
		}
		return nil

	case StepChances:
		// Cardinality first: every selected item needs exactly one chance
		// before the sum rule is even evaluated.
		if len(w.form.ItemsChances) != len(w.form.Items) {
			return &models.ValidationError{Reason: "assign a chance to every selected item"}
		}
		for _, id := range w.form.Items {
			if _, ok := w.form.ItemsChances[id]; !ok {
				return &models.ValidationError{Reason: "assign a chance to every selected item"}
			}
		}
		if total, ok := validation.ValidateChances(w.form.ItemsChances); !ok {
			return &models.ValidationError{Reason: fmt.Sprintf("chances must sum to 100%%, got %.5f%%", total)}
		}
		return nil

	default:
		return nil
	}
}

// Next validates the current step and advances.
func (w *Wizard) Next() error {
	if err := w.ValidateStep(w.step); err != nil {
		return err
	}
	if w.step < stepCount {
		w.step++
	}
	return nil
}

// Back returns to the previous step without validating.
func (w *Wizard) Back() {
	if w.step > StepBasicInfo {
		w.step--
	}
}

// Result validates every step and emits the normalized config ready for the
// create or update call: cooldown flattened to minutes, chances parsed, cost
// coerced for free containers.
func (w *Wizard) Result() (*models.ContainerConfig, error) {
	for step := StepBasicInfo; step <= StepChances; step++ {
		if err := w.ValidateStep(step); err != nil {
			return nil, err
		}
	}

	chances := make(map[string]float64, len(w.form.ItemsChances))
	for id, raw := range w.form.ItemsChances {
		chances[id] = validation.ParseChance(raw)
	}

	cfg := &models.ContainerConfig{
		Name:            w.form.Name,
		Type:            w.form.Type,
		Cost:            w.form.Cost,
		Active:          w.form.Active,
		TotalOpens:      w.form.TotalOpens,
		CooldownMinutes: w.form.Cooldown.TotalMinutes(),
		TaskTypes:       append([]models.TaskType(nil), w.form.TaskTypes...),
		TaskData:        map[models.TaskType]models.TaskPayload{},
		Items:           append([]string(nil), w.form.Items...),
		ItemsChances:    chances,
	}
	for kind, payload := range w.form.TaskData {
		cfg.TaskData[kind] = payload
	}
	cfg.NormalizeForSubmit()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
