/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  domain model. Timestamps travel as ISO-8601 strings; the continue
  marker travels as the nullable boolean tri-state the frontend already
  speaks (null = not applicable, true = continue, false = stop).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/VJyzCELERY/Intellecta/schedule"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RepeatRuleDTO carries a repeat rule over the wire.
type RepeatRuleDTO struct {
	Type     string  `json:"type"`
	Interval int     `json:"interval,omitempty"`
	Until    *string `json:"until,omitempty"`
}

// InstanceSeedDTO is the seed occurrence supplied at event creation.
type InstanceSeedDTO struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Continue *bool  `json:"continue"`
}

// CreateEventRequest is the request to create an event.
type CreateEventRequest struct {
	EventID     string            `json:"event_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Repeat      *RepeatRuleDTO    `json:"repeat,omitempty"`
	Instances   []InstanceSeedDTO `json:"instances"`
}

// CreateEventResponse confirms creation and echoes the event ID, which
// the server generates when the caller omits it.
type CreateEventResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"event_id"`
}

// UpdateContinueRequest updates the continuation marker on an instance.
type UpdateContinueRequest struct {
	Start    string `json:"start"`
	Continue *bool  `json:"continue"`
}

// InstanceDTO is a queried instance flattened with its event fields.
type InstanceDTO struct {
	EventID     string         `json:"event_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Repeat      *RepeatRuleDTO `json:"repeat,omitempty"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Continue    *bool          `json:"continue"`
}

// SuccessResponse is the generic mutation acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN <-> DTO CONVERSIONS
// =============================================================================

func toRuleDTO(r *schedule.RepeatRule) *RepeatRuleDTO {
	if r == nil {
		return nil
	}
	dto := &RepeatRuleDTO{Type: string(r.Type), Interval: r.Interval}
	if r.Until != nil {
		s := r.Until.UTC().Format(time.RFC3339)
		dto.Until = &s
	}
	return dto
}

func fromRuleDTO(dto *RepeatRuleDTO) (*schedule.RepeatRule, error) {
	if dto == nil {
		return nil, nil
	}
	freq := schedule.Frequency(dto.Type)
	if !freq.Known() {
		return nil, schedule.ErrUnknownFrequency
	}
	rule := &schedule.RepeatRule{Type: freq, Interval: dto.Interval}
	if dto.Until != nil && *dto.Until != "" {
		t, err := time.Parse(time.RFC3339, *dto.Until)
		if err != nil {
			return nil, err
		}
		u := t.UTC()
		rule.Until = &u
	}
	return rule, nil
}

func toInstanceDTO(row schedule.EventInstance) InstanceDTO {
	return InstanceDTO{
		EventID:     row.EventID,
		Title:       row.Title,
		Description: row.Description,
		Repeat:      toRuleDTO(row.Repeat),
		Start:       row.Start.UTC().Format(time.RFC3339),
		End:         row.End.UTC().Format(time.RFC3339),
		Continue:    flagToBool(row.Continue),
	}
}

func flagToBool(f schedule.ContinueFlag) *bool {
	switch f {
	case schedule.FlagContinue:
		v := true
		return &v
	case schedule.FlagTerminal:
		v := false
		return &v
	}
	return nil
}

func boolToFlag(b *bool) schedule.ContinueFlag {
	switch {
	case b == nil:
		return schedule.FlagNotApplicable
	case *b:
		return schedule.FlagContinue
	}
	return schedule.FlagTerminal
}
