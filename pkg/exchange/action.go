package exchange

import (
	"encoding/json"
	"fmt"
)

// ActionType tags an exchange action on the wire.
type ActionType string

const (
	ActionOrder         ActionType = "order"
	ActionModify        ActionType = "modify"
	ActionBatchModify   ActionType = "batchModify"
	ActionCancel        ActionType = "cancel"
	ActionCancelByCloid ActionType = "cancelByCloid"
)

// GroupingNA submits orders independently of each other.
const GroupingNA = "na"

// Action is a signed payload sent to the exchange endpoint.
type Action interface {
	ActionType() ActionType
}

type BulkOrder struct {
	Type     ActionType     `json:"type"`
	Orders   []OrderRequest `json:"orders"`
	Grouping string         `json:"grouping"`
}

type Modify struct {
	Type ActionType `json:"type"`
	ModifyRequest
}

type BatchModify struct {
	Type     ActionType      `json:"type"`
	Modifies []ModifyRequest `json:"modifies"`
}

type BulkCancel struct {
	Type    ActionType      `json:"type"`
	Cancels []CancelRequest `json:"cancels"`
}

type BulkCancelCloid struct {
	Type    ActionType           `json:"type"`
	Cancels []CancelRequestCloid `json:"cancels"`
}

func NewBulkOrder(orders ...OrderRequest) *BulkOrder {
	return &BulkOrder{Type: ActionOrder, Orders: orders, Grouping: GroupingNA}
}

func NewModify(req ModifyRequest) *Modify {
	return &Modify{Type: ActionModify, ModifyRequest: req}
}

func NewBatchModify(reqs ...ModifyRequest) *BatchModify {
	return &BatchModify{Type: ActionBatchModify, Modifies: reqs}
}

func NewBulkCancel(cancels ...CancelRequest) *BulkCancel {
	return &BulkCancel{Type: ActionCancel, Cancels: cancels}
}

func NewBulkCancelCloid(cancels ...CancelRequestCloid) *BulkCancelCloid {
	return &BulkCancelCloid{Type: ActionCancelByCloid, Cancels: cancels}
}

func (*BulkOrder) ActionType() ActionType       { return ActionOrder }
func (*Modify) ActionType() ActionType          { return ActionModify }
func (*BatchModify) ActionType() ActionType     { return ActionBatchModify }
func (*BulkCancel) ActionType() ActionType      { return ActionCancel }
func (*BulkCancelCloid) ActionType() ActionType { return ActionCancelByCloid }

// DecodeAction reads the "type" tag and unmarshals the matching action.
// A malformed order reference anywhere in the action fails the whole decode.
func DecodeAction(data []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read action type: %w", err)
	}

	var action Action
	switch head.Type {
	case ActionOrder:
		action = &BulkOrder{}
	case ActionModify:
		action = &Modify{}
	case ActionBatchModify:
		action = &BatchModify{}
	case ActionCancel:
		action = &BulkCancel{}
	case ActionCancelByCloid:
		action = &BulkCancelCloid{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, head.Type)
	}

	if err := json.Unmarshal(data, action); err != nil {
		return nil, fmt.Errorf("failed to decode %s action: %w", head.Type, err)
	}
	return action, nil
}
