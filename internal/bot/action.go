package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
)

// ErrUnknownAction is returned for callback data that is not a known token.
var ErrUnknownAction = errors.New("unknown action")

// Action is a parsed button press. The set of implementations is closed.
type Action interface {
	// Token is the callback data that parses back into the action.
	Token() string
	action()
}

// ShowList lists orders matching Filter.
type ShowList struct{ Filter Filter }

// OpenOrder shows the detail view of one order.
type OpenOrder struct{ ID int64 }

// SetStatus changes the status of an order.
type SetStatus struct {
	ID     int64
	Status orders.Status
}

// DeleteOrder removes an order.
type DeleteOrder struct{ ID int64 }

// ShowStats shows the statistics view.
type ShowStats struct{}

// Refresh reloads the mirror from the store.
type Refresh struct{}

func (a ShowList) Token() string    { return "filter_" + string(a.Filter) }
func (a OpenOrder) Token() string   { return "order_" + strconv.FormatInt(a.ID, 10) }
func (a SetStatus) Token() string   { return fmt.Sprintf("status_%d_%s", a.ID, a.Status) }
func (a DeleteOrder) Token() string { return "delete_" + strconv.FormatInt(a.ID, 10) }
func (ShowStats) Token() string     { return "stats" }
func (Refresh) Token() string       { return "refresh" }

func (ShowList) action()    {}
func (OpenOrder) action()   {}
func (SetStatus) action()   {}
func (DeleteOrder) action() {}
func (ShowStats) action()   {}
func (Refresh) action()     {}

// ParseAction turns callback data into an Action.
func ParseAction(token string) (Action, error) {
	switch token {
	case "stats":
		return ShowStats{}, nil
	case "refresh":
		return Refresh{}, nil
	}

	kind, rest, ok := strings.Cut(token, "_")
	if !ok || rest == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
	}
	switch kind {
	case "filter":
		f := Filter(rest)
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unknown filter %q", ErrUnknownAction, rest)
		}
		return ShowList{Filter: f}, nil
	case "order":
		id, err := parseID(rest)
		if err != nil {
			return nil, err
		}
		return OpenOrder{ID: id}, nil
	case "delete":
		id, err := parseID(rest)
		if err != nil {
			return nil, err
		}
		return DeleteOrder{ID: id}, nil
	case "status":
		rawID, rawStatus, ok := strings.Cut(rest, "_")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
		}
		id, err := parseID(rawID)
		if err != nil {
			return nil, err
		}
		status := orders.Status(rawStatus)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %w", ErrUnknownAction, orders.ErrInvalidStatus)
		}
		return SetStatus{ID: id, Status: status}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, token)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad order id %q", ErrUnknownAction, s)
	}
	return id, nil
}
