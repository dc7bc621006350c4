package appstate

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownAction = errors.New("unknown action type")

// EncodeAction serializes an action payload for recording.
func EncodeAction(a Action) (ActionType, json.RawMessage, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal %s: %w", a.Type(), err)
	}
	return a.Type(), data, nil
}

// DecodeAction rebuilds an action from its type tag and payload.
func DecodeAction(t ActionType, data json.RawMessage) (Action, error) {
	var (
		a   Action
		err error
	)
	switch t {
	case TypeSetUser:
		a, err = decode[SetUser](data)
	case TypeAddToCart:
		a, err = decode[AddToCart](data)
	case TypeUpdateCartItem:
		a, err = decode[UpdateCartItem](data)
	case TypeRemoveFromCart:
		a, err = decode[RemoveFromCart](data)
	case TypeClearCart:
		a = ClearCart{}
	case TypeSetCart:
		a, err = decode[SetCart](data)
	case TypeToggleFavorite:
		a, err = decode[ToggleFavorite](data)
	case TypeAddFavorite:
		a, err = decode[AddFavorite](data)
	case TypeRemoveFavorite:
		a, err = decode[RemoveFavorite](data)
	case TypeSetFavorites:
		a, err = decode[SetFavorites](data)
	case TypeSetLanguage:
		a, err = decode[SetLanguage](data)
	case TypeSetTheme:
		a, err = decode[SetTheme](data)
	case TypeSetLoading:
		a, err = decode[SetLoading](data)
	case TypeLogout:
		a = Logout{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", t, err)
	}
	return a, nil
}

func decode[T Action](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}
