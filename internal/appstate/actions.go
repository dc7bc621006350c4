package appstate

// ActionType is the stable tag of an action, used when actions are
// recorded or published.
type ActionType string

const (
	TypeSetUser        ActionType = "SET_USER"
	TypeAddToCart      ActionType = "ADD_TO_CART"
	TypeUpdateCartItem ActionType = "UPDATE_CART_ITEM"
	TypeRemoveFromCart ActionType = "REMOVE_FROM_CART"
	TypeClearCart      ActionType = "CLEAR_CART"
	TypeSetCart        ActionType = "SET_CART"
	TypeToggleFavorite ActionType = "TOGGLE_FAVORITE"
	TypeAddFavorite    ActionType = "ADD_TO_FAVORITES"
	TypeRemoveFavorite ActionType = "REMOVE_FROM_FAVORITES"
	TypeSetFavorites   ActionType = "SET_FAVORITES"
	TypeSetLanguage    ActionType = "SET_LANGUAGE"
	TypeSetTheme       ActionType = "SET_THEME"
	TypeSetLoading     ActionType = "SET_LOADING"
	TypeLogout         ActionType = "LOGOUT"
)

// Action is the closed set of state transitions. Only the types in this
// file implement it.
type Action interface {
	Type() ActionType
	isAction()
}

// SetUser replaces the user; a nil user signs out.
type SetUser struct {
	User *User `json:"user"`
}

// AddToCart adds Item under the pre-generated ID, or merges its quantity
// into the line already holding the product.
type AddToCart struct {
	ID   string      `json:"id"`
	Item NewCartItem `json:"item"`
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
type UpdateCartItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type RemoveFromCart struct {
	ID string `json:"id"`
}

type ClearCart struct{}

// SetCart replaces the cart, e.g. with the server's copy after sign-in.
type SetCart struct {
	Items []CartItem `json:"items"`
}

type ToggleFavorite struct {
	ProductID string `json:"productId"`
}

type AddFavorite struct {
	ProductID string `json:"productId"`
}

type RemoveFavorite struct {
	ProductID string `json:"productId"`
}

type SetFavorites struct {
	ProductIDs []string `json:"productIds"`
}

type SetLanguage struct {
	Language Language `json:"language"`
}

type SetTheme struct {
	Theme Theme `json:"theme"`
}

type SetLoading struct {
	Loading bool `json:"loading"`
}

// Logout clears user, cart and favorites in a single transition.
type Logout struct{}

func (SetUser) Type() ActionType        { return TypeSetUser }
func (AddToCart) Type() ActionType      { return TypeAddToCart }
func (UpdateCartItem) Type() ActionType { return TypeUpdateCartItem }
func (RemoveFromCart) Type() ActionType { return TypeRemoveFromCart }
func (ClearCart) Type() ActionType      { return TypeClearCart }
func (SetCart) Type() ActionType        { return TypeSetCart }
func (ToggleFavorite) Type() ActionType { return TypeToggleFavorite }
func (AddFavorite) Type() ActionType    { return TypeAddFavorite }
func (RemoveFavorite) Type() ActionType { return TypeRemoveFavorite }
func (SetFavorites) Type() ActionType   { return TypeSetFavorites }
func (SetLanguage) Type() ActionType    { return TypeSetLanguage }
func (SetTheme) Type() ActionType       { return TypeSetTheme }
func (SetLoading) Type() ActionType     { return TypeSetLoading }
func (Logout) Type() ActionType         { return TypeLogout }

func (SetUser) isAction()        {}
func (AddToCart) isAction()      {}
func (UpdateCartItem) isAction() {}
func (RemoveFromCart) isAction() {}
func (ClearCart) isAction()      {}
func (SetCart) isAction()        {}
func (ToggleFavorite) isAction() {}
func (AddFavorite) isAction()    {}
func (RemoveFavorite) isAction() {}
func (SetFavorites) isAction()   {}
func (SetLanguage) isAction()    {}
func (SetTheme) isAction()       {}
func (SetLoading) isAction()     {}
func (Logout) isAction()         {}
