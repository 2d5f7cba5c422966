package models

// TokenPair holds the access and refresh tokens returned by the token endpoint
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginRequest is the payload for POST /token/.
// The API expects the email in the username field.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the token endpoint response, with the optional
// identity fields some deployments include alongside the tokens
type LoginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RefreshRequest is the payload for POST /token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the renewed access token; the refresh token is not rotated
type RefreshResponse struct {
	Access string `json:"access"`
}

// RegisterRequest is the payload for POST /register/
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APIError is the error envelope the API returns on 4xx responses
type APIError struct {
	Detail string `json:"detail"`
}

// Profile is the locally persisted user snapshot
type Profile struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Location  string `json:"location,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Booking represents a booking owned by the authenticated user.
// The server assigns ID and enforces ownership.
type Booking struct {
	ID          int64  `json:"id"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Guests      int    `json:"guests"`
}

// BookingRequest is the payload for creating or updating a booking
type BookingRequest struct {
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Guests      int    `json:"guests"`
}

// Attraction is a static catalog entry, read-only
type Attraction struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Location    string  `json:"location"`
	Rating      float64 `json:"rating"`
	Category    string  `json:"category"`
}
