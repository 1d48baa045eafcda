package oauth

import "errors"

var (
	ErrNoToken      = errors.New("no token found - run `whoopsync auth` first")
	ErrTokenExpired = errors.New("token expired and no refresh token available")
)

// Query parameters of the authorization callback.
const (
	ParamState            = "state"
	ParamCode             = "code"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
)
