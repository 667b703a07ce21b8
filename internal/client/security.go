package client

// SecurityContext carries the per-session values every platform request
// needs. It is passed explicitly to the pipeline constructor instead of
// being read from ambient state so the pipeline stays testable.
type SecurityContext struct {
	// BaseURL is the platform API root, without a trailing slash.
	BaseURL string
	// SessionToken is the already-established session credential, attached
	// as a bearer token. Obtaining it is outside the console's scope.
	SessionToken string
	// CSRFToken seeds the anti-forgery token when already known. When
	// empty, the pipeline bootstraps one before the first mutating call.
	CSRFToken string
}

// CSRFOptions describes how the platform exposes its anti-forgery token.
type CSRFOptions struct {
	// BootstrapPath is the side-effect-only GET that makes the token
	// available via cookie.
	BootstrapPath string
	// Header is the request header the token is attached on. Using a
	// header keeps the body encoding unconstrained.
	Header string
	// Cookie is the cookie name the bootstrap call sets.
	Cookie string
}

func (o CSRFOptions) withDefaults() CSRFOptions {
	if o.BootstrapPath == "" {
		o.BootstrapPath = "/csrf-cookie"
	}
	if o.Header == "" {
		o.Header = "X-CSRF-Token"
	}
	if o.Cookie == "" {
		o.Cookie = "XSRF-TOKEN"
	}
	return o
}
