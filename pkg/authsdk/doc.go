/*
Package authsdk provides the wire types and a small client for the authcore
service.

# Overview

The package is organised around two types:

  - SDKClient: public operations (signup, login, email verification,
    password reset, bootstrap, health)
  - Session: operations that present a session token

	client := authsdk.NewSDKClient("https://auth.example.com")

	user, err := client.Signup(ctx, authsdk.SignupRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
	})

	session, err := client.Login(ctx, "alice@example.com", "correct horse battery staple")
	me, err := session.Me(ctx)

Session tokens are stateless and are not refreshed; a Session simply stops
working once the token expires and the caller logs in again.

# Error Handling

Every non-2xx response is returned as *APIError carrying the HTTP status and
the machine-readable code from the ErrorResponse body:

	_, err := client.Login(ctx, email, "wrong")
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
		// ...
	}

# Thread Safety

SDKClient and Session hold no mutable state after construction and are safe
for concurrent use.
*/
package authsdk
