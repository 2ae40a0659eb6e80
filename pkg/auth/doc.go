/*
Package auth authenticates requests to a Zitadel-style identity platform.

# Overview

Every way of authenticating satisfies one small interface:

	type Authenticator interface {
		AuthHeaders(ctx context.Context) (map[string]string, error)
		Host() string
	}

API wrappers call AuthHeaders before each request and send the result
along. They never need to know which kind of credential is behind it.

# Authenticators

  - NoAuthAuthenticator: sends nothing
  - PersonalAccessTokenAuthenticator: sends a fixed bearer token
  - ClientCredentialsAuthenticator: client id and secret, exchanged for tokens
  - WebTokenAuthenticator: a signed JWT assertion, exchanged for tokens

The last two talk OAuth2 and are created through builders. Building runs
endpoint discovery first, so a bad host fails straight away rather than on
the first API call:

	b, err := auth.NewClientCredentialsBuilder(ctx, "my-instance.zitadel.cloud", id, secret)
	if err != nil {
		return err // *auth.DiscoveryError or auth.ErrInvalidConfig
	}
	authn, err := b.Scopes("openid", "profile").Build()

Service account key files downloaded from the console can be used as is:

	authn, err := auth.WebTokenFromKeyFile(ctx, host, "key.json")

# Tokens

OAuth-based authenticators cache their access token in a TokenManager and
only go back to the token endpoint when the token is missing or within
ExpiryMargin of expiring. Concurrent callers that find the token expired
share a single request; if it fails they all see the same error and the
next call starts over.

Errors from a refresh are always *AuthRefreshError, except signing failures
which are *AssertionError. Both match sentinel values through errors.Is:

	if errors.Is(err, auth.ErrRefresh) {
		// token endpoint said no, or could not be reached
	}

A TokenStore (see package tokencache) lets tokens survive restarts.
*/
package auth
