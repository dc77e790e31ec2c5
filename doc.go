// Package authkit is the identity and authentication core of the nuzip
// account service. It issues and verifies signed session tokens, gates
// credential operations by account provider, and provisions accounts from
// federated logins.
//
// # Architecture
//
// Account: a registered identity, keyed by an immutable AccountID. LOCAL
// accounts are self-registered with a password; FEDERATED accounts are
// created by the provisioning protocol on first federated login and never
// hold a usable local password.
//
// TokenIssuer: the sole authority for signed tokens. Session tokens are
// long-lived bearer proofs of authentication; reverify tokens are
// short-lived, carry the "reverify" audience and are accepted only by the
// profile-edit step-up check. The two namespaces are not interchangeable.
//
// Provisioner: the idempotent find-or-create mapping a verified federated
// email to exactly one account. Concurrent first-logins are serialized by
// the store's uniqueness constraint on AccountID.
//
// Middleware: resolves the request's principal from a bearer token and
// attaches the Account to the request context. It never rejects on its own;
// RequirePrincipal is the unified gate producing the uniform
// unauthenticated response.
//
// # Basic Usage
//
// Build the service from a store, an issuer and a verifier:
//
//	store := stores.NewMemoryAccountStore()
//	service := &authkit.AuthService{
//	    Accounts: store,
//	    Tokens:   &authkit.TokenIssuer{SecretKey: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
//	    Verifier: authkit.NewGoogleVerifier(cfg.GoogleClientID),
//	}
//	http.ListenAndServe(cfg.ListenAddr, authkit.NewServer(service).Handler())
//
// Production deployments back the store with stores/gorm (postgres) or
// stores/gae (Cloud Datastore); both enforce the AccountID uniqueness
// constraint the provisioning protocol relies on.
package authkit
