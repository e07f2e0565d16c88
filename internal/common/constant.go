package common

// AccessTokenHeaderName is the HTTP header used to carry the session token
// on requests to the vault API.
const AccessTokenHeaderName = "access_token"

// WatcherTokenHeaderName is the HTTP header the Bitcoin watcher uses to
// authenticate UTXO report submissions.
const WatcherTokenHeaderName = "watcher_token"
