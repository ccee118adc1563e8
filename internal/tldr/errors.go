package tldr

import "github.com/iamzifei/bookmark-is-learned/internal/credential"

// Re-exported so callers of GenerateSummary can match credential failures
// without importing the credential package.
var (
	ErrMissingCredential    = credential.ErrMissingCredential
	ErrCredentialUnreadable = credential.ErrCredentialUnreadable
)
