package core

import "strings"

// ResolveToken picks the single authoritative channel token for a tenant.
// Precedence, first non-empty after trimming wins: request-supplied token,
// stored token, fallback token. A caller that is actively re-authenticating
// supplies a request token and must win over the persisted one.
func ResolveToken(tenant TenantIdentity, requestToken, storedToken, fallbackToken string) (string, error) {
	for _, candidate := range []string{requestToken, storedToken, fallbackToken} {
		if token := strings.TrimSpace(candidate); token != "" {
			return token, nil
		}
	}
	return "", NewNoTokenError(tenant)
}
