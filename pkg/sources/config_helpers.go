package sources

import "strings"

// Keys of Source.Config that map onto request headers.
const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
	ConfigRefererKey        = "referer"
)

var headerKeys = []struct{ key, header string }{
	{ConfigUserAgentKey, "User-Agent"},
	{ConfigAcceptKey, "Accept"},
	{ConfigAcceptLanguageKey, "Accept-Language"},
	{ConfigCacheControlKey, "Cache-Control"},
	{ConfigRefererKey, "Referer"},
}

// ConfigString returns the trimmed string stored under key in the source's free-form
// config, or fallback when it is absent, blank or not a string.
func (s Source) ConfigString(key, fallback string) string {
	val, ok := s.Config[key].(string)
	if !ok {
		return fallback
	}
	if trimmed := strings.TrimSpace(val); trimmed != "" {
		return trimmed
	}
	return fallback
}

// Headers returns the request headers configured for a source. Unset keys are omitted,
// so the HTTP client's defaults apply.
func Headers(cfg Source) map[string]string {
	headers := make(map[string]string, len(headerKeys))
	for _, hk := range headerKeys {
		if v := cfg.ConfigString(hk.key, ""); v != "" {
			headers[hk.header] = v
		}
	}
	return headers
}
