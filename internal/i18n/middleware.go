package i18n

import "net/http"

// Middleware injects a localizer into every request context. A "lang" query
// parameter wins over the Accept-Language header; lang is the fallback.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := []string{r.URL.Query().Get("lang"), Negotiate(r.Header.Get("Accept-Language")), lang}
			var langs []string
			for _, p := range prefs {
				if p != "" {
					langs = append(langs, p)
				}
			}
			ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
