package http

import (
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mojbudzet/internal/core"
)

const flashCookie = "mb_flash"

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether r wants a fragment. History restores come from
// htmx too but need the full page.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-History-Restore-Request") != "true"
}

// redirect navigates the browser to target: a 303 for plain requests and
// HX-Redirect for htmx, which would otherwise swap the target page into
// the current element.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(target).Write(w)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// setFlash stores a one-shot notification for the next page render.
func setFlash(w http.ResponseWriter, msg string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the pending notification, if any.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

// templateFuncs are the formatting helpers available to every template.
func templateFuncs(currency string, loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return core.FormatAmount(d, currency)
		},
		"amountInput": core.InputValue,
		"date": func(i core.Instant) string {
			if i.IsZero() {
				return core.PlaceholderName
			}
			return i.In(loc).Format("2. 1. 2006.")
		},
		"dateInput": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("2006-01-02T15:04")
		},
		"signClass": func(sign int) string {
			switch {
			case sign > 0:
				return "positive"
			case sign < 0:
				return "negative"
			default:
				return "neutral"
			}
		},
		"monthQuery": func(m core.Month) string {
			return url.QueryEscape(m.String())
		},
	}
}
